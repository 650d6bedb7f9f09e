package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	t.Run("WellFormedAction", func(t *testing.T) {
		p := ParseResponse(`Thought: I need to read the file first.
Action: read_file
Action Input: {"path": "notes.txt"}`)

		require.NotNil(t, p.Action)
		assert.False(t, p.IsFinal)
		assert.Equal(t, "I need to read the file first.", p.Thought)
		assert.Equal(t, "read_file", p.Action.Name)
		assert.Equal(t, "notes.txt", p.Action.Parameters["path"])
	})

	t.Run("FinalAnswer", func(t *testing.T) {
		p := ParseResponse(`Thought: Everything is in place now.
Final Answer: The file notes.txt has been updated with the new content.`)

		assert.True(t, p.IsFinal)
		assert.Equal(t, "The file notes.txt has been updated with the new content.", p.FinalAnswer)
		assert.False(t, p.Malformed())
	})

	t.Run("FinalAnswerMentioningSuccessSurvives", func(t *testing.T) {
		// Completion summaries legitimately use wording that the
		// hallucination filter would otherwise cut.
		p := ParseResponse("Final Answer: File created successfully with all requested sections.")
		assert.True(t, p.IsFinal)
		assert.Contains(t, p.FinalAnswer, "created successfully")
	})

	t.Run("HallucinatedObservationStripped", func(t *testing.T) {
		p := ParseResponse(`Thought: writing the file now.
Action: write_file
Action Input: {"path": "a.txt", "content": "hi"}
Observation: File written successfully.
Thought: now I should read it back.
Action: read_file
Action Input: {"path": "a.txt"}`)

		require.NotNil(t, p.Action)
		assert.Equal(t, "write_file", p.Action.Name, "only the part before the fabricated observation counts")
	})

	t.Run("QuotedActionName", func(t *testing.T) {
		p := ParseResponse(`Action: "list_directory"
Action Input: {"path": "."}`)

		require.NotNil(t, p.Action)
		assert.Equal(t, "list_directory", p.Action.Name)
	})

	t.Run("PlaceholderActionNameMalformed", func(t *testing.T) {
		p := ParseResponse(`Thought: nothing left to do.
Action: none
Action Input: {}`)

		assert.Nil(t, p.Action)
		assert.True(t, p.Malformed())
	})

	t.Run("ProseOnlyMalformed", func(t *testing.T) {
		p := ParseResponse("I think the best approach would be to look around first.")
		assert.True(t, p.Malformed())
	})

	t.Run("InvalidJSONMalformed", func(t *testing.T) {
		p := ParseResponse(`Action: read_file
Action Input: {path: notes.txt}`)

		assert.Nil(t, p.Action)
		assert.True(t, p.Malformed())
	})

	t.Run("UnclosedObjectMalformed", func(t *testing.T) {
		p := ParseResponse(`Action: write_file
Action Input: {"path": "a.txt", "content": "unterminated`)

		assert.Nil(t, p.Action)
		assert.True(t, p.Malformed())
	})

	t.Run("NestedAndEscapedJSON", func(t *testing.T) {
		p := ParseResponse(`Action: write_file
Action Input: {"path": "a.json", "content": "{\"nested\": \"value with } brace\"}"}`)

		require.NotNil(t, p.Action)
		assert.Equal(t, "a.json", p.Action.Parameters["path"])
		assert.Equal(t, `{"nested": "value with } brace"}`, p.Action.Parameters["content"])
	})

	t.Run("MissingActionInputParsesEmptyParams", func(t *testing.T) {
		p := ParseResponse(`Thought: take stock of the workspace.
Action: list_directory`)

		require.NotNil(t, p.Action)
		assert.Empty(t, p.Action.Parameters)
	})

	t.Run("TrailingProseAfterObjectIgnored", func(t *testing.T) {
		p := ParseResponse(`Action: read_file
Action Input: {"path": "a.txt"}
That should show me the contents.`)

		require.NotNil(t, p.Action)
		assert.Equal(t, "a.txt", p.Action.Parameters["path"])
	})
}
