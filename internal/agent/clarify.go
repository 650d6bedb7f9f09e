package agent

import (
	"fmt"
	"strings"
)

// Escalator is the 3-level state machine that produces increasingly explicit
// corrective guidance when the oracle's output cannot be parsed into an
// action. The level climbs one step per consecutive malformed response and
// resets to 0 the moment a response parses.
type Escalator struct {
	consecutive  int
	maxMalformed int
}

// NewEscalator builds an escalator that tolerates maxMalformed consecutive
// malformed responses before Exhausted reports true.
func NewEscalator(maxMalformed int) *Escalator {
	if maxMalformed <= 0 {
		maxMalformed = 3
	}
	return &Escalator{maxMalformed: maxMalformed}
}

// Level returns the current escalation level (0 basic, 1 detailed,
// 2 simplified).
func (e *Escalator) Level() int {
	if e.consecutive == 0 {
		return 0
	}
	level := e.consecutive - 1
	if level > 2 {
		level = 2
	}
	return level
}

// OnMalformed records one malformed response and returns the corrective
// guidance to inject into the conversation. Levels never skip: the first
// malformed response gets level 0, the second level 1, the third level 2.
func (e *Escalator) OnMalformed(lastResponse string) Guidance {
	e.consecutive++
	level := e.Level()

	var text string
	switch level {
	case 0:
		text = basicGuidance(lastResponse)
	case 1:
		text = detailedGuidance(lastResponse)
	default:
		text = simplifiedGuidance()
	}
	return Guidance{Level: level, Text: text}
}

// OnParsed resets the escalation after any well-formed parse.
func (e *Escalator) OnParsed() {
	e.consecutive = 0
}

// Exhausted reports whether the consecutive-malformed bound has been reached
// and the run should be abandoned.
func (e *Escalator) Exhausted() bool {
	return e.consecutive >= e.maxMalformed
}

// Reset clears all escalation state for a new task.
func (e *Escalator) Reset() {
	e.consecutive = 0
}

func basicGuidance(lastResponse string) string {
	msg := `Observation: No valid action found. Please use the exact Thought-Action-Action Input format.

Required format:
Thought: [Your reasoning about what to do next]
Action: [tool_name]
Action Input: {"parameter": "value"}

Do NOT include Observation in your response - I will provide that.`

	if issues := analyzeResponseIssues(lastResponse); len(issues) > 0 {
		msg += "\n\nDetected issues: " + strings.Join(issues, ", ")
	}
	return msg
}

func detailedGuidance(lastResponse string) string {
	msg := `Observation: Still no valid action found. Here are exact examples of the correct format.

CORRECT format examples:

1. To write a file:
Thought: I need to create a new file with the content provided.
Action: write_file
Action Input: {"path": "example.txt", "content": "Hello World"}

2. To read a file:
Thought: I should read the existing file to see its contents.
Action: read_file
Action Input: {"path": "example.txt"}

3. To edit a file:
Thought: I need to find and replace specific text in the file.
Action: edit_file
Action Input: {"path": "example.txt", "find_text": "old text", "replace_text": "new text"}

COMMON MISTAKES to avoid:
- Don't include "Observation:" in your response
- Don't put quotes around the Action name
- Action Input must be valid JSON with double quotes
- Don't mix up parameter names (use "path" not "file_path")`

	if issues := analyzeResponseIssues(lastResponse); len(issues) > 0 {
		msg += fmt.Sprintf("\n\nYour response had these issues: %s\nPlease focus on fixing these specific problems.", strings.Join(issues, ", "))
	}
	return msg
}

func simplifiedGuidance() string {
	return `Observation: Let's try a simpler approach. The task may be too complex to handle all at once.

SIMPLIFIED APPROACH:
1. Pick just ONE simple action to perform right now
2. Don't worry about the full task - just focus on one step
3. Use this exact format:

Thought: I will do [one simple thing]
Action: [simple_tool_name]
Action Input: {"path": "simple_example"}

EASY ACTIONS to try:
- List files: list_directory with {"path": "."}
- Read a file: read_file with {"path": "filename"}
- Create simple file: write_file with {"path": "test.txt", "content": "test"}

If you're not sure what to do, start by listing the current directory to see what's available.`
}

// analyzeResponseIssues names the specific format problems in a malformed
// response, capped at 3 so the guidance stays readable.
func analyzeResponseIssues(response string) []string {
	lower := strings.ToLower(response)
	var issues []string

	if strings.Contains(lower, "observation:") {
		issues = append(issues, "includes 'Observation:' (should not be in response)")
	}
	if !strings.Contains(lower, "thought:") {
		issues = append(issues, "missing 'Thought:' field")
	}
	if !strings.Contains(lower, "action:") {
		issues = append(issues, "missing 'Action:' field")
	}
	if !strings.Contains(lower, "action input:") {
		issues = append(issues, "missing 'Action Input:' field")
	}
	if !strings.Contains(response, "{") || !strings.Contains(response, "}") {
		issues = append(issues, "Action Input is not in JSON format")
	}
	if strings.Contains(lower, "file_path") {
		issues = append(issues, "using 'file_path' instead of 'path'")
	}
	if strings.Count(response, `"`)%2 != 0 {
		issues = append(issues, "unmatched quotes in JSON")
	}

	if len(issues) > 3 {
		issues = issues[:3]
	}
	return issues
}
