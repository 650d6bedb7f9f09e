package llmlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerWritesRequestResponsePairs(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{Dir: dir, File: "test.jsonl", Enabled: true})
	require.NoError(t, err)

	convID := l.LogRequest("llama3", map[string]string{"prompt": "hi"}, map[string]interface{}{"iteration": 1})
	require.NotEmpty(t, convID)
	l.LogResponse("llama3", convID, "hello", nil)
	l.LogError("llama3", convID, "boom")

	entries := readEntries(t, filepath.Join(dir, "test.jsonl"))
	require.Len(t, entries, 3)

	assert.Equal(t, DirectionRequest, entries[0].Direction)
	assert.Equal(t, DirectionResponse, entries[1].Direction)
	assert.Equal(t, DirectionError, entries[2].Direction)
	for _, e := range entries {
		assert.Equal(t, l.SessionID(), e.SessionID)
		assert.Equal(t, convID, e.ConversationID)
	}
}

func TestLoggerConversationIDsIncrement(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{Dir: dir, File: "test.jsonl", Enabled: true})
	require.NoError(t, err)

	first := l.LogRequest("m", "a", nil)
	second := l.LogRequest("m", "b", nil)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(first, "_conv_1"))
	assert.True(t, strings.HasSuffix(second, "_conv_2"))
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	l := Disabled()
	convID := l.LogRequest("m", "content", nil)
	assert.Empty(t, convID)
	l.LogResponse("m", convID, "x", nil)
	l.LogError("m", convID, "y")
}

func TestLoggerRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{Dir: dir, File: "rot.jsonl", MaxFileSize: 200, MaxFiles: 5, Enabled: true})
	require.NoError(t, err)

	big := strings.Repeat("x", 300)
	l.LogRequest("m", big, nil)
	l.LogRequest("m", big, nil) // triggers rotation of the first write

	rotated, err := filepath.Glob(filepath.Join(dir, "rot_rotated_*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, rotated, 1)

	// Active file holds only the post-rotation entry.
	entries := readEntries(t, filepath.Join(dir, "rot.jsonl"))
	assert.Len(t, entries, 1)
}
