package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/reagent-dev/reagent/internal/logger"
)

// EditFileTool rewrites an existing file by replacing every occurrence of a
// text pattern. A pattern that does not appear in the file is a conflict, not
// a silent no-op, so the caller learns its view of the file is stale.
type EditFileTool struct {
	dir string
}

func NewEditFileTool(dir string) *EditFileTool {
	return &EditFileTool{dir: dir}
}

func (t *EditFileTool) Name() string {
	return "edit_file"
}

func (t *EditFileTool) Description() string {
	return "Edit a file by replacing text patterns"
}

func (t *EditFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to edit",
			},
			"find_text": map[string]interface{}{
				"type":        "string",
				"description": "Text to find and replace",
			},
			"replace_text": map[string]interface{}{
				"type":        "string",
				"description": "Text to replace with",
			},
		},
		"required": []string{"path", "find_text", "replace_text"},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := resolvePath(t.dir, GetStringParam(params, "path", ""))
	findText := GetStringParam(params, "find_text", "")
	replaceText := GetStringParam(params, "replace_text", "")
	logger.Debug("edit_file: path=%s, find=%d bytes", path, len(findText))

	if err := ctx.Err(); err != nil {
		return FailureFromError(err, "edit_file cancelled")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FailureFromError(err, "cannot edit %s", path)
	}

	content := string(data)
	if !strings.Contains(content, findText) {
		return Failure(ReasonConflict, "text to replace not found in %s: %s", path, truncateForError(findText))
	}

	replacements := strings.Count(content, findText)
	updated := strings.ReplaceAll(content, findText, replaceText)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return FailureFromError(err, "cannot write %s", path)
	}

	return &ToolResult{
		Success: true,
		Content: fmt.Sprintf("Successfully replaced %d occurrence(s) in %s", replacements, path),
		Metadata: map[string]interface{}{
			"path":         path,
			"replacements": replacements,
		},
	}
}

func truncateForError(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
