package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reagent-dev/reagent/internal/logger"
)

// WriteFileTool creates or overwrites a file, creating parent directories as
// needed.
type WriteFileTool struct {
	dir string
}

func NewWriteFileTool(dir string) *WriteFileTool {
	return &WriteFileTool{dir: dir}
}

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Write content to a file (creates or overwrites)"
}

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := resolvePath(t.dir, GetStringParam(params, "path", ""))
	content := GetStringParam(params, "content", "")
	logger.Debug("write_file: path=%s, bytes=%d", path, len(content))

	if err := ctx.Err(); err != nil {
		return FailureFromError(err, "write_file cancelled")
	}

	if parent := filepath.Dir(path); parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return FailureFromError(err, "cannot create parent directory for %s", path)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return FailureFromError(err, "cannot write %s", path)
	}

	return &ToolResult{
		Success: true,
		Content: fmt.Sprintf("Successfully wrote %d characters to %s", len(content), path),
		Metadata: map[string]interface{}{
			"path":          path,
			"bytes_written": len(content),
		},
	}
}
