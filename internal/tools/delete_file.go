package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/reagent-dev/reagent/internal/logger"
)

// DeleteFileTool removes a file or a directory tree.
type DeleteFileTool struct {
	dir string
}

func NewDeleteFileTool(dir string) *DeleteFileTool {
	return &DeleteFileTool{dir: dir}
}

func (t *DeleteFileTool) Name() string {
	return "delete_file"
}

func (t *DeleteFileTool) Description() string {
	return "Delete a file or directory"
}

func (t *DeleteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file or directory to delete",
			},
		},
		"required": []string{"path"},
	}
}

func (t *DeleteFileTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := resolvePath(t.dir, GetStringParam(params, "path", ""))
	logger.Debug("delete_file: path=%s", path)

	if err := ctx.Err(); err != nil {
		return FailureFromError(err, "delete_file cancelled")
	}

	info, err := os.Stat(path)
	if err != nil {
		return FailureFromError(err, "cannot delete %s", path)
	}

	itemType := "file"
	if info.IsDir() {
		itemType = "directory"
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return FailureFromError(err, "cannot delete %s", path)
	}

	return &ToolResult{
		Success: true,
		Content: fmt.Sprintf("Successfully deleted %s: %s", itemType, path),
		Metadata: map[string]interface{}{
			"path": path,
			"type": itemType,
		},
	}
}
