package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/reagent-dev/reagent/internal/logger"
)

// CreateDirectoryTool creates a directory along with any missing parents.
type CreateDirectoryTool struct {
	dir string
}

func NewCreateDirectoryTool(dir string) *CreateDirectoryTool {
	return &CreateDirectoryTool{dir: dir}
}

func (t *CreateDirectoryTool) Name() string {
	return "create_directory"
}

func (t *CreateDirectoryTool) Description() string {
	return "Create a directory (and parent directories if needed)"
}

func (t *CreateDirectoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the directory to create",
			},
		},
		"required": []string{"path"},
	}
}

func (t *CreateDirectoryTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := resolvePath(t.dir, GetStringParam(params, "path", ""))
	logger.Debug("create_directory: path=%s", path)

	if err := ctx.Err(); err != nil {
		return FailureFromError(err, "create_directory cancelled")
	}

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return Failure(ReasonWrongType, "path exists and is not a directory: %s", path)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return FailureFromError(err, "cannot create directory %s", path)
	}

	return &ToolResult{
		Success: true,
		Content: fmt.Sprintf("Successfully created directory: %s", path),
		Metadata: map[string]interface{}{
			"path": path,
		},
	}
}
