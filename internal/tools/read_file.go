package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/reagent-dev/reagent/internal/logger"
)

// ReadFileTool reads the full contents of a file.
type ReadFileTool struct {
	dir string
}

func NewReadFileTool(dir string) *ReadFileTool {
	return &ReadFileTool{dir: dir}
}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file"
}

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to read",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := resolvePath(t.dir, GetStringParam(params, "path", ""))
	logger.Debug("read_file: path=%s", path)

	if err := ctx.Err(); err != nil {
		return FailureFromError(err, "read_file cancelled")
	}

	info, err := os.Stat(path)
	if err != nil {
		return FailureFromError(err, "cannot read %s", path)
	}
	if info.IsDir() {
		return Failure(ReasonWrongType, "path is not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FailureFromError(err, "cannot read %s", path)
	}

	return &ToolResult{
		Success: true,
		Content: string(data),
		Metadata: map[string]interface{}{
			"path":      path,
			"file_size": len(data),
		},
	}
}

// resolvePath anchors relative paths at the registry's working directory.
func resolvePath(dir, path string) string {
	if dir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
