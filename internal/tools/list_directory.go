package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/reagent-dev/reagent/internal/logger"
)

// ListDirectoryTool lists the entries of a directory with type and size.
type ListDirectoryTool struct {
	dir string
}

func NewListDirectoryTool(dir string) *ListDirectoryTool {
	return &ListDirectoryTool{dir: dir}
}

func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

func (t *ListDirectoryTool) Description() string {
	return "List files and directories in a given path"
}

func (t *ListDirectoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the directory to list",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, params map[string]interface{}) *ToolResult {
	path := resolvePath(t.dir, GetStringParam(params, "path", ""))
	logger.Debug("list_directory: path=%s", path)

	if err := ctx.Err(); err != nil {
		return FailureFromError(err, "list_directory cancelled")
	}

	info, err := os.Stat(path)
	if err != nil {
		return FailureFromError(err, "cannot list %s", path)
	}
	if !info.IsDir() {
		return Failure(ReasonWrongType, "path is not a directory: %s", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return FailureFromError(err, "cannot list %s", path)
	}

	var lines []string
	for _, entry := range entries {
		if entry.IsDir() {
			lines = append(lines, fmt.Sprintf("%s (directory)", entry.Name()))
			continue
		}
		size := int64(0)
		if fi, err := entry.Info(); err == nil {
			size = fi.Size()
		}
		lines = append(lines, fmt.Sprintf("%s (file, %d bytes)", entry.Name(), size))
	}

	return &ToolResult{
		Success: true,
		Content: strings.Join(lines, "\n"),
		Metadata: map[string]interface{}{
			"path":  path,
			"count": len(entries),
		},
	}
}
