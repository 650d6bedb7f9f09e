package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"syscall"
)

// ReasonCode classifies why a tool execution failed. The codes form a closed
// taxonomy: anything a tool cannot express with one of the named codes is
// reported as ReasonUnknown.
type ReasonCode string

const (
	ReasonNotFound         ReasonCode = "not-found"
	ReasonWrongType        ReasonCode = "wrong-type"
	ReasonConflict         ReasonCode = "conflict"
	ReasonTimeout          ReasonCode = "timeout"
	ReasonPermissionDenied ReasonCode = "permission-denied"
	ReasonUnknown          ReasonCode = "unknown"
)

// Known reports whether the code belongs to the failure taxonomy that
// callers are allowed to react to. ReasonUnknown is deliberately excluded.
func (r ReasonCode) Known() bool {
	switch r {
	case ReasonNotFound, ReasonWrongType, ReasonConflict, ReasonTimeout, ReasonPermissionDenied:
		return true
	}
	return false
}

// ClassifyReason maps an operating system error to a reason code.
func ClassifyReason(err error) ReasonCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, fs.ErrNotExist):
		return ReasonNotFound
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermissionDenied
	case errors.Is(err, syscall.EISDIR), errors.Is(err, syscall.ENOTDIR):
		return ReasonWrongType
	}
	return ReasonUnknown
}

// ToolCall represents a single action request against the registry.
type ToolCall struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// ToolResult represents the outcome of a tool execution.
type ToolResult struct {
	Success    bool                   `json:"success"`
	Content    string                 `json:"content"`
	ReasonCode ReasonCode             `json:"reason_code,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Failure builds a failed result with a classified reason.
func Failure(reason ReasonCode, format string, args ...interface{}) *ToolResult {
	return &ToolResult{
		Success:    false,
		ReasonCode: reason,
		Error:      fmt.Sprintf(format, args...),
	}
}

// FailureFromError builds a failed result, classifying the reason from err.
func FailureFromError(err error, format string, args ...interface{}) *ToolResult {
	return &ToolResult{
		Success:    false,
		ReasonCode: ClassifyReason(err),
		Error:      fmt.Sprintf(format, args...) + ": " + err.Error(),
	}
}

// Tool represents an executable capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) *ToolResult
}

// Registry manages available tools.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry preloaded with the filesystem tools, all
// rooted at dir. An empty dir means paths are used as given.
func NewRegistry(dir string) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range []Tool{
		NewReadFileTool(dir),
		NewWriteFileTool(dir),
		NewEditFileTool(dir),
		NewCreateDirectoryTool(dir),
		NewListDirectoryTool(dir),
		NewDeleteFileTool(dir),
	} {
		r.Register(t)
	}
	return r
}

// NewEmptyRegistry creates a registry with no tools registered.
func NewEmptyRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry, replacing any existing tool with the
// same name.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool from the registry.
func (r *Registry) Unregister(name string) {
	delete(r.tools, name)
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered tools, ordered by name.
func (r *Registry) List() []Tool {
	result := make([]Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		result = append(result, r.tools[name])
	}
	return result
}

// Execute validates the call against the tool's parameter schema and runs it.
// A missing tool or invalid parameters yield a failed result rather than an
// error so callers always get a ToolResult to record.
func (r *Registry) Execute(ctx context.Context, call *ToolCall) *ToolResult {
	tool, ok := r.tools[call.Name]
	if !ok {
		return Failure(ReasonUnknown, "tool not found: %s", call.Name)
	}

	if err := validateParams(tool.Parameters(), call.Parameters); err != nil {
		return Failure(ReasonUnknown, "invalid parameters for %s: %v", call.Name, err)
	}

	result := tool.Execute(ctx, call.Parameters)
	if result == nil {
		return Failure(ReasonUnknown, "tool %s returned no result", call.Name)
	}
	return result
}

// Describe renders a human-readable description of every registered tool,
// suitable for embedding in a prompt.
func (r *Registry) Describe() string {
	var sb strings.Builder
	for _, tool := range r.List() {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", tool.Name(), tool.Description()))
		schema := tool.Parameters()
		props, _ := schema["properties"].(map[string]interface{})
		required := requiredSet(schema)
		for _, name := range sortedKeys(props) {
			prop, _ := props[name].(map[string]interface{})
			desc, _ := prop["description"].(string)
			typ, _ := prop["type"].(string)
			opt := " (optional)"
			if required[name] {
				opt = ""
			}
			sb.WriteString(fmt.Sprintf("    %s (%s)%s: %s\n", name, typ, opt, desc))
		}
	}
	return sb.String()
}

// validateParams checks required fields and basic types against a JSON-schema
// style parameter map as returned by Tool.Parameters.
func validateParams(schema map[string]interface{}, params map[string]interface{}) error {
	props, _ := schema["properties"].(map[string]interface{})
	for name := range requiredSet(schema) {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("missing required parameter %q", name)
		}
	}
	for name, value := range params {
		prop, ok := props[name].(map[string]interface{})
		if !ok {
			continue
		}
		typ, _ := prop["type"].(string)
		switch typ {
		case "string":
			if _, ok := value.(string); !ok {
				return fmt.Errorf("parameter %q must be a string", name)
			}
		case "integer":
			switch value.(type) {
			case int, int64, float64:
			default:
				return fmt.Errorf("parameter %q must be an integer", name)
			}
		case "boolean":
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("parameter %q must be a boolean", name)
			}
		}
	}
	return nil
}

func requiredSet(schema map[string]interface{}) map[string]bool {
	set := make(map[string]bool)
	switch req := schema["required"].(type) {
	case []string:
		for _, name := range req {
			set[name] = true
		}
	case []interface{}:
		for _, name := range req {
			if s, ok := name.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetStringParam extracts a string parameter with a default value.
func GetStringParam(params map[string]interface{}, key string, defaultVal string) string {
	if val, ok := params[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetIntParam extracts an integer parameter with a default value. JSON
// decoding produces float64, so both forms are accepted.
func GetIntParam(params map[string]interface{}, key string, defaultVal int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}

// GetBoolParam extracts a boolean parameter with a default value.
func GetBoolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if val, ok := params[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}
