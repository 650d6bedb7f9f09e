package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Signature is a normalized fingerprint of an action's name and parameters,
// used only for repetition comparison. It is derived on demand and never
// persisted. The value fingerprint is computed over normalized parameters:
// bulky values (file content, long strings) are reduced to a length or a
// truncated prefix so that trivially different payloads still compare equal
// when the action is effectively the same.
type Signature struct {
	Action      string
	Keys        string
	Fingerprint uint64
}

// NewSignature builds the signature for a proposed or recorded action.
func NewSignature(action string, params map[string]interface{}) Signature {
	norm := normalizeParams(action, params)

	keys := make([]string, 0, len(norm))
	for k := range norm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(norm[k])
		sb.WriteByte(0)
	}

	return Signature{
		Action:      action,
		Keys:        strings.Join(keys, ","),
		Fingerprint: xxhash.Sum64String(sb.String()),
	}
}

func stepSignature(s *Step) Signature {
	return NewSignature(s.Action, s.Params)
}

func (s Signature) String() string {
	if s.Keys == "" {
		return s.Action
	}
	return fmt.Sprintf("%s(%s)", s.Action, s.Keys)
}

// normalizeParams reduces an action's parameters to the values that matter
// for repetition comparison.
func normalizeParams(action string, params map[string]interface{}) map[string]string {
	norm := make(map[string]string)

	switch action {
	case "write_file":
		if path, ok := params["path"]; ok {
			norm["path"] = fmt.Sprint(path)
		}
		// Compare content by length: rewriting the same path with marginally
		// different text is still the same move.
		if content, ok := params["content"]; ok {
			norm["content_len"] = fmt.Sprint(len(fmt.Sprint(content)))
		}
	case "edit_file":
		if path, ok := params["path"]; ok {
			norm["path"] = fmt.Sprint(path)
		}
		if find, ok := params["find_text"]; ok {
			norm["find_text"] = truncateValue(fmt.Sprint(find), 30)
		}
	case "read_file", "create_directory", "list_directory", "delete_file":
		if path, ok := params["path"]; ok {
			norm["path"] = fmt.Sprint(path)
		}
	default:
		for k, v := range params {
			norm[k] = truncateValue(fmt.Sprint(v), 50)
		}
	}

	return norm
}

func truncateValue(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
