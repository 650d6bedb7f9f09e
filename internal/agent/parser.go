package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/reagent-dev/reagent/internal/tools"
)

// Parsed is the structured reading of one oracle response. A response with
// neither a final answer nor an action is malformed.
type Parsed struct {
	Thought     string
	Action      *tools.ToolCall
	FinalAnswer string
	IsFinal     bool
}

// Malformed reports whether the response could not be understood at all.
func (p *Parsed) Malformed() bool {
	return !p.IsFinal && p.Action == nil
}

var (
	thoughtRe     = regexp.MustCompile(`(?i)Thought:\s*([^\n]+)`)
	actionRe      = regexp.MustCompile(`(?i)Action:\s*([^\n]+)`)
	finalAnswerRe = regexp.MustCompile(`(?is)Final Answer:\s*(.*)`)
)

// Names the oracle sometimes emits in the Action field when it means "no
// action". None of them is a real action.
var invalidActionNames = map[string]bool{
	"none": true, "null": true, "n/a": true, "na": true,
	"nothing": true, "stop": true, "end": true, "finish": true, "complete": true,
}

// ParseResponse reads an oracle response into a thought, an action, or a
// final answer. Anything after a hallucinated "Observation:" line is
// discarded first: only the system provides observations.
func ParseResponse(text string) *Parsed {
	parsed := &Parsed{}

	// Final answers are recognized before stripping: completion summaries
	// legitimately talk about files being created successfully.
	if m := finalAnswerRe.FindStringSubmatch(text); m != nil {
		parsed.IsFinal = true
		parsed.FinalAnswer = strings.TrimSpace(m[1])
		return parsed
	}

	text = stripHallucinatedObservation(text)

	if m := thoughtRe.FindStringSubmatch(text); m != nil {
		parsed.Thought = strings.TrimSpace(m[1])
	}

	m := actionRe.FindStringSubmatch(text)
	if m == nil {
		return parsed
	}
	name := strings.Trim(strings.TrimSpace(m[1]), `"'`)
	if name == "" || invalidActionNames[strings.ToLower(name)] {
		return parsed
	}

	input, ok := extractActionInput(text)
	if !ok {
		return parsed
	}
	var params map[string]interface{}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &params); err != nil {
			return parsed
		}
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	parsed.Action = &tools.ToolCall{Name: name, Parameters: params}
	return parsed
}

// extractActionInput returns the balanced JSON object following the first
// "Action Input:" marker. A marker with no object at all yields ("", true)
// so zero-parameter actions still parse.
func extractActionInput(text string) (string, bool) {
	idx := strings.Index(strings.ToLower(text), "action input:")
	if idx < 0 {
		return "", true
	}
	rest := text[idx+len("action input:"):]

	start := strings.Index(rest, "{")
	if start < 0 {
		return "", true
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(rest); i++ {
		ch := rest[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return rest[start : i+1], true
				}
			}
		}
	}
	// Opened but never closed: unparseable.
	return "", false
}

var hallucinatedRe = regexp.MustCompile(`(?i)(Directory|File).*successfully|(created|written|read|listed).*successfully`)

// stripHallucinatedObservation cuts the response at the first line the
// oracle should not have produced: an Observation, or a fabricated success
// report.
func stripHallucinatedObservation(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Observation:") || hallucinatedRe.MatchString(trimmed) {
			return strings.TrimSpace(strings.Join(lines[:i], "\n"))
		}
	}
	return text
}
