// Package toolcall turns raw model output into executable tool calls. It
// understands three wire formats, in strict precedence order: provider-native
// structured calls, the <function=...> tag grammar embedded in free text, and
// a bare JSON fallback. Parsing never fails; malformed input becomes an
// error-flagged call the model can read and correct.
package toolcall

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rmkendall/croft/session"
)

// Format identifies which wire format a turn's calls were read from.
type Format string

const (
	FormatNative Format = "native"
	FormatTagged Format = "tagged"
	FormatJSON   Format = "json"
	FormatNone   Format = "none"
)

// Call is one candidate tool invocation. Name is non-empty unless Err
// explains why it could not be determined; Args is never nil.
type Call struct {
	ID   string
	Name string
	Args map[string]interface{}
	Err  string
}

// Parsed is the result of routing one model turn.
type Parsed struct {
	Format Format
	Calls  []Call
}

var (
	functionRe  = regexp.MustCompile(`(?s)<function=([^>]*)>(.*?)</function>`)
	parameterRe = regexp.MustCompile(`(?s)<parameter=([^>]*)>(.*?)</parameter>`)
)

// lazyParams maps the tools that accept the lazy tag form (a function tag
// with no parameter tags) to their single implicit parameter. Only tools
// with exactly one meaningful parameter belong here.
var lazyParams = map[string]string{
	"read_file":         "file_path",
	"list_dir":          "dir_path",
	"run_shell_command": "command",
	"search_files":      "pattern",
}

// Parse routes one assistant turn. Native structured calls always win; the
// tag grammar is scanned next; bare JSON is the last resort. A tag scan that
// produced only malformed entries does not claim the turn: the JSON fallback
// still gets its chance, and the error entries are returned only when JSON
// yields nothing, so the model gets feedback on its broken tag syntax.
func Parse(msg *session.Message) Parsed {
	if msg == nil {
		return Parsed{Format: FormatNone}
	}

	if len(msg.ToolCalls) > 0 {
		calls := make([]Call, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			args := tc.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			calls = append(calls, Call{ID: tc.ToolCallID, Name: tc.Name, Args: args})
		}
		return Parsed{Format: FormatNative, Calls: calls}
	}

	tagged := parseTagged(msg.Content)
	if hasValidCall(tagged) {
		return Parsed{Format: FormatTagged, Calls: tagged}
	}

	if calls := parseJSONFallback(msg.Content); len(calls) > 0 {
		return Parsed{Format: FormatJSON, Calls: calls}
	}

	if len(tagged) > 0 {
		return Parsed{Format: FormatTagged, Calls: tagged}
	}

	return Parsed{Format: FormatNone}
}

func hasValidCall(calls []Call) bool {
	for _, c := range calls {
		if c.Err == "" {
			return true
		}
	}
	return false
}

// parseTagged scans text for <function=NAME>...</function> blocks, in order
// of appearance.
func parseTagged(text string) []Call {
	matches := functionRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	calls := make([]Call, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		body := m[2]

		if name == "" {
			calls = append(calls, Call{
				ID:   newCallID(),
				Name: "unknown",
				Args: map[string]interface{}{},
				Err:  "malformed tool call: empty function name",
			})
			continue
		}

		args := map[string]interface{}{}
		params := parameterRe.FindAllStringSubmatch(body, -1)
		if len(params) > 0 {
			for _, p := range params {
				key := strings.TrimSpace(p[1])
				if key == "" {
					continue
				}
				args[key] = strings.TrimSpace(p[2])
			}
			calls = append(calls, Call{ID: newCallID(), Name: name, Args: args})
			continue
		}

		// Lazy form: no parameter tags, the whole body is the value of the
		// tool's single known parameter.
		if param, ok := lazyParams[name]; ok {
			args[param] = strings.TrimSpace(body)
			calls = append(calls, Call{ID: newCallID(), Name: name, Args: args})
			continue
		}

		calls = append(calls, Call{
			ID:   newCallID(),
			Name: name,
			Args: args,
			Err: fmt.Sprintf("tool %q requires explicit <parameter=KEY>VALUE</parameter> tags; "+
				"the lazy form is only valid for single-parameter tools", name),
		})
	}
	return calls
}

// jsonCall is the shape of a fallback entry: {"name": ..., "arguments": ...}.
type jsonCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseJSONFallback parses the text as a bare JSON array or object of
// {name, arguments} entries. Anything that does not decode cleanly yields no
// calls.
func parseJSONFallback(text string) []Call {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var entries []jsonCall
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil
		}
	case '{':
		var one jsonCall
		if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
			return nil
		}
		entries = []jsonCall{one}
	default:
		return nil
	}

	var calls []Call
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		calls = append(calls, Call{
			ID:   newCallID(),
			Name: strings.TrimSpace(e.Name),
			Args: decodeArguments(e.Arguments),
		})
	}
	return calls
}

// decodeArguments accepts either an object or a JSON-encoded object string,
// since models emit both.
func decodeArguments(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}

	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err == nil && args != nil {
		return args
	}

	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &args); err == nil && args != nil {
			return args
		}
	}
	return map[string]interface{}{}
}

// newCallID labels a parsed (non-native) call so tool results can be
// associated with it in the history, the same way provider call ids are.
func newCallID() string {
	return "call_" + uuid.NewString()
}
