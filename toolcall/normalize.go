package toolcall

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/workspace"
)

// Normalize applies the three-stage argument transform for one tool call:
// alias rewriting, sandbox path resolution, and integer coercion. The input
// map is never mutated; the returned map is a fresh copy. For identical
// inputs the output is identical.
//
// A path parameter that resolves outside the sandbox root returns an error
// wrapping workspace.ErrOutsideRoot; the caller maps that to a security
// result and must not run the tool.
func Normalize(args map[string]interface{}, spec config.ToolSpec, ws *workspace.Context) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}

	// Stage 1: alias -> canonical, only when the canonical key is absent.
	// Aliases are applied in sorted order so two aliases of the same
	// canonical key resolve the same way every time.
	aliases := make([]string, 0, len(spec.Aliases))
	for alias := range spec.Aliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		canonical := spec.Aliases[alias]
		v, ok := out[alias]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; exists {
			continue
		}
		out[canonical] = v
		delete(out, alias)
	}

	// Stage 2: resolve path-typed parameters against the sandbox root.
	if ws != nil {
		for _, param := range spec.PathParams {
			v, ok := out[param]
			if !ok {
				continue
			}
			s, ok := v.(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			resolved, err := ws.Resolve(s)
			if err != nil {
				return nil, err
			}
			out[param] = resolved
		}
	}

	// Stage 3: coerce integer-typed parameters. JSON decoding hands numbers
	// over as float64 (or json.Number), and models sometimes quote them. A
	// value that does not convert stays as-is; downstream validation owns
	// that complaint.
	for _, param := range spec.IntParams {
		v, ok := out[param]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				out[param] = i
			}
		case float64:
			if n == math.Trunc(n) {
				out[param] = int(n)
			}
		case json.Number:
			if i, err := strconv.Atoi(n.String()); err == nil {
				out[param] = i
			}
		}
	}

	return out, nil
}
