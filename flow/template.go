package flow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

// placeholderRe matches one {{ ... }} template placeholder.
var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// execContext is the ephemeral per-execution workflow context: the resolved
// input map and the growing step id to result map. It is never persisted
// beyond one execution.
type execContext struct {
	input map[string]any
	steps map[string]workflow.StepResult
}

// lookup resolves a dotted path against the context roots: input.<path>,
// steps.<id>.output.<path>, steps.<id>.metadata.<path>.
func (c *execContext) lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")
	switch parts[0] {
	case "input":
		return walk(c.input, parts[1:])
	case "steps":
		if len(parts) < 3 {
			return nil, false
		}
		sr, ok := c.steps[parts[1]]
		if !ok {
			return nil, false
		}
		switch parts[2] {
		case "output":
			if len(parts) == 3 {
				return sr.Output, true
			}
			m, ok := sr.Output.(map[string]any)
			if !ok {
				return nil, false
			}
			return walk(m, parts[3:])
		case "metadata":
			if len(parts) == 3 {
				return sr.Metadata, true
			}
			return walk(sr.Metadata, parts[3:])
		}
	}
	return nil, false
}

// walk descends nested string-keyed maps along the remaining path segments.
func walk(m map[string]any, path []string) (any, bool) {
	var current any = m
	for _, seg := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// interpolate substitutes every placeholder in text with the stringified
// context value. Unresolvable paths interpolate to the empty string and
// never raise.
func (c *execContext) interpolate(text string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		v, ok := c.lookup(path)
		if !ok {
			return ""
		}
		return stringify(v)
	})
}

// resolveValue resolves one step input value. The three closed forms:
// a {from, path} reference map (resolved to the raw context value), a
// template string (interpolated to a string), or a literal passed through.
func (c *execContext) resolveValue(v any) any {
	switch val := v.(type) {
	case string:
		if strings.Contains(val, "{{") {
			return c.interpolate(val)
		}
		return val
	case map[string]any:
		from, hasFrom := val["from"].(string)
		if !hasFrom {
			return val
		}
		path, _ := val["path"].(string)
		return c.resolveReference(from, path)
	default:
		return v
	}
}

// resolveReference resolves a structured reference. from is either "input"
// or a step id; the raw value is returned so structure survives. A miss
// resolves to nil.
func (c *execContext) resolveReference(from, path string) any {
	full := from
	if from != "input" {
		full = "steps." + from + ".output"
	}
	if path != "" {
		full += "." + path
	}
	v, ok := c.lookup(full)
	if !ok {
		return nil
	}
	return v
}

// resolveInputs resolves a whole step input map.
func (c *execContext) resolveInputs(inputs map[string]any) map[string]any {
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = c.resolveValue(v)
	}
	return out
}

// resolveOutputs interpolates the definition's output map against the final
// context. Outputs are always strings; non-string values are stringified.
func (c *execContext) resolveOutputs(outputs map[string]any) map[string]string {
	result := make(map[string]string, len(outputs))
	for k, v := range outputs {
		result[k] = stringify(c.resolveValue(v))
	}
	return result
}

// stringify renders a context value for template output: strings pass
// through, composites JSON encode, scalars format with %v, nil becomes "".
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case map[string]any, []any:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprintf("%v", s)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", s)
	}
}
