package plan

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPlan marks a plan whose structure cannot be executed.
var ErrMalformedPlan = errors.New("malformed plan")

// MalformedPlanError locates a structural problem in a plan document.
type MalformedPlanError struct {
	Path   string
	Reason string
}

func (e *MalformedPlanError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed plan: %s", e.Reason)
	}
	return fmt.Sprintf("malformed plan: %s: %s", e.Path, e.Reason)
}

func (e *MalformedPlanError) Unwrap() error { return ErrMalformedPlan }

func malformed(path, format string, args ...any) error {
	return &MalformedPlanError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// FromMap builds a Plan from its decoded representation, as produced by
// json.Unmarshal or yaml.Unmarshal into a generic tree. "steps" must be
// present (it may be empty) and every step needs a non-empty "operation"
// and an "arguments" list. Arity is not checked here.
func FromMap(doc map[string]any) (*Plan, error) {
	if doc == nil {
		return nil, malformed("", "document is empty")
	}

	p := &Plan{}
	if raw, ok := doc["explanation"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, malformed("explanation", "expected string, got %T", raw)
		}
		p.Explanation = s
	}

	raw, ok := doc["steps"]
	if !ok || raw == nil {
		return nil, malformed("steps", "field is missing")
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, malformed("steps", "expected list, got %T", raw)
	}

	p.Steps = make([]Step, 0, len(items))
	for i, item := range items {
		step, err := stepFromMap(i, item)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func stepFromMap(i int, item any) (Step, error) {
	path := fmt.Sprintf("steps[%d]", i)
	m, ok := asStringMap(item)
	if !ok {
		return Step{}, malformed(path, "expected object, got %T", item)
	}

	op, ok := m["operation"]
	if !ok || op == nil {
		return Step{}, malformed(path+".operation", "field is missing")
	}
	name, ok := op.(string)
	if !ok {
		return Step{}, malformed(path+".operation", "expected string, got %T", op)
	}
	if name == "" {
		return Step{}, malformed(path+".operation", "must not be empty")
	}

	rawArgs, ok := m["arguments"]
	if !ok || rawArgs == nil {
		return Step{}, malformed(path+".arguments", "field is missing")
	}
	list, ok := rawArgs.([]any)
	if !ok {
		return Step{}, malformed(path+".arguments", "expected list, got %T", rawArgs)
	}
	args := make([]Argument, 0, len(list))
	for _, a := range list {
		args = append(args, NormalizeArgument(a))
	}

	step := Step{Operation: name, Arguments: args}
	if r, ok := m["rationale"]; ok && r != nil {
		s, ok := r.(string)
		if !ok {
			return Step{}, malformed(path+".rationale", "expected string, got %T", r)
		}
		step.Rationale = s
	}
	return step, nil
}

// NormalizeArgument folds every numeric kind into float64 so that values
// decoded from JSON, YAML or built in Go compare and compute alike.
func NormalizeArgument(v any) any {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = NormalizeArgument(e)
		}
		return out
	case map[any]any, map[string]any:
		m, _ := asStringMap(n)
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = NormalizeArgument(e)
		}
		return out
	default:
		return v
	}
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[fmt.Sprint(k)] = e
		}
		return out, true
	default:
		return nil, false
	}
}
