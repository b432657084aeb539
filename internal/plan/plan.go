package plan

import (
	"encoding/json"
	"math"
	"reflect"
)

// Argument is one positional value handed to an operation. Numbers are
// carried as float64 once a plan has been decoded.
type Argument = any

// Step is one planned invocation.
type Step struct {
	Operation string     `json:"operation" yaml:"operation" jsonschema:"required,minLength=1"`
	Arguments []Argument `json:"arguments" yaml:"arguments" jsonschema:"required"`
	Rationale string     `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Plan is an ordered sequence of steps plus an explanation of the whole.
// Step order is execution order.
type Plan struct {
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps" jsonschema:"required"`
}

// New builds a plan from steps, normalising argument values the same way
// decoding does.
func New(explanation string, steps ...Step) *Plan {
	p := &Plan{Explanation: explanation, Steps: make([]Step, 0, len(steps))}
	for _, s := range steps {
		args := make([]Argument, 0, len(s.Arguments))
		for _, a := range s.Arguments {
			args = append(args, NormalizeArgument(a))
		}
		p.Steps = append(p.Steps, Step{Operation: s.Operation, Arguments: args, Rationale: s.Rationale})
	}
	return p
}

// Call is shorthand for a Step with no rationale.
func Call(operation string, args ...Argument) Step {
	return Step{Operation: operation, Arguments: args}
}

// Equal reports whether two plans are structurally identical.
func (p Plan) Equal(o Plan) bool {
	if p.Explanation != o.Explanation || len(p.Steps) != len(o.Steps) {
		return false
	}
	for i := range p.Steps {
		if !p.Steps[i].Equal(o.Steps[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether two steps name the same operation with the same
// arguments and rationale.
func (s Step) Equal(o Step) bool {
	if s.Operation != o.Operation || s.Rationale != o.Rationale || len(s.Arguments) != len(o.Arguments) {
		return false
	}
	for i := range s.Arguments {
		if !reflect.DeepEqual(NormalizeArgument(s.Arguments[i]), NormalizeArgument(o.Arguments[i])) {
			return false
		}
	}
	return true
}

// MarshalJSON always emits "steps" as a list, so an empty plan survives a
// round trip through the schema.
func (p Plan) MarshalJSON() ([]byte, error) {
	type wire Plan
	w := wire(p)
	if w.Steps == nil {
		w.Steps = []Step{}
	}
	return json.Marshal(w)
}

// MarshalJSON always emits "arguments" as a list. Non-finite numbers are
// written by name.
func (s Step) MarshalJSON() ([]byte, error) {
	type wire Step
	w := wire(s)
	if w.Arguments == nil {
		w.Arguments = []Argument{}
	} else {
		w.Arguments = Encodable(w.Arguments).([]Argument)
	}
	return json.Marshal(w)
}

// Encodable returns a copy of v with every non-finite float replaced by
// its name ("+Inf", "-Inf" or "NaN"), since encoding/json rejects them.
func Encodable(v Argument) Argument {
	switch n := v.(type) {
	case float64:
		switch {
		case math.IsInf(n, 1):
			return "+Inf"
		case math.IsInf(n, -1):
			return "-Inf"
		case math.IsNaN(n):
			return "NaN"
		}
		return n
	case float32:
		return Encodable(float64(n))
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = Encodable(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = Encodable(e)
		}
		return out
	default:
		return v
	}
}
