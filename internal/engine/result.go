package engine

import (
	"encoding/json"

	"github.com/rahul/stepwise/internal/plan"
)

// StepStatus classifies how one step ended.
type StepStatus string

const (
	StatusOK         StepStatus = "ok"
	StatusUnresolved StepStatus = "unresolved_operation"
	StatusFailed     StepStatus = "operation_failed"
)

// RunStatus summarises a whole execution.
type RunStatus string

const (
	// Completed means every step returned a value.
	Completed RunStatus = "completed"
	// Partial means at least one step was unresolved or failed; the
	// remaining steps still ran.
	Partial RunStatus = "partial"
)

// Outcome is the trace entry for one step.
type Outcome struct {
	Index  int           `json:"index"`
	Step   plan.Step     `json:"step"`
	Status StepStatus    `json:"status"`
	Value  plan.Argument `json:"value"`
	Detail string        `json:"detail,omitempty"`
}

// OK reports whether the step produced a value.
func (o Outcome) OK() bool { return o.Status == StatusOK }

// MarshalJSON writes a non-finite Value such as Multiply(1e308, 10) as
// "+Inf" instead of failing.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type wire Outcome
	w := wire(o)
	w.Value = plan.Encodable(w.Value)
	return json.Marshal(w)
}

// Result is the full output of one execution. FinalValue is nil when no
// step succeeded; use Final to tell that apart from an operation that
// legitimately returned nil.
type Result struct {
	Status     RunStatus     `json:"status"`
	FinalValue plan.Argument `json:"final_value"`
	Outcomes   []Outcome     `json:"outcomes"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	type wire Result
	w := wire(r)
	w.FinalValue = plan.Encodable(w.FinalValue)
	return json.Marshal(w)
}

// Final returns the running value left by the last successful step.
func (r *Result) Final() (plan.Argument, bool) {
	for i := len(r.Outcomes) - 1; i >= 0; i-- {
		if r.Outcomes[i].OK() {
			return r.Outcomes[i].Value, true
		}
	}
	return nil, false
}

// Failed returns the outcomes that were not ok, in plan order.
func (r *Result) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Count returns how many outcomes have the given status.
func (r *Result) Count(status StepStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
