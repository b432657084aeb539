// Package engine runs a plan against a set of operations. It never decides
// what to run: every step is dispatched literally and in order, and
// per-step problems are captured in the result instead of being returned.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahul/stepwise/internal/operations"
	"github.com/rahul/stepwise/internal/plan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rahul/stepwise/internal/engine"

// ErrOperationPanicked wraps a panic raised inside an operation.
var ErrOperationPanicked = errors.New("operation panicked")

// Resolver finds the operation registered under a name.
type Resolver interface {
	Resolve(name string) (operations.Operation, bool)
}

// Recorder observes outcomes as they are produced. It must not retain or
// modify the outcome's argument slice.
type Recorder interface {
	RecordOutcome(ctx context.Context, o Outcome)
}

// Engine holds the optional observers of an execution. The zero value is
// ready to use and holds no per-run state.
type Engine struct {
	Recorder Recorder
	Tracer   trace.Tracer
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.Recorder = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.Tracer = t }
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs p against r with a default engine.
func Execute(ctx context.Context, p *plan.Plan, r Resolver) (*Result, error) {
	return (&Engine{}).Execute(ctx, p, r)
}

// Execute runs every step of p in order. The only error it returns is a
// malformed plan, detected before any step runs. A nil resolver resolves
// nothing.
func (e *Engine) Execute(ctx context.Context, p *plan.Plan, r Resolver) (*Result, error) {
	if err := check(p); err != nil {
		return nil, err
	}

	ctx, span := e.startPlanSpan(ctx, p)

	res := &Result{Outcomes: make([]Outcome, 0, len(p.Steps))}
	for i, step := range p.Steps {
		o := e.runStep(ctx, i, step, r)
		if o.OK() {
			res.FinalValue = o.Value
		}
		res.Outcomes = append(res.Outcomes, o)
		if e.Recorder != nil {
			e.Recorder.RecordOutcome(ctx, o)
		}
	}

	res.Status = Completed
	for _, o := range res.Outcomes {
		if !o.OK() {
			res.Status = Partial
			break
		}
	}

	endPlanSpan(span, res)
	return res, nil
}

func check(p *plan.Plan) error {
	if p == nil {
		return &plan.MalformedPlanError{Reason: "plan is nil"}
	}
	for i, s := range p.Steps {
		if s.Operation == "" {
			return &plan.MalformedPlanError{Path: fmt.Sprintf("steps[%d].operation", i), Reason: "must not be empty"}
		}
	}
	return nil
}

func (e *Engine) runStep(ctx context.Context, i int, step plan.Step, r Resolver) Outcome {
	// Operations get their own deep copy so the plan stays untouched
	// between runs, nested lists and maps included.
	step.Arguments = copyArguments(step.Arguments)
	o := Outcome{Index: i, Step: step}

	ctx, span := e.startStepSpan(ctx, i, step)
	defer func() { endStepSpan(span, o) }()

	var op operations.Operation
	ok := false
	if r != nil {
		op, ok = r.Resolve(step.Operation)
	}
	if !ok || op == nil {
		o.Status = StatusUnresolved
		o.Detail = fmt.Sprintf("operation %q is not registered", step.Operation)
		return o
	}

	v, err := invoke(withStep(ctx, i, step), op, copyArguments(step.Arguments))
	if err != nil {
		o.Status = StatusFailed
		o.Detail = err.Error()
		return o
	}
	o.Status = StatusOK
	o.Value = v
	return o
}

func copyArguments(args []plan.Argument) []plan.Argument {
	if args == nil {
		return nil
	}
	return plan.NormalizeArgument(args).([]plan.Argument)
}

func invoke(ctx context.Context, op operations.Operation, args []plan.Argument) (v plan.Argument, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = fmt.Errorf("%w: %s: %v", ErrOperationPanicked, op.Name(), rec)
		}
	}()
	return op.Invoke(ctx, args)
}

type stepKey struct{}

type stepValue struct {
	index int
	step  plan.Step
}

func withStep(ctx context.Context, i int, step plan.Step) context.Context {
	return context.WithValue(ctx, stepKey{}, stepValue{index: i, step: step})
}

// StepFromContext returns the step being executed when called from inside
// an operation.
func StepFromContext(ctx context.Context) (int, plan.Step, bool) {
	v, ok := ctx.Value(stepKey{}).(stepValue)
	return v.index, v.step, ok
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return otel.Tracer(tracerName)
}
