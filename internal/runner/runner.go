// Package runner ties planning, policy, execution and persistence into the
// single pipeline every front-end uses.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/governance"
	"github.com/rahul/stepwise/internal/observability"
	"github.com/rahul/stepwise/internal/operations"
	"github.com/rahul/stepwise/internal/plan"
	"github.com/rahul/stepwise/internal/planner"
	"github.com/rahul/stepwise/internal/store"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoPlanner is returned by Ask when the runner was built without one.
var ErrNoPlanner = errors.New("no planner configured")

type Runner struct {
	Planner  planner.Planner
	Registry *operations.Registry
	Policy   governance.PolicyEngine
	Store    *store.RunStore
	Logger   *observability.Logger
	Tracer   trace.Tracer
}

// Ask plans instructions and executes the result. A planner failure is
// returned as an error; problems with individual steps are reported in the
// run's Result.
func (r *Runner) Ask(ctx context.Context, chatID, instructions string) (*store.Run, error) {
	if r.Planner == nil {
		return nil, ErrNoPlanner
	}
	runID := uuid.NewString()

	observability.SetStatus(observability.PhasePlanning, runID)
	defer observability.SetStatus(observability.PhaseIdle, "")

	var catalog []operations.Descriptor
	if r.Registry != nil {
		catalog = r.Registry.Catalog()
	}
	ctx = withRun(ctx, chatID, runID)
	p, err := r.Planner.Plan(ctx, instructions, catalog)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	return r.execute(ctx, runID, chatID, instructions, p)
}

// Execute runs an already built plan. The run has no instructions; the
// plan keeps its own explanation.
func (r *Runner) Execute(ctx context.Context, chatID string, p *plan.Plan) (*store.Run, error) {
	runID := uuid.NewString()
	defer observability.SetStatus(observability.PhaseIdle, "")
	return r.execute(ctx, runID, chatID, "", p)
}

// LogExchange records a planner round trip against the run that asked for
// it. Assign it to planner.LLMPlanner.Observe.
func (r *Runner) LogExchange(ctx context.Context, e planner.Exchange) {
	chatID, runID := RunFromContext(ctx)
	r.Logger.LogLLM(chatID, runID, e.Messages, e.Response, e.ToolCalls)
}

type runKey struct{}

type runValue struct {
	chatID string
	runID  string
}

func withRun(ctx context.Context, chatID, runID string) context.Context {
	return context.WithValue(ctx, runKey{}, runValue{chatID: chatID, runID: runID})
}

// RunFromContext returns the chat and run a planning call belongs to.
func RunFromContext(ctx context.Context) (chatID, runID string) {
	v, _ := ctx.Value(runKey{}).(runValue)
	return v.chatID, v.runID
}

func (r *Runner) execute(ctx context.Context, runID, chatID, instructions string, p *plan.Plan) (*store.Run, error) {
	observability.SetStatus(observability.PhaseExecuting, runID)
	if p != nil {
		r.Logger.LogPlan(chatID, runID, instructions, p)
	}

	var resolver engine.Resolver = r.Registry
	if r.Registry == nil {
		resolver = nil
	}
	if r.Policy != nil {
		resolver = governance.Guard(resolver, r.Policy, chatID, r.Logger.PolicyObserver(runID))
	}

	eng := engine.New(
		engine.WithRecorder(r.Logger.Recorder(chatID, runID)),
		engine.WithTracer(r.Tracer),
	)
	res, err := eng.Execute(ctx, p, resolver)
	if err != nil {
		return nil, err
	}
	r.Logger.LogRun(chatID, runID, res)

	run := &store.Run{
		ID:           runID,
		ChatID:       chatID,
		Instructions: instructions,
		Plan:         p,
		Result:       res,
		CreatedAt:    time.Now(),
	}
	if r.Store != nil {
		if err := r.Store.SaveRun(run); err != nil {
			return run, fmt.Errorf("save run %s: %w", runID, err)
		}
	}
	return run, nil
}
