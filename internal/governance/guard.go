package governance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/operations"
	"github.com/rahul/stepwise/internal/plan"
)

// ErrDenied is returned by a guarded operation the policy refused.
var ErrDenied = errors.New("denied by policy")

// Observer is told about every policy decision a guard makes.
type Observer func(ctx context.Context, req Request, res Result)

// Guard wraps a resolver so that every resolved operation is checked
// against the policy before it runs. Names the inner resolver does not
// know stay unresolved.
func Guard(inner engine.Resolver, policy PolicyEngine, chatID string, observe Observer) engine.Resolver {
	if policy == nil {
		return inner
	}
	return &guard{inner: inner, policy: policy, chatID: chatID, observe: observe}
}

type guard struct {
	inner   engine.Resolver
	policy  PolicyEngine
	chatID  string
	observe Observer
}

func (g *guard) Resolve(name string) (operations.Operation, bool) {
	if g.inner == nil {
		return nil, false
	}
	op, ok := g.inner.Resolve(name)
	if !ok {
		return nil, false
	}
	return &guarded{Operation: op, g: g}, true
}

type guarded struct {
	operations.Operation
	g *guard
}

func (o *guarded) Invoke(ctx context.Context, args []plan.Argument) (plan.Argument, error) {
	req := Request{Operation: o.Name(), Arguments: args, ChatID: o.g.chatID}
	if _, step, ok := engine.StepFromContext(ctx); ok {
		req.Rationale = step.Rationale
	}
	res, err := o.g.policy.Evaluate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("policy check: %w", err)
	}
	if o.g.observe != nil {
		o.g.observe(ctx, req, res)
	}
	if res.Effect == EffectDeny {
		return nil, fmt.Errorf("%w: %s", ErrDenied, res.Reason)
	}
	return o.Operation.Invoke(ctx, args)
}
