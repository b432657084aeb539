package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes one operation call about to be made.
type Request struct {
	Operation string
	Arguments []any
	Rationale string
	ChatID    string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates operation calls against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

type condition struct {
	source  string
	program *vm.Program
}

// DefaultPolicyEngine denies by operation name, by a regular expression
// over the formatted arguments, or by an expr condition. Everything else
// is allowed.
type DefaultPolicyEngine struct {
	mu              sync.RWMutex
	DeniedOperation map[string]bool
	DeniedRegex     []*regexp.Regexp
	conditions      []condition
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedOperation: make(map[string]bool),
		DeniedRegex:     make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyOperation(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.DeniedOperation[name] = true
}

func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

// DenyWhen adds a boolean expr condition. The environment exposes
// operation (string), args (list) and rationale (string), e.g.
//
//	operation == "Divide" && args[1] < 0
func (e *DefaultPolicyEngine) DenyWhen(source string) error {
	program, err := expr.Compile(source, expr.Env(env(Request{})), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile condition %q: %w", source, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conditions = append(e.conditions, condition{source: source, program: program})
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.DeniedOperation[req.Operation] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Operation '%s' is restricted by system policy", req.Operation),
		}, nil
	}

	args := FormatArguments(req.Arguments)
	for _, re := range e.DeniedRegex {
		if re.MatchString(args) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	for _, c := range e.conditions {
		out, err := expr.Run(c.program, env(req))
		if err != nil {
			return Result{}, fmt.Errorf("eval condition %q: %w", c.source, err)
		}
		if deny, _ := out.(bool); deny {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Call matches restricted condition: %s", c.source),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

func env(req Request) map[string]any {
	args := req.Arguments
	if args == nil {
		args = []any{}
	}
	return map[string]any{
		"operation": req.Operation,
		"args":      args,
		"rationale": req.Rationale,
	}
}

// FormatArguments renders arguments the way they appear in logs:
// comma separated inside parentheses.
func FormatArguments(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
