package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rahul/stepwise/internal/governance"
	"github.com/rahul/stepwise/internal/observability"
	"github.com/rahul/stepwise/internal/operations"
	"github.com/rahul/stepwise/internal/planner"
	"github.com/rahul/stepwise/internal/runner"
	"github.com/rahul/stepwise/internal/store"
	"github.com/rahul/stepwise/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// app is everything a command needs, built from the config.
type app struct {
	cfg     *config.Config
	runner  *runner.Runner
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type setupOptions struct {
	planner bool
	store   bool
}

func setup(opts setupOptions) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	registry, closeOps := buildRegistry(cfg)
	a.closers = append(a.closers, closeOps)

	policy, err := buildPolicy(cfg.Policy)
	if err != nil {
		a.Close()
		return nil, err
	}

	var events io.Writer = io.Discard
	if verbose {
		events = os.Stderr
	}
	r := &runner.Runner{
		Registry: registry,
		Policy:   policy,
		Logger:   observability.NewLoggerTo(events, cfg.App.LLMLogPath),
	}

	if opts.store {
		s, err := store.NewRunStore(cfg.Store.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run store: %w", err)
		}
		r.Store = s
		a.closers = append(a.closers, func() { s.Close() })
	}

	if opts.planner {
		model, err := newModel(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		llm := planner.NewLLMPlanner(model, planner.NewPromptManager(cfg.App.PromptsDir))
		llm.Observe = r.LogExchange
		r.Planner = llm
	}

	a.runner = r
	return a, nil
}

// buildRegistry registers arithmetic always and the web operations when
// the config turns them on.
func buildRegistry(cfg *config.Config) (*operations.Registry, func()) {
	registry := operations.NewRegistry(operations.Arithmetic()...)
	closeOps := func() {}

	if cfg.Operations.Web {
		search, err := operations.NewSearch(cfg.Operations.SearchMaxResults)
		if err != nil {
			logger.Warn("search operation unavailable", "err", err)
		} else {
			registry.Register(search)
		}
		registry.Register(operations.NewFetch())
	}
	if cfg.Operations.Render {
		render := operations.NewRender()
		registry.Register(render)
		closeOps = render.Close
	}
	return registry, closeOps
}

func buildPolicy(cfg config.PolicyConfig) (governance.PolicyEngine, error) {
	if len(cfg.DenyOperations) == 0 && len(cfg.DenyArguments) == 0 && len(cfg.DenyWhen) == 0 {
		return nil, nil
	}
	policy := governance.NewDefaultPolicyEngine()
	for _, name := range cfg.DenyOperations {
		policy.DenyOperation(name)
	}
	for _, pattern := range cfg.DenyArguments {
		if err := policy.DenyArguments(pattern); err != nil {
			return nil, fmt.Errorf("policy deny_arguments %q: %w", pattern, err)
		}
	}
	for _, src := range cfg.DenyWhen {
		if err := policy.DenyWhen(src); err != nil {
			return nil, fmt.Errorf("policy deny_when %q: %w", src, err)
		}
	}
	return policy, nil
}

var errNoProvider = errors.New("no enabled provider found in config (set OPENAI_API_KEY or enable one in config.json)")

func newModel(cfg *config.Config) (llms.Model, error) {
	name, p := cfg.GetDefaultProvider()
	if name == "" {
		return nil, errNoProvider
	}

	switch name {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(p.APIKey),
			openai.WithModel(p.Model),
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("provider %s is not supported", name)
	}
}
