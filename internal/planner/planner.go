// Package planner asks a language model to turn instructions into a plan.
// It runs strictly before execution: the engine never calls back into it.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rahul/stepwise/internal/operations"
	"github.com/rahul/stepwise/internal/plan"
	"github.com/tmc/langchaingo/llms"
)

const proposePlan = "propose_plan"

// ErrNoPlan means the model answered without producing a plan.
var ErrNoPlan = errors.New("planner did not propose a plan")

// Planner produces a plan for instructions, given the operations the
// executor will have available.
type Planner interface {
	Plan(ctx context.Context, instructions string, catalog []operations.Descriptor) (*plan.Plan, error)
}

// Exchange is one model round trip, handed to the observer for auditing.
type Exchange struct {
	Messages  []llms.MessageContent
	Response  string
	ToolCalls []llms.ToolCall
}

// LLMPlanner asks a langchaingo model for a plan through a propose_plan
// function call.
type LLMPlanner struct {
	Model   llms.Model
	Prompts *PromptManager
	Observe func(context.Context, Exchange)
}

func NewLLMPlanner(model llms.Model, prompts *PromptManager) *LLMPlanner {
	return &LLMPlanner{Model: model, Prompts: prompts}
}

func (p *LLMPlanner) Plan(ctx context.Context, instructions string, catalog []operations.Descriptor) (*plan.Plan, error) {
	systemPrompt, err := p.Prompts.GetPlannerPrompt()
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt + "\n\n" + describe(catalog))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(instructions)},
		},
	}

	tool, err := proposePlanTool()
	if err != nil {
		return nil, err
	}

	resp, err := p.Model.GenerateContent(ctx, messages,
		llms.WithTools([]llms.Tool{tool}),
		llms.WithTemperature(0),
	)
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoPlan
	}
	choice := resp.Choices[0]

	if p.Observe != nil {
		p.Observe(ctx, Exchange{Messages: messages, Response: choice.Content, ToolCalls: choice.ToolCalls})
	}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != proposePlan {
			continue
		}
		return decode(tc.FunctionCall.Arguments)
	}

	// Some models answer with the plan as text instead of calling the tool.
	if body := extractJSON(choice.Content); body != "" {
		return decode(body)
	}
	return nil, ErrNoPlan
}

func describe(catalog []operations.Descriptor) string {
	var b strings.Builder
	b.WriteString("## Available operations\n")
	if len(catalog) == 0 {
		b.WriteString("(none)\n")
	}
	for _, d := range catalog {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	return b.String()
}

func proposePlanTool() (llms.Tool, error) {
	params, err := plan.SchemaMap()
	if err != nil {
		return llms.Tool{}, err
	}
	// Function parameters are an inline schema, not a standalone document.
	delete(params, "$schema")
	delete(params, "$id")

	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        proposePlan,
			Description: "Submit the plan: an explanation and an ordered list of operation calls with literal arguments.",
			Parameters:  params,
		},
	}, nil
}

func decode(arguments string) (*plan.Plan, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(arguments), &doc); err != nil {
		return nil, &plan.MalformedPlanError{Reason: fmt.Sprintf("failed to parse %s arguments: %v", proposePlan, err)}
	}
	return plan.FromMap(doc)
}

// extractJSON pulls a JSON object out of a reply, with or without a
// markdown code fence around it.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// StaticPlanner always returns the same plan.
type StaticPlanner struct {
	Fixed *plan.Plan
}

func (s StaticPlanner) Plan(context.Context, string, []operations.Descriptor) (*plan.Plan, error) {
	if s.Fixed == nil {
		return nil, ErrNoPlan
	}
	return s.Fixed, nil
}
