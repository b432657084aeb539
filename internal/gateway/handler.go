package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/stepwise/internal/report"
	"github.com/rahul/stepwise/internal/runner"
)

const historyLimit = 5

// RunnerHandler plans and executes every message through a Runner and
// replies with the plain-text report. A few slash commands are answered
// without planning.
type RunnerHandler struct {
	Runner *runner.Runner
}

func NewRunnerHandler(r *runner.Runner) *RunnerHandler {
	return &RunnerHandler{Runner: r}
}

func (h *RunnerHandler) Handle(ctx context.Context, chatID, text string) (string, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return "", nil
	case text == "/start" || text == "/help":
		return "Send me instructions like \"divide by ten, the sum of 20 and 30\". " +
			"I plan them as operation calls and run them.\n/operations lists what I can do.\n/history shows your last runs.", nil
	case text == "/operations":
		return h.operations(), nil
	case text == "/history":
		return h.history(chatID)
	}

	run, err := h.Runner.Ask(ctx, chatID, text)
	if err != nil {
		return "", err
	}
	return report.Plain(run.Plan, run.Result), nil
}

func (h *RunnerHandler) operations() string {
	if h.Runner.Registry == nil || h.Runner.Registry.Len() == 0 {
		return "No operations are registered."
	}
	var b strings.Builder
	b.WriteString("Operations:")
	for _, d := range h.Runner.Registry.Catalog() {
		fmt.Fprintf(&b, "\n- %s: %s", d.Name, d.Description)
	}
	return b.String()
}

func (h *RunnerHandler) history(chatID string) (string, error) {
	if h.Runner.Store == nil {
		return "History is not enabled.", nil
	}
	runs, err := h.Runner.Store.ListRuns(chatID, historyLimit)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "No runs yet.", nil
	}
	var b strings.Builder
	b.WriteString("Last runs:")
	for _, r := range runs {
		fmt.Fprintf(&b, "\n%s %s = %s (%s)", r.CreatedAt.Format("Jan 2 15:04"), r.Instructions,
			report.FormatValue(r.Result.FinalValue), r.Result.Status)
	}
	return b.String(), nil
}
