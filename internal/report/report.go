// Package report turns execution results into text for terminals and chats.
package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/plan"
)

// Empty is shown where there is no value.
const Empty = "∅"

const (
	glyphOK         = "✓"
	glyphUnresolved = "?"
	glyphFailed     = "✗"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	failStyle  = lipgloss.NewStyle().Foreground(colorRed)
	indexStyle = lipgloss.NewStyle().Foreground(colorDim).Width(4).Align(lipgloss.Right)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// FormatValue prints v the way a person would write it: whole numbers
// without a decimal point and no value as ∅.
func FormatValue(v plan.Argument) string {
	switch x := v.(type) {
	case nil:
		return Empty
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case string:
		if x == "" {
			return Empty
		}
		return x
	case bool:
		return strconv.FormatBool(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// FormatCall prints a step as Operation(arg, arg).
func FormatCall(s plan.Step) string {
	args := make([]string, len(s.Arguments))
	for i, a := range s.Arguments {
		if str, ok := a.(string); ok {
			args[i] = strconv.Quote(str)
			continue
		}
		args[i] = FormatValue(a)
	}
	return s.Operation + "(" + strings.Join(args, ", ") + ")"
}

// Plain renders a result without styling, for chat replies.
func Plain(p *plan.Plan, res *engine.Result) string {
	var b strings.Builder
	if p != nil && p.Explanation != "" {
		fmt.Fprintf(&b, "Plan: %s\n", p.Explanation)
	}
	for _, o := range res.Outcomes {
		fmt.Fprintf(&b, "%d. %s", o.Index+1, FormatCall(o.Step))
		switch o.Status {
		case engine.StatusOK:
			fmt.Fprintf(&b, " = %s", FormatValue(o.Value))
		case engine.StatusUnresolved:
			fmt.Fprintf(&b, " %s unresolved: %s", glyphUnresolved, o.Detail)
		default:
			fmt.Fprintf(&b, " %s failed: %s", glyphFailed, o.Detail)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Result: %s (%s)", FormatValue(res.FinalValue), res.Status)
	if res.Status == engine.Partial {
		fmt.Fprintf(&b, ", %d of %d steps did not succeed", len(res.Failed()), len(res.Outcomes))
	}
	return b.String()
}

// Render renders a result for a terminal.
func Render(p *plan.Plan, res *engine.Result) string {
	var b strings.Builder
	if p != nil && p.Explanation != "" {
		b.WriteString(titleStyle.Render(p.Explanation))
		b.WriteString("\n\n")
	}

	for _, o := range res.Outcomes {
		b.WriteString(indexStyle.Render(strconv.Itoa(o.Index+1) + "."))
		b.WriteString(" ")
		switch o.Status {
		case engine.StatusOK:
			b.WriteString(okStyle.Render(glyphOK))
			b.WriteString(" " + FormatCall(o.Step) + " " + dimStyle.Render("=") + " " + FormatValue(o.Value))
		case engine.StatusUnresolved:
			b.WriteString(warnStyle.Render(glyphUnresolved))
			b.WriteString(" " + FormatCall(o.Step) + " " + warnStyle.Render(o.Detail))
		default:
			b.WriteString(failStyle.Render(glyphFailed))
			b.WriteString(" " + FormatCall(o.Step) + " " + failStyle.Render(o.Detail))
		}
		if o.Step.Rationale != "" {
			b.WriteString("\n     " + dimStyle.Render(o.Step.Rationale))
		}
		b.WriteString("\n")
	}

	status := okStyle.Render(string(res.Status))
	if res.Status == engine.Partial {
		status = warnStyle.Render(fmt.Sprintf("%s: %d of %d steps did not succeed", res.Status, len(res.Failed()), len(res.Outcomes)))
	}
	summary := fmt.Sprintf("Result %s\n%s", titleStyle.Render(FormatValue(res.FinalValue)), status)
	b.WriteString(summaryStyle.Render(summary))
	return b.String()
}
