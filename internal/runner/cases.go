package runner

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/plan"
	"github.com/rahul/stepwise/internal/store"
	"gopkg.in/yaml.v3"
)

// Case is a named instruction with the final value it should produce.
type Case struct {
	Name         string `yaml:"name" json:"name"`
	Instructions string `yaml:"instructions" json:"instructions"`
	Expected     any    `yaml:"expected" json:"expected"`
}

type CaseReport struct {
	Case   Case
	Run    *store.Run
	Actual plan.Argument
	Passed bool
	Err    error
}

// DefaultCases are the two worked examples the planner is expected to get
// right.
func DefaultCases() []Case {
	return []Case{
		{Name: "Test input 1", Instructions: "divide by ten, the sum of 20 and 30", Expected: 5.0},
		{Name: "Test input 2", Instructions: "add 20 and 30, divide it by the sum of two and three", Expected: 10.0},
	}
}

// LoadCases reads a YAML list of cases.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", path, err)
	}
	for i, c := range cases {
		if c.Instructions == "" {
			return nil, fmt.Errorf("case %d (%s) has no instructions", i, c.Name)
		}
		if cases[i].Name == "" {
			cases[i].Name = fmt.Sprintf("case %d", i+1)
		}
	}
	return cases, nil
}

// RunCases asks for every case in order and compares the final value with
// the expected one. A failed case never stops the ones after it.
func (r *Runner) RunCases(ctx context.Context, cases []Case) []CaseReport {
	reports := make([]CaseReport, 0, len(cases))
	for _, c := range cases {
		rep := CaseReport{Case: c}
		run, err := r.Ask(ctx, "", c.Instructions)
		rep.Run = run
		if err != nil {
			rep.Err = err
			reports = append(reports, rep)
			continue
		}
		rep.Actual, rep.Passed = compare(run.Result, c.Expected)
		reports = append(reports, rep)
	}
	return reports
}

func compare(res *engine.Result, expected any) (plan.Argument, bool) {
	actual, ok := res.Final()
	if !ok {
		return nil, expected == nil
	}
	want := plan.NormalizeArgument(expected)
	if a, ok := actual.(float64); ok {
		if w, ok := want.(float64); ok {
			return actual, a == w
		}
	}
	return actual, reflect.DeepEqual(actual, want)
}
