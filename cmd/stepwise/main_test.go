package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/governance"
	"github.com/rahul/stepwise/internal/plan"
	"github.com/rahul/stepwise/internal/runner"
	"github.com/rahul/stepwise/internal/store"
	"github.com/rahul/stepwise/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		jsonOutput = false
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STEPWISE_DB", "")
	cfgPath := writeFile(t, dir, "config.json", `{"store": {"path": "runs.db"}}`)
	planPath := writeFile(t, dir, "plan.yaml", `
explanation: divide by ten, the sum of 20 and 30
steps:
  - operation: Sum
    arguments: [20, 30]
  - operation: Divide
    arguments: [50, 10]
`)

	out, err := execute(t, "run", planPath, "--config", cfgPath, "--json")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	var run store.Run
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("output is not a run: %v\n%s", err, out)
	}
	if run.Result.Status != engine.Completed || run.Result.FinalValue != 5.0 {
		t.Errorf("Unexpected result %+v", run.Result)
	}

	s, err := store.NewRunStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.GetRun(run.ID); err != nil {
		t.Errorf("run was not stored: %v", err)
	}
}

func TestRunCommand_MalformedPlan(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	planPath := writeFile(t, dir, "plan.json", `{"steps": [{"operation": "", "arguments": []}]}`)

	_, err := execute(t, "run", planPath, "--config", filepath.Join(dir, "missing.json"))
	if !errors.Is(err, plan.ErrMalformedPlan) {
		t.Errorf("Expected ErrMalformedPlan, got %v", err)
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"steps"`) || !strings.Contains(out, `"operation"`) {
		t.Errorf("Unexpected schema output %s", out)
	}
}

func TestOperationsCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STEPWISE_WEB", "")

	out, err := execute(t, "operations", "--config", filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Divide", "Multiply", "Subtract", "Sum"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected %s in %s", name, out)
		}
	}
	if strings.Contains(out, "Search") {
		t.Error("Web operations should be off by default")
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := config.Default()
	registry, closeOps := buildRegistry(cfg)
	defer closeOps()
	if registry.Len() != 4 {
		t.Errorf("Expected only arithmetic, got %v", registry.Names())
	}

	cfg.Operations.Web = true
	registry, closeOps = buildRegistry(cfg)
	defer closeOps()
	if _, ok := registry.Resolve("Fetch"); !ok {
		t.Error("Expected Fetch when web operations are on")
	}
}

func TestBuildPolicy(t *testing.T) {
	policy, err := buildPolicy(config.PolicyConfig{})
	if err != nil || policy != nil {
		t.Errorf("Expected no policy for an empty config, got %v, %v", policy, err)
	}

	policy, err = buildPolicy(config.PolicyConfig{
		DenyOperations: []string{"Multiply"},
		DenyWhen:       []string{"operation == 'Divide' && args[1] == 0"},
	})
	if err != nil {
		t.Fatal(err)
	}
	res, _ := policy.Evaluate(context.Background(), governance.Request{Operation: "Divide", Arguments: []any{1.0, 0.0}})
	if res.Effect != governance.EffectDeny {
		t.Errorf("Expected the condition to deny, got %+v", res)
	}

	if _, err := buildPolicy(config.PolicyConfig{DenyArguments: []string{"("}}); err == nil {
		t.Error("Expected an error for a bad pattern")
	}
	if _, err := buildPolicy(config.PolicyConfig{DenyWhen: []string{"operation +"}}); err == nil {
		t.Error("Expected an error for a bad condition")
	}
}

func TestNewModel_NoProvider(t *testing.T) {
	if _, err := newModel(config.Default()); !errors.Is(err, errNoProvider) {
		t.Errorf("Expected errNoProvider, got %v", err)
	}
}

func TestPrintCaseReports(t *testing.T) {
	p := plan.New("", plan.Call("Sum", 2, 3))
	res := &engine.Result{
		Status:     engine.Completed,
		FinalValue: 5.0,
		Outcomes:   []engine.Outcome{{Step: p.Steps[0], Status: engine.StatusOK, Value: 5.0}},
	}
	run := &store.Run{Plan: p, Result: res}

	var out bytes.Buffer
	failed := printCaseReports(&out, []runner.CaseReport{
		{Case: runner.Case{Name: "ok", Expected: 5.0}, Run: run, Actual: 5.0, Passed: true},
		{Case: runner.Case{Name: "wrong", Expected: 6.0}, Run: run, Actual: 5.0},
		{Case: runner.Case{Name: "broken"}, Err: errors.New("no plan")},
	})
	if failed != 2 {
		t.Errorf("Expected 2 failures, got %d", failed)
	}
	for _, part := range []string{"=== ok ===", "✓ passed", "✗ expected 6, got 5", "✗ no plan"} {
		if !strings.Contains(out.String(), part) {
			t.Errorf("Expected %q in:\n%s", part, out.String())
		}
	}
}
