package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/plan"
	"github.com/rahul/stepwise/internal/report"
	"github.com/rahul/stepwise/internal/runner"
	"github.com/rahul/stepwise/internal/store"
	"github.com/spf13/cobra"
)

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run [plan.json|plan.yaml]",
	Short: "Execute a plan file without consulting a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}

	a, err := setup(setupOptions{store: true})
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runner.Execute(cmd.Context(), "", p)
	if err != nil {
		return err
	}
	logger.Debug("run finished", "run", run.ID, "status", run.Result.Status)
	return printRun(cmd.OutOrStdout(), run)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask [instructions...]",
	Short: "Plan instructions with the configured model, then execute the plan",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{planner: true, store: true})
	if err != nil {
		return err
	}
	defer a.Close()

	instructions := strings.Join(args, " ")
	logger.Info("planning", "instructions", instructions, "operations", a.runner.Registry.Len())

	run, err := a.runner.Ask(cmd.Context(), "", instructions)
	if err != nil {
		return err
	}
	return printRun(cmd.OutOrStdout(), run)
}

func printRun(w io.Writer, run *store.Run) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	fmt.Fprintln(w, report.Render(run.Plan, run.Result))
	if run.Result.Status == engine.Partial {
		logger.Warn("plan did not run cleanly", "run", run.ID, "failed_steps", len(run.Result.Failed()))
	}
	return nil
}

// --- verify ---

var verifyCmd = &cobra.Command{
	Use:   "verify [cases.yaml]",
	Short: "Ask for every test case and compare the final value with the expected one",
	Long:  "Runs the built-in cases when no file is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cases := runner.DefaultCases()
	if len(args) == 1 {
		loaded, err := runner.LoadCases(args[0])
		if err != nil {
			return err
		}
		cases = loaded
	}

	a, err := setup(setupOptions{planner: true})
	if err != nil {
		return err
	}
	defer a.Close()

	reports := a.runner.RunCases(cmd.Context(), cases)
	failed := printCaseReports(cmd.OutOrStdout(), reports)
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(reports))
	}
	return nil
}

func printCaseReports(w io.Writer, reports []runner.CaseReport) int {
	failed := 0
	for _, rep := range reports {
		fmt.Fprintf(w, "\n=== %s ===\n%s\n", rep.Case.Name, rep.Case.Instructions)
		if rep.Err != nil {
			failed++
			fmt.Fprintf(w, "✗ %v\n", rep.Err)
			continue
		}
		fmt.Fprintln(w, report.Plain(rep.Run.Plan, rep.Run.Result))
		if rep.Passed {
			fmt.Fprintln(w, "✓ passed")
		} else {
			failed++
			fmt.Fprintf(w, "✗ expected %s, got %s\n", report.FormatValue(rep.Case.Expected), report.FormatValue(rep.Actual))
		}
	}
	return failed
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for plan files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := plan.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

// --- history ---

var (
	historyLimit int
	historyChat  string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent runs, or show one run in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{store: true})
	if err != nil {
		return err
	}
	defer a.Close()
	s := a.runner.Store
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := s.GetRun(args[0])
		if err != nil {
			return err
		}
		return printRun(w, run)
	}

	runs, err := s.ListRuns(historyChat, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs yet.")
		return nil
	}
	for _, r := range runs {
		label := r.Instructions
		if label == "" {
			label = fmt.Sprintf("%d steps", len(r.Plan.Steps))
		}
		fmt.Fprintf(w, "%s  %s  %-9s %-8s %s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Result.Status, report.FormatValue(r.Result.FinalValue), label)
	}
	return nil
}

// --- operations ---

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the operations plans may call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(setupOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, d := range a.runner.Registry.Catalog() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", d.Name, d.Description)
		}
		return nil
	},
}
