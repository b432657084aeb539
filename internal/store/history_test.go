package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/operations"
	"github.com/rahul/stepwise/internal/plan"
)

func newStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewRunStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func execute(t *testing.T, p *plan.Plan) *engine.Result {
	t.Helper()
	res, err := engine.Execute(context.Background(), p, operations.NewRegistry(operations.Arithmetic()...))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestSaveAndGetRun(t *testing.T) {
	s := newStore(t)

	p := plan.New("divide by ten, the sum of 20 and 30",
		plan.Step{Operation: "Sum", Arguments: []plan.Argument{20, 30}, Rationale: "add"},
		plan.Call("Divide", 50, 10),
		plan.Call("Foo", 1, 2),
	)
	run := &Run{
		ID:           "run-1",
		ChatID:       "42",
		Instructions: "divide by ten, the sum of 20 and 30",
		Plan:         p,
		Result:       execute(t, p),
	}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !got.Plan.Equal(*p) {
		t.Errorf("Plan changed in storage: %+v", got.Plan)
	}
	if got.Result.Status != engine.Partial || got.Result.FinalValue != 5.0 {
		t.Errorf("Unexpected stored result %+v", got.Result)
	}
	if len(got.Result.Outcomes) != 3 || got.Result.Outcomes[2].Status != engine.StatusUnresolved {
		t.Errorf("Unexpected stored outcomes %+v", got.Result.Outcomes)
	}
	if got.ChatID != "42" || got.Instructions != run.Instructions {
		t.Errorf("Unexpected metadata %+v", got)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("Expected created_at %v, got %v", run.CreatedAt, got.CreatedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newStore(t)
	if _, err := s.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveRun_Validation(t *testing.T) {
	s := newStore(t)
	if err := s.SaveRun(&Run{Plan: plan.New("")}); err == nil {
		t.Error("Expected error for missing id")
	}
	if err := s.SaveRun(&Run{ID: "x"}); err == nil {
		t.Error("Expected error for missing plan and result")
	}
}

func TestListRuns(t *testing.T) {
	s := newStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	p := plan.New("", plan.Call("Sum", 1, 2))
	res := execute(t, p)
	runs := []*Run{
		{ID: "a", ChatID: "1", Plan: p, Result: res, CreatedAt: base},
		{ID: "b", ChatID: "2", Plan: p, Result: res, CreatedAt: base.Add(time.Second)},
		{ID: "c", ChatID: "1", Plan: p, Result: res, CreatedAt: base.Add(1500 * time.Millisecond)},
	}
	for _, r := range runs {
		if err := s.SaveRun(r); err != nil {
			t.Fatal(err)
		}
	}

	chat1, err := s.ListRuns("1", 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(chat1) != 2 || chat1[0].ID != "c" || chat1[1].ID != "a" {
		t.Errorf("Expected [c a], got %v", ids(chat1))
	}

	all, err := s.ListRuns("", 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "c" || all[1].ID != "b" {
		t.Errorf("Expected [c b], got %v", ids(all))
	}
}

func ids(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
