package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/plan"
)

var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type RunStore struct {
	DB *sql.DB
}

func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			chat_id TEXT,
			instructions TEXT,
			plan_json TEXT NOT NULL,
			result_json TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_chat_created ON runs (chat_id, created_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("init run store: %w", err)
		}
	}

	return &RunStore{DB: db}, nil
}

func (s *RunStore) Close() error {
	return s.DB.Close()
}

func (s *RunStore) SaveRun(run *Run) error {
	if run.ID == "" {
		return errors.New("run has no id")
	}
	if run.Plan == nil || run.Result == nil {
		return fmt.Errorf("run %s is missing its plan or result", run.ID)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	planJSON, err := json.Marshal(run.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	query := `INSERT INTO runs (id, chat_id, instructions, plan_json, result_json, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.DB.Exec(query, run.ID, run.ChatID, run.Instructions, string(planJSON), string(resultJSON),
		string(run.Result.Status), run.CreatedAt.UTC().Format(timeLayout))
	return err
}

func (s *RunStore) GetRun(id string) (*Run, error) {
	query := `SELECT id, chat_id, instructions, plan_json, result_json, created_at FROM runs WHERE id = ?`
	run, err := scanRun(s.DB.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns the newest runs first. An empty chatID lists runs from
// every chat.
func (s *RunStore) ListRuns(chatID string, limit int) ([]*Run, error) {
	query := `SELECT id, chat_id, instructions, plan_json, result_json, created_at FROM runs
		WHERE (? = '' OR chat_id = ?) ORDER BY created_at DESC LIMIT ?`
	rows, err := s.DB.Query(query, chatID, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                  Run
		planJSON, resultJSON string
		createdAt            string
	)
	if err := row.Scan(&run.ID, &run.ChatID, &run.Instructions, &planJSON, &resultJSON, &createdAt); err != nil {
		return nil, err
	}

	p, err := plan.Parse([]byte(planJSON), plan.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("decode plan of run %s: %w", run.ID, err)
	}
	var res engine.Result
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return nil, fmt.Errorf("decode result of run %s: %w", run.ID, err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("decode timestamp of run %s: %w", run.ID, err)
	}

	run.Plan = p
	run.Result = &res
	run.CreatedAt = t
	return &run, nil
}
