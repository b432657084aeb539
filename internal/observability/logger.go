package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/governance"
	"github.com/rahul/stepwise/internal/plan"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeRun         EventType = "run"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeLLM         EventType = "llm"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger writes one JSON object per event. LLM exchanges are also kept in
// a rotated file since they are too large for the console.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
	now        func() time.Time
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, filepath.Join("logs", "llm.jsonl"))
}

// NewLoggerTo writes events to out and LLM events to llmLogPath. An empty
// path disables the LLM file.
func NewLoggerTo(out io.Writer, llmLogPath string) *Logger {
	return &Logger{
		out:        out,
		llmLogPath: llmLogPath,
		maxSize:    10 * 1024 * 1024, // 10MB
		now:        time.Now,
	}
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = l.now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"type":%q,"error":"failed to marshal event: %v"}`, evt.Type, err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(data, '\n'))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

// rotateLogs keeps a single .old generation.
func (l *Logger) rotateLogs() {
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

func (l *Logger) LogPlan(chatID, runID, instructions string, p *plan.Plan) {
	l.Log(Event{
		Type:   EventTypePlan,
		ChatID: chatID,
		RunID:  runID,
		Data: map[string]any{
			"instructions": instructions,
			"explanation":  p.Explanation,
			"steps":        len(p.Steps),
		},
	})
}

func (l *Logger) LogStep(chatID, runID string, o engine.Outcome) {
	data := map[string]any{
		"index":     o.Index,
		"operation": o.Step.Operation,
		"arguments": plan.Encodable(o.Step.Arguments),
		"rationale": o.Step.Rationale,
		"status":    o.Status,
	}
	if o.OK() {
		data["value"] = plan.Encodable(o.Value)
	} else {
		data["detail"] = o.Detail
	}
	l.Log(Event{Type: EventTypeStep, ChatID: chatID, RunID: runID, Data: data})
}

func (l *Logger) LogRun(chatID, runID string, res *engine.Result) {
	l.Log(Event{
		Type:   EventTypeRun,
		ChatID: chatID,
		RunID:  runID,
		Data: map[string]any{
			"status":       res.Status,
			"final_value":  plan.Encodable(res.FinalValue),
			"steps":        len(res.Outcomes),
			"failed_steps": len(res.Failed()),
		},
	})
}

func (l *Logger) LogPolicyCheck(runID string, req governance.Request, res governance.Result) {
	l.Log(Event{
		Type:   EventTypePolicyCheck,
		ChatID: req.ChatID,
		RunID:  runID,
		Data: map[string]any{
			"operation": req.Operation,
			"arguments": plan.Encodable(req.Arguments),
			"effect":    res.Effect,
			"reason":    res.Reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(chatID, runID string, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type:   EventTypeLLM,
		ChatID: chatID,
		RunID:  runID,
		Data: map[string]any{
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}

// Recorder returns an engine.Recorder that logs every step outcome of one
// run.
func (l *Logger) Recorder(chatID, runID string) engine.Recorder {
	return &stepRecorder{logger: l, chatID: chatID, runID: runID}
}

type stepRecorder struct {
	logger *Logger
	chatID string
	runID  string
}

func (r *stepRecorder) RecordOutcome(_ context.Context, o engine.Outcome) {
	r.logger.LogStep(r.chatID, r.runID, o)
}

// PolicyObserver returns a governance.Observer that logs every decision.
func (l *Logger) PolicyObserver(runID string) governance.Observer {
	return func(_ context.Context, req governance.Request, res governance.Result) {
		l.LogPolicyCheck(runID, req, res)
	}
}
