package store

import (
	"time"

	"github.com/rahul/stepwise/internal/engine"
	"github.com/rahul/stepwise/internal/plan"
)

// Run is one audited execution: what was asked, the plan that was run and
// what came out of it.
type Run struct {
	ID           string         `json:"id"`
	ChatID       string         `json:"chat_id,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Plan         *plan.Plan     `json:"plan"`
	Result       *engine.Result `json:"result"`
	CreatedAt    time.Time      `json:"created_at"`
}
