package gateway

import (
	"context"
	"strings"
)

// Messenger defines the interface for communication gateways (Telegram, Discord, etc.)
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Handler answers one inbound chat message.
type Handler interface {
	Handle(ctx context.Context, chatID, text string) (string, error)
}

type HandlerFunc func(ctx context.Context, chatID, text string) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, chatID, text string) (string, error) {
	return f(ctx, chatID, text)
}

const troubleReply = "I could not plan that. Try rephrasing the request."

// chunk splits text into pieces of at most limit runes, cutting after the
// last line break that fits when there is one.
func chunk(text string, limit int) []string {
	r := []rune(text)
	var out []string
	for len(r) > limit {
		cut := limit
		for i := limit; i > 1; i-- {
			if r[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimRight(string(r[:cut]), "\n"))
		r = r[cut:]
	}
	if len(r) > 0 || len(out) == 0 {
		out = append(out, string(r))
	}
	return out
}
