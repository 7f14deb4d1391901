package backend

import (
	"context"

	"github.com/adntgv/gptree/pkg/models"
)

// Turn is one entry of the ordered history handed to the backend.
type Turn struct {
	Role models.Author
	Text string
}

// HistoryFromMessages converts a message sequence into backend turns.
func HistoryFromMessages(msgs []models.Message) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Turn{Role: m.Author, Text: m.Text})
	}
	return out
}

// Provider produces completions, summaries and titles. Each call is
// independent; retry and backoff are internal to the implementation and
// opaque to callers. A timeout surfaces as an ordinary error.
type Provider interface {
	// Complete generates the next assistant reply for the given history.
	Complete(ctx context.Context, history []Turn) (string, error)
	// Summarize produces a short recap of the whole thread.
	Summarize(ctx context.Context, th *models.Thread) (string, error)
	// Title produces a short descriptive title from the thread's opening.
	Title(ctx context.Context, th *models.Thread) (string, error)
}
