// Package usage records per-request token accounting for the embedding
// endpoint. Sinks receive the same Event; none of them store vectors.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one accepted /embed call.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Model       string    `json:"model"`
	InputType   string    `json:"input_type,omitempty"`
	Inputs      int       `json:"inputs"`
	ItemTokens  []int     `json:"item_tokens"`
	TotalTokens int       `json:"total_tokens"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(model, inputType string, itemTokens []int) Event {
	total := 0
	for _, n := range itemTokens {
		total += n
	}
	return Event{
		ID:          uuid.New(),
		Model:       model,
		InputType:   inputType,
		Inputs:      len(itemTokens),
		ItemTokens:  itemTokens,
		TotalTokens: total,
		CreatedAt:   time.Now().UTC(),
	}
}

// Recorder accepts usage events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Noop drops every event. Used when no sink is configured.
type Noop struct{}

func (Noop) Record(context.Context, Event) error { return nil }
