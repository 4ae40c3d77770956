package usage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"embed-service/internal/retry"
)

// Subject carries embedding usage events.
const Subject = "usage.embed"

// Publisher is the part of *nats.Conn the publisher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSPublisher emits usage events as JSON on Subject.
type NATSPublisher struct {
	pub      Publisher
	attempts int
	base     time.Duration
}

// NewNATS constructs a publisher that retries a failed publish a few times.
func NewNATS(pub Publisher) *NATSPublisher {
	return &NATSPublisher{pub: pub, attempts: 3, base: 50 * time.Millisecond}
}

func (p *NATSPublisher) Record(ctx context.Context, ev Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Model == "" {
		return errors.New("usage event model required")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return retry.Do(ctx, p.attempts, p.base, func(int) error {
		return p.pub.Publish(Subject, body)
	})
}
