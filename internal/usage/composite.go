package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"embed-service/internal/metrics"
)

// Sink is a named Recorder so failures can be attributed.
type Sink struct {
	Name     string
	Recorder Recorder
}

// Composite fans an event out to every sink. A failing sink does not stop
// the others; all failures are returned joined.
type Composite struct {
	log   *slog.Logger
	sinks []Sink
}

// NewComposite builds a Composite over the non-nil sinks.
func NewComposite(log *slog.Logger, sinks ...Sink) *Composite {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Recorder != nil {
			kept = append(kept, s)
		}
	}
	return &Composite{log: log, sinks: kept}
}

// Len reports how many sinks are attached.
func (c *Composite) Len() int {
	return len(c.sinks)
}

func (c *Composite) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Recorder.Record(ctx, ev); err != nil {
			metrics.UsageRecordErrorsTotal.WithLabelValues(s.Name).Inc()
			c.log.Warn("usage sink failed", "sink", s.Name, "event_id", ev.ID, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
