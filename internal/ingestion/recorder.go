package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/observability"
	"rodeo-indexer/internal/storage"
)

// RecordStats counts the outcome of recording events.
type RecordStats struct {
	Inserted   int
	Duplicates int
}

// Recorder appends events to the raw event log. Duplicates are expected on
// redelivery and are skipped.
type Recorder struct {
	store   storage.RawEventStore
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewRecorder creates a new Recorder.
func NewRecorder(store storage.RawEventStore, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// WithMetrics counts recorded and duplicate events on m.
func (r *Recorder) WithMetrics(m *observability.Metrics) *Recorder {
	r.metrics = m
	return r
}

// Record stores the normalized form of ev. Returns false if it was already recorded.
func (r *Recorder) Record(ctx context.Context, ev *domain.Event) (bool, error) {
	ev, err := ev.Normalized()
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	if err := r.store.Insert(ctx, ev); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.metrics.RecordRawEvent("duplicate")
			r.logger.Debug().Str("kind", string(ev.Kind)).Stringer("pos", ev.Position()).Msg("raw event already recorded")
			return false, nil
		}
		return false, fmt.Errorf("record %s at %s: %w", ev.Kind, ev.Position(), err)
	}
	r.metrics.RecordRawEvent("inserted")
	return true, nil
}

// RecordAll stores events one by one so that duplicates do not reject the rest.
func (r *Recorder) RecordAll(ctx context.Context, events []*domain.Event) (RecordStats, error) {
	var stats RecordStats
	for _, ev := range events {
		inserted, err := r.Record(ctx, ev)
		if err != nil {
			return stats, err
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Duplicates++
		}
	}
	return stats, nil
}

// Wrap records each event before passing it to next.
func (r *Recorder) Wrap(next Handler) Handler {
	return func(ctx context.Context, ev *domain.Event) error {
		if _, err := r.Record(ctx, ev); err != nil {
			return err
		}
		return next(ctx, ev)
	}
}
