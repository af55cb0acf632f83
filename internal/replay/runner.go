package replay

import (
	"context"
	"fmt"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/storage"
)

// Runner loads events from the raw event log and replays them in deterministic order.
type Runner struct {
	events storage.RawEventStore
}

// NewRunner creates a new replay runner.
func NewRunner(events storage.RawEventStore) *Runner {
	return &Runner{events: events}
}

// Run replays events within blocks [from, to] through the engine.
// Returns the number of events delivered.
func (r *Runner) Run(ctx context.Context, from, to uint64, engine Engine) (int, error) {
	if from > to {
		return 0, fmt.Errorf("%w: block range %d > %d", storage.ErrInvalidInput, from, to)
	}

	events, err := r.events.GetByBlockRange(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}

	return replay(ctx, events, engine)
}

// RunAll replays the whole raw event log through the engine.
func (r *Runner) RunAll(ctx context.Context, engine Engine) (int, error) {
	events, err := r.events.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}

	return replay(ctx, events, engine)
}

func replay(ctx context.Context, events []*domain.Event, engine Engine) (int, error) {
	SortEvents(events)
	if err := ValidateOrdering(events); err != nil {
		return 0, err
	}

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := engine.OnEvent(ctx, event); err != nil {
			return i, fmt.Errorf("replay %s at %s: %w", event.Kind, event.Position(), err)
		}
	}

	return len(events), nil
}
