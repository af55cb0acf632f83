package replay

import (
	"context"

	"rodeo-indexer/internal/domain"
)

// Engine processes events in deterministic order.
type Engine interface {
	// OnEvent is called for each event in order.
	// Events are guaranteed to be ordered by (block, tx_index, log_index, kind).
	OnEvent(ctx context.Context, event *domain.Event) error
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, event *domain.Event) error

// OnEvent calls f(ctx, event).
func (f EngineFunc) OnEvent(ctx context.Context, event *domain.Event) error {
	return f(ctx, event)
}
