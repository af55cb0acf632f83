package ingestion

import (
	"context"

	"rodeo-indexer/internal/domain"
)

// Source delivers decoded chain events.
//
// The event channel is closed when the source is exhausted or ctx is done.
// At most one error is sent on the error channel, which is closed after the
// event channel.
type Source interface {
	Events(ctx context.Context) (<-chan *domain.Event, <-chan error)
}

// Handler consumes one event. A non-nil error stops the runner.
type Handler func(ctx context.Context, ev *domain.Event) error
