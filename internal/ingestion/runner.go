package ingestion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"rodeo-indexer/internal/domain"
)

// Runner drives a Source through a block-lag Buffer into a Handler.
type Runner struct {
	blockLag uint64
	logger   zerolog.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	BlockLag uint64 // blocks to hold back for reordering; 0 passes events through
	Logger   zerolog.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		blockLag: opts.BlockLag,
		logger:   opts.Logger.With().Str("component", "ingestion").Logger(),
	}
}

// Run consumes src until it is exhausted, ctx is done or handle fails.
// When the source ends cleanly, buffered events are flushed before returning.
func (r *Runner) Run(ctx context.Context, src Source, handle Handler) error {
	events, errs := src.Events(ctx)
	buffer := NewBuffer(r.blockLag)

	r.logger.Info().Uint64("block_lag", r.blockLag).Msg("ingestion runner started")

	deliver := func(ready []*domain.Event) error {
		for _, ev := range ready {
			if err := handle(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Int("buffered", buffer.Len()).Msg("ingestion runner stopping")
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				if err := <-errs; err != nil {
					return fmt.Errorf("event source: %w", err)
				}
				if err := deliver(buffer.Flush()); err != nil {
					return err
				}
				r.logger.Info().Msg("event source exhausted")
				return nil
			}
			if err := deliver(buffer.Add(ev)); err != nil {
				return err
			}
		}
	}
}
