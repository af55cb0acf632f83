// Package indexer applies ordered events to the entity store and publishes
// their effects once committed.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/ingestion"
	"rodeo-indexer/internal/observability"
	"rodeo-indexer/internal/reducer"
	"rodeo-indexer/internal/sink"
	"rodeo-indexer/internal/storage"
)

// Failure classes reported to metrics.
const (
	ClassMissingReferent     = "missing_referent"
	ClassInsufficientBalance = "insufficient_balance"
	ClassDuplicate           = "duplicate"
	ClassInvalidEvent        = "invalid_event"
	ClassCanceled            = "canceled"
	ClassStorage             = "storage"
)

// Options configures an Indexer.
type Options struct {
	Store   storage.EntityStore
	Reducer *reducer.Reducer
	Sink    sink.Sink // optional
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Indexer is the single writer of derived state.
// OnEvent must not be called concurrently.
type Indexer struct {
	store   storage.EntityStore
	reducer *reducer.Reducer
	sink    sink.Sink
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// New creates an Indexer. A nil Reducer gets the default options.
func New(opts Options) *Indexer {
	r := opts.Reducer
	if r == nil {
		r = reducer.New(reducer.Options{})
	}
	return &Indexer{
		store:   opts.Store,
		reducer: r,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		logger:  opts.Logger.With().Str("component", "indexer").Logger(),
	}
}

// Cursor returns the position of the last applied event, or nil if nothing
// was applied yet.
func (ix *Indexer) Cursor(ctx context.Context) (*domain.Position, error) {
	var pos *domain.Position
	err := ix.store.View(ctx, func(tx storage.Tx) error {
		p, err := tx.Cursor().Get(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		pos = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}
	return pos, nil
}

// OnEvent applies ev and advances the cursor in one unit of work.
// Events at or below the cursor are skipped. Any apply error is returned
// and nothing is written. Sink failures are logged and never undo the commit.
func (ix *Indexer) OnEvent(ctx context.Context, ev *domain.Event) error {
	start := time.Now()
	if err := ev.Validate(); err != nil {
		kind := ""
		if ev != nil {
			kind = string(ev.Kind)
		}
		ix.metrics.RecordFailure(kind, ClassInvalidEvent)
		ix.logger.Error().Err(err).Str("kind", kind).Str("class", ClassInvalidEvent).Msg("apply failed")
		return err
	}
	pos := ev.Position()

	var (
		fx      *reducer.Effects
		skipped bool
	)
	err := ix.store.Update(ctx, func(tx storage.Tx) error {
		cur, err := tx.Cursor().Get(ctx)
		switch {
		case err == nil:
			if pos.Compare(*cur) <= 0 {
				skipped = true
				return nil
			}
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("read cursor: %w", err)
		}

		fx, err = ix.reducer.Apply(ctx, tx, ev)
		if err != nil {
			return err
		}
		return tx.Cursor().Put(ctx, pos)
	})
	if err != nil {
		class := Classify(err)
		ix.metrics.RecordFailure(string(ev.Kind), class)
		ix.logger.Error().Err(err).Str("kind", string(ev.Kind)).Stringer("pos", pos).
			Str("class", class).Msg("apply failed")
		return err
	}
	if skipped {
		ix.metrics.RecordSkipped()
		ix.logger.Debug().Str("kind", string(ev.Kind)).Stringer("pos", pos).Msg("event at or below cursor skipped")
		return nil
	}

	ix.metrics.RecordApplied(string(ev.Kind), pos.Block, time.Since(start))
	if ev.Kind == domain.KindCreateToken {
		ix.metrics.RecordTokenCreated()
	}
	if fx.Trade != nil {
		ix.metrics.RecordTrade(fx.Trade.Side())
	}

	if ix.sink != nil {
		if err := ix.sink.Publish(ctx, fx); err != nil {
			ix.logger.Warn().Err(err).Stringer("pos", pos).Msg("effects not fully delivered")
		}
	}
	return nil
}

// Run drives src through runner into OnEvent until the source ends, ctx is
// done or an event fails to apply.
func (ix *Indexer) Run(ctx context.Context, runner *ingestion.Runner, src ingestion.Source, wrap ...func(ingestion.Handler) ingestion.Handler) error {
	var handle ingestion.Handler = ix.OnEvent
	for i := len(wrap) - 1; i >= 0; i-- {
		handle = wrap[i](handle)
	}
	return runner.Run(ctx, src, handle)
}

// Classify maps an apply error to a failure class.
func Classify(err error) string {
	var balance *reducer.InsufficientBalanceError
	switch {
	case errors.As(err, &balance):
		return ClassInsufficientBalance
	case errors.Is(err, reducer.ErrMissingReferent):
		return ClassMissingReferent
	case errors.Is(err, storage.ErrDuplicateKey):
		return ClassDuplicate
	case errors.Is(err, domain.ErrInvalidEvent), errors.Is(err, storage.ErrInvalidInput):
		return ClassInvalidEvent
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	default:
		return ClassStorage
	}
}
