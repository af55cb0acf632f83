// Package sink delivers committed reducer effects to downstream systems.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rodeo-indexer/internal/reducer"
)

// Sink receives the effects of one committed event.
type Sink interface {
	Name() string
	Publish(ctx context.Context, fx *reducer.Effects) error
}

// ErrorFunc observes a failed sink delivery.
type ErrorFunc func(sink string, err error)

// Fanout publishes to every sink. A failing sink does not stop the others.
type Fanout struct {
	sinks   []Sink
	logger  zerolog.Logger
	onError ErrorFunc
}

// NewFanout creates a Fanout. onError may be nil.
func NewFanout(logger zerolog.Logger, onError ErrorFunc, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger, onError: onError}
}

// Name implements Sink.
func (f *Fanout) Name() string { return "fanout" }

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Publish delivers fx to every sink and joins their errors.
func (f *Fanout) Publish(ctx context.Context, fx *reducer.Effects) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, fx); err != nil {
			f.logger.Error().Err(err).Str("sink", s.Name()).
				Str("kind", string(fx.Event.Kind)).Stringer("pos", fx.Event.Position()).
				Msg("sink publish failed")
			if f.onError != nil {
				f.onError(s.Name(), err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
