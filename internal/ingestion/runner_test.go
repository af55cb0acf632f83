package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rodeo-indexer/internal/domain"
)

func collect(out *[]*domain.Event) Handler {
	return func(_ context.Context, ev *domain.Event) error {
		*out = append(*out, ev)
		return nil
	}
}

func TestRunner_BlockBasedOrdering(t *testing.T) {
	src := &sliceSource{events: []*domain.Event{
		transferAt(2, 0, 0),
		transferAt(1, 0, 4),
		transferAt(1, 0, 1),
		transferAt(3, 0, 0),
	}}

	var got []*domain.Event
	runner := NewRunner(RunnerOptions{BlockLag: 1, Logger: zerolog.Nop()})
	require.NoError(t, runner.Run(context.Background(), src, collect(&got)))

	want := []domain.Position{{Block: 1, LogIndex: 1}, {Block: 1, LogIndex: 4}, {Block: 2}, {Block: 3}}
	assert.Equal(t, want, positions(got))
}

func TestRunner_SourceError(t *testing.T) {
	boom := errors.New("feed closed")
	src := &sliceSource{events: []*domain.Event{transferAt(1, 0, 0)}, err: boom}

	var got []*domain.Event
	runner := NewRunner(RunnerOptions{Logger: zerolog.Nop()})
	err := runner.Run(context.Background(), src, collect(&got))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
}

func TestRunner_HandlerErrorStops(t *testing.T) {
	src := &sliceSource{events: []*domain.Event{transferAt(1, 0, 0), transferAt(2, 0, 0), transferAt(3, 0, 0)}}
	boom := errors.New("apply failed")

	calls := 0
	runner := NewRunner(RunnerOptions{Logger: zerolog.Nop()})
	err := runner.Run(context.Background(), src, func(_ context.Context, ev *domain.Event) error {
		calls++
		if ev.Block == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRunner_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(RunnerOptions{Logger: zerolog.Nop()})
	err := runner.Run(ctx, sourceFunc(func(context.Context) (<-chan *domain.Event, <-chan error) {
		return make(chan *domain.Event), make(chan error)
	}), collect(new([]*domain.Event)))

	assert.ErrorIs(t, err, context.Canceled)
}

type sourceFunc func(ctx context.Context) (<-chan *domain.Event, <-chan error)

func (f sourceFunc) Events(ctx context.Context) (<-chan *domain.Event, <-chan error) { return f(ctx) }
