package ingestion

import (
	"context"
	"fmt"
	"math/big"

	"rodeo-indexer/internal/domain"
)

const (
	testToken = "0x00000000000000000000000000000000000000aa"
	testFrom  = "0x00000000000000000000000000000000000000b1"
	testTo    = "0x00000000000000000000000000000000000000b2"
)

func transferAt(block, txIndex, logIndex uint64) *domain.Event {
	return &domain.Event{
		Kind:      domain.KindTransfer,
		Block:     block,
		TxIndex:   txIndex,
		LogIndex:  logIndex,
		TxHash:    fmt.Sprintf("0x%02x%02x", block, txIndex),
		Source:    testToken,
		Timestamp: int64(block) * 12,
		Transfer:  &domain.Transfer{From: testFrom, To: testTo, Value: big.NewInt(1)},
	}
}

func positions(events []*domain.Event) []domain.Position {
	out := make([]domain.Position, len(events))
	for i, ev := range events {
		out[i] = ev.Position()
	}
	return out
}

// sliceSource replays a fixed slice and then an optional error.
type sliceSource struct {
	events []*domain.Event
	err    error
}

func (s *sliceSource) Events(ctx context.Context) (<-chan *domain.Event, <-chan error) {
	events := make(chan *domain.Event)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(events)
		for _, ev := range s.events {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if s.err != nil {
			errs <- s.err
		}
	}()
	return events, errs
}
