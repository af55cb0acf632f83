package memory

import (
	"context"
	"sort"
	"sync"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/idhash"
	"rodeo-indexer/internal/storage"
)

// RawEventStore is an in-memory implementation of storage.RawEventStore.
type RawEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by event id
}

// NewRawEventStore creates a new in-memory raw event store.
func NewRawEventStore() *RawEventStore {
	return &RawEventStore{
		data: make(map[string]*domain.Event),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if exists.
func (s *RawEventStore) Insert(_ context.Context, ev *domain.Event) error {
	if ev == nil || ev.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := idhash.EventID(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *ev
	s.data[key] = &cp
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *RawEventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))

	// First pass: check for duplicates (existing + intra-batch)
	for _, ev := range events {
		if ev == nil || ev.TxHash == "" {
			return storage.ErrInvalidInput
		}
		key := idhash.EventID(ev)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, ev := range events {
		cp := *ev
		s.data[idhash.EventID(ev)] = &cp
	}
	return nil
}

// GetByBlockRange returns events within blocks [from, to] (inclusive) in chain order.
func (s *RawEventStore) GetByBlockRange(_ context.Context, from, to uint64) ([]*domain.Event, error) {
	return s.collect(func(ev *domain.Event) bool {
		return ev.Block >= from && ev.Block <= to
	}), nil
}

// GetAll returns every event in chain order.
func (s *RawEventStore) GetAll(_ context.Context) ([]*domain.Event, error) {
	return s.collect(func(*domain.Event) bool { return true }), nil
}

func (s *RawEventStore) collect(keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, ev := range s.data {
		if keep(ev) {
			cp := *ev
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Position().Compare(result[j].Position()); c != 0 {
			return c < 0
		}
		return result[i].Kind < result[j].Kind
	})
	return result
}

var _ storage.RawEventStore = (*RawEventStore)(nil)
