package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/storage"
)

func rawTransfer(block, txIndex, logIndex uint64, hash string) *domain.Event {
	return &domain.Event{
		Kind:     domain.KindTransfer,
		Block:    block,
		TxIndex:  txIndex,
		LogIndex: logIndex,
		TxHash:   hash,
		Source:   tokenA,
		Transfer: &domain.Transfer{From: userA, To: userB, Value: big.NewInt(1)},
	}
}

func TestRawEventStore_InsertDuplicate(t *testing.T) {
	store := NewRawEventStore()
	ctx := context.Background()

	ev := rawTransfer(1, 0, 0, "0x01")
	if err := store.Insert(ctx, ev); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, ev); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRawEventStore_InsertBulkAtomic(t *testing.T) {
	store := NewRawEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, rawTransfer(2, 0, 0, "0x02")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	batch := []*domain.Event{
		rawTransfer(1, 0, 0, "0x01"),
		rawTransfer(2, 0, 0, "0x02"),
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 1 {
		t.Errorf("Expected batch to be rejected entirely, got %d events", len(all))
	}
}

func TestRawEventStore_GetByBlockRangeOrdered(t *testing.T) {
	store := NewRawEventStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Event{
		rawTransfer(5, 1, 0, "0x05b"),
		rawTransfer(3, 0, 0, "0x03"),
		rawTransfer(5, 0, 7, "0x05a"),
		rawTransfer(5, 0, 2, "0x05a"),
		rawTransfer(9, 0, 0, "0x09"),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByBlockRange(ctx, 3, 5)
	if err != nil {
		t.Fatalf("GetByBlockRange failed: %v", err)
	}

	want := []domain.Position{{Block: 3}, {Block: 5, LogIndex: 2}, {Block: 5, LogIndex: 7}, {Block: 5, TxIndex: 1}}
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Position() != want[i] {
			t.Errorf("event %d: position %v, want %v", i, got[i].Position(), want[i])
		}
	}
}
