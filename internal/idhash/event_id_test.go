package idhash

import (
	"testing"

	"rodeo-indexer/internal/domain"
)

func TestComputeEventID(t *testing.T) {
	tests := []struct {
		name     string
		txHash   string
		logIndex uint64
		kind     domain.EventKind
		wantLen  int // hash length should be 64
	}{
		{
			name:     "trade",
			txHash:   "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
			logIndex: 3,
			kind:     domain.KindTokenTrade,
			wantLen:  64,
		},
		{
			name:     "transfer",
			txHash:   "0x0000000000000000000000000000000000000000000000000000000000000001",
			logIndex: 0,
			kind:     domain.KindTransfer,
			wantLen:  64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEventID(tt.txHash, tt.logIndex, tt.kind)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeEventID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeEventID(tt.txHash, tt.logIndex, tt.kind)
			if got != got2 {
				t.Errorf("ComputeEventID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeEventID_DifferentInputs(t *testing.T) {
	base := ComputeEventID("0xabc", 1, domain.KindTokenTrade)

	if base == ComputeEventID("0xabd", 1, domain.KindTokenTrade) {
		t.Error("Different tx hash should produce different hash")
	}
	if base == ComputeEventID("0xabc", 2, domain.KindTokenTrade) {
		t.Error("Different log index should produce different hash")
	}
	if base == ComputeEventID("0xabc", 1, domain.KindTransfer) {
		t.Error("Different kind should produce different hash")
	}
}

func TestEventID_MatchesCompute(t *testing.T) {
	ev := &domain.Event{Kind: domain.KindReserveSync, TxHash: "0xfeed", LogIndex: 9}
	if EventID(ev) != ComputeEventID("0xfeed", 9, domain.KindReserveSync) {
		t.Error("EventID should hash tx hash, log index and kind")
	}
}

func TestComputeEventID_IgnoresHashCasing(t *testing.T) {
	lower := ComputeEventID("0xabcdef", 3, domain.KindTransfer)
	if got := ComputeEventID("0xABCDEF", 3, domain.KindTransfer); got != lower {
		t.Errorf("upper-case hash id = %s, want %s", got, lower)
	}
	if got := ComputeEventID(" abcdef", 3, domain.KindTransfer); got != lower {
		t.Errorf("unprefixed hash id = %s, want %s", got, lower)
	}
}
