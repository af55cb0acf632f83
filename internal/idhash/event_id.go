package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/entityid"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(tx_hash|log_index|kind), with tx_hash lower-cased and 0x-prefixed
// so that casing variants of one log share an id.
// Returns hex-encoded hash (64 characters).
func ComputeEventID(txHash string, logIndex uint64, kind domain.EventKind) string {
	data := fmt.Sprintf("%s|%d|%s",
		entityid.NormalizeHash(txHash),
		logIndex,
		string(kind),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// EventID computes the event_id of ev.
func EventID(ev *domain.Event) string {
	return ComputeEventID(ev.TxHash, ev.LogIndex, ev.Kind)
}
