package replay

import (
	"fmt"
	"sort"

	"rodeo-indexer/internal/domain"
)

// SortEvents orders events by (block ASC, tx_index ASC, log_index ASC, kind ASC).
// Kind is the tie-breaker when two events share a position.
func SortEvents(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareEvents(events[i], events[j]) < 0
	})
}

// ValidateOrdering checks that events are strictly increasing in replay order.
// Two events with the same position and kind are rejected as out of order.
func ValidateOrdering(events []*domain.Event) error {
	for i := 1; i < len(events); i++ {
		if compareEvents(events[i-1], events[i]) >= 0 {
			return fmt.Errorf("%w: %s (%s) after %s (%s)", ErrInvalidOrdering,
				events[i].Position(), events[i].Kind, events[i-1].Position(), events[i-1].Kind)
		}
	}
	return nil
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareEvents(a, b *domain.Event) int {
	if c := a.Position().Compare(b.Position()); c != 0 {
		return c
	}
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	return 0
}
