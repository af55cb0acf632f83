package ingestion

import (
	"sort"

	"rodeo-indexer/internal/domain"
	"rodeo-indexer/internal/replay"
)

// Buffer groups events by block and releases a block once lag newer blocks
// have been seen, so that events arriving out of order within that window
// are delivered in chain order.
type Buffer struct {
	lag     uint64
	blocks  map[uint64][]*domain.Event
	highest uint64
	started bool
}

// NewBuffer creates a Buffer. A zero lag releases every event immediately.
func NewBuffer(lag uint64) *Buffer {
	return &Buffer{lag: lag, blocks: make(map[uint64][]*domain.Event)}
}

// Add buffers ev and returns the events that became final, in chain order.
func (b *Buffer) Add(ev *domain.Event) []*domain.Event {
	block := ev.Block
	b.blocks[block] = append(b.blocks[block], ev)

	if !b.started || block > b.highest {
		b.started = true
		b.highest = block
		if b.highest < b.lag {
			return nil
		}
		return b.release(b.highest - b.lag)
	}

	// Late event for an already-final block: release it immediately.
	if block+b.lag <= b.highest {
		return b.releaseBlock(block)
	}
	return nil
}

// Flush releases everything still buffered, in chain order.
func (b *Buffer) Flush() []*domain.Event {
	return b.release(b.highest)
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	n := 0
	for _, events := range b.blocks {
		n += len(events)
	}
	return n
}

// release returns buffered blocks at or below final.
func (b *Buffer) release(final uint64) []*domain.Event {
	var blocks []uint64
	for block := range b.blocks {
		if block <= final {
			blocks = append(blocks, block)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	var out []*domain.Event
	for _, block := range blocks {
		out = append(out, b.releaseBlock(block)...)
	}
	return out
}

func (b *Buffer) releaseBlock(block uint64) []*domain.Event {
	events := b.blocks[block]
	delete(b.blocks, block)
	replay.SortEvents(events)
	return events
}
