// Package eventbus carries island lifecycle notifications from the pipeline
// to in-process observers (debug logging, future host surfaces). Publishing
// never blocks; slow observers lose events rather than stalling the pipeline.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Island lifecycle event types published by the pipeline.
const (
	IslandPosted   = "island.posted"
	IslandCanceled = "island.canceled"
	IslandEvicted  = "island.evicted"
	IslandRejected = "island.rejected"
	IslandDeduped  = "island.deduped"
	IslandExpired  = "island.expired"
)

// Event describes one island transition. Key is the tracked notification
// key; widget islands have no key and identify themselves by IslandID alone.
type Event struct {
	Type string
	Time time.Time

	Key      string
	SourceID string
	// Island is the classified notification type ("CALL", "WIDGET", ...).
	Island   string
	IslandID int
}

type Bus interface {
	// Publish delivers e to every subscriber whose buffer has room and
	// drops it for the rest. Never blocks.
	Publish(e Event)

	// Subscribe returns a buffered stream of future events. The channel is
	// never closed; consumers leave by calling unsubscribe and abandoning
	// the channel.
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus with no background goroutines.
func New() Bus {
	return &fanout{subs: map[uint64]chan Event{}}
}

type fanout struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	seq     atomic.Uint64
	dropped atomic.Uint64
}

func (b *fanout) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *fanout) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
	return ch, unsub
}

// Dropped reports how many events were lost to full subscriber buffers.
func (b *fanout) Dropped() uint64 { return b.dropped.Load() }
