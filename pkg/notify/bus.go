package notify

import (
	"sync"

	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
)

// Bus fans named events out to all current subscribers. Delivery is
// fire-and-forget: no acknowledgment, no ordering guarantee, no replay for
// late subscribers (new subscribers pull full state separately). When a
// subscriber's buffer is full the incoming event is dropped for that
// subscriber rather than blocking the publisher.
type Bus struct {
	mu   sync.Mutex
	subs map[chan models.Event]struct{}
	bufN int
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{subs: map[chan models.Event]struct{}{}, bufN: buffer}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel func. Cancel must be called exactly once.
func (b *Bus) Subscribe() (<-chan models.Event, func()) {
	ch := make(chan models.Event, b.bufN)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish broadcasts ev to all current subscribers without blocking.
func (b *Bus) Publish(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			logger.Warn("notify_subscriber_lagging", "kind", string(ev.Kind))
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
