package transport

import (
	"log/slog"
	"sync"

	"github.com/rpggio/loom/internal/engine"
)

// Message is one frame pushed to a subscriber: either a full snapshot or a
// discrete event.
type Message struct {
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Event    *engine.Event    `json:"event,omitempty"`
}

// Broadcaster fans engine output out to subscribers. Delivery is best
// effort: a subscriber that cannot keep up loses frames rather than holding
// the command loop, and a fresh snapshot always supersedes a missed one.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int64]chan Message
	nextID int64
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[int64]chan Message),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber goes away.
func (b *Broadcaster) Subscribe() (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Message, 16)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// PublishSnapshot delivers a snapshot to every subscriber, dropping it for
// subscribers with a full buffer.
func (b *Broadcaster) PublishSnapshot(snap *engine.Snapshot) {
	b.publish(Message{Snapshot: snap})
}

// PublishEvent delivers an event to every subscriber.
func (b *Broadcaster) PublishEvent(ev engine.Event) {
	b.publish(Message{Event: &ev})
}

func (b *Broadcaster) publish(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			b.logger.Warn("subscriber buffer full, dropping frame", "subscriber", id)
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
