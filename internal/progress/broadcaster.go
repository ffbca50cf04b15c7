package progress

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// subscriberBuffer is the per-subscriber event queue depth. Publishing never
// blocks; a subscriber that falls further behind than this loses events.
const subscriberBuffer = 100

// Subscription is one consumer's view of a broadcast. Events delivers updates
// in publish order until the broadcaster is closed, after which the channel is
// closed. A subscription created mid-acquisition starts mid-stream; it does
// not replay earlier events.
type Subscription struct {
	ID     string
	Events <-chan Event

	b  *Broadcaster
	ch chan Event
}

// Cancel detaches the subscription. The producer is unaffected; remaining
// buffered events stay readable until the channel is drained or closed.
func (s *Subscription) Cancel() {
	s.b.unsubscribe(s.ID)
}

// Broadcaster fans events from a single producer out to any number of
// late-joining subscribers. Slow subscribers drop events rather than
// backpressuring the producer.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]*Subscription
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates an open broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]*Subscription),
		logger:      logger,
	}
}

// Subscribe attaches a new subscriber. Subscribing to a closed broadcaster
// returns a subscription whose channel is already closed.
func (b *Broadcaster) Subscribe() *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{
		ID:     ulid.Make().String(),
		Events: ch,
		b:      b,
		ch:     ch,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Publish delivers the event to every subscriber. Events published after
// Close are discarded.
func (b *Broadcaster) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("subscriber event buffer full, dropping event",
				"subscriber_id", sub.ID,
				"video_id", event.VideoID,
				"status", event.Status,
			)
		}
	}
}

// Close ends the broadcast. All subscriber channels are closed after any
// buffered events; Close is idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

func (b *Broadcaster) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}
