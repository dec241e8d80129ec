// ABOUTME: In-memory fan-out broadcaster delivering ingested events to subscribers
// ABOUTME: Single consumer loop with blocking per-subscriber delivery for strict ordering

package bridge

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// ingestQueueSize is the buffer of the central ingest queue. Producers
	// only block once this many events are waiting for the broadcast loop.
	ingestQueueSize = 64

	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 10
)

// Subscription is one subscriber's handle: a bounded delivery channel owned
// exclusively by the subscriber for its connection lifetime. Close must be
// called on every exit path.
type Subscription struct {
	id   string
	ch   chan *Event
	gone chan struct{}
	once sync.Once
	b    *Broadcaster
}

// Events returns the delivery channel. It yields events in ingest order
// until the subscription is closed.
func (s *Subscription) Events() <-chan *Event {
	return s.ch
}

// Close de-registers the subscription. Safe to call multiple times,
// including while a fan-out pass is blocked on this subscription's full
// channel.
func (s *Subscription) Close() {
	// Signal disconnection before touching the subscriber set: a fan-out
	// pass blocked on this channel holds the set lock, and the gone signal
	// is what unblocks it so the lock can be acquired at all.
	s.once.Do(func() { close(s.gone) })

	s.b.mu.Lock()
	_, registered := s.b.subs[s.id]
	if registered {
		delete(s.b.subs, s.id)
		// Sends only happen under the set lock, so no fan-out can be
		// mid-send on this channel here.
		close(s.ch)
	}
	total := len(s.b.subs)
	s.b.mu.Unlock()

	if registered {
		s.b.logger.Info("subscriber disconnected", "sub_id", s.id, "total_subscribers", total)
	}
}

// Broadcaster queues inbound events centrally and fans each one out to
// every live subscriber channel, preserving ingest order per subscriber.
//
// Delivery to a subscriber whose channel is at capacity blocks the whole
// fan-out pass until the channel drains: one stalled-but-connected
// subscriber delays delivery to every other subscriber. This favors strict
// ordering and at-least-one-relay over per-subscriber isolation; a
// subscriber that disconnects mid-delivery is skipped and removed.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]*Subscription

	queue  chan *Event
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
	loopDone  chan struct{}
}

// NewBroadcaster creates a broadcaster and starts its consumer loop.
// Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		subs:     make(map[string]*Subscription),
		queue:    make(chan *Event, ingestQueueSize),
		done:     make(chan struct{}),
		logger:   logger.With("component", "broadcaster"),
		loopDone: make(chan struct{}),
	}
	go b.run()
	return b
}

// Ingest pushes one event onto the central queue. It blocks only when the
// queue itself is at capacity, or returns immediately if the broadcaster
// is closed.
func (b *Broadcaster) Ingest(event *Event) {
	select {
	case b.queue <- event:
	case <-b.done:
	}
}

// Subscribe registers a new subscriber and returns its handle. Only events
// ingested after Subscribe returns are ever delivered; there is no replay.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		id:   uuid.New().String(),
		ch:   make(chan *Event, subscriberBufferSize),
		gone: make(chan struct{}),
		b:    b,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	total := len(b.subs)
	b.mu.Unlock()

	b.logger.Info("subscriber connected", "sub_id", sub.id, "total_subscribers", total)
	return sub
}

// SubscriberCount returns the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops the consumer loop and disconnects all subscribers.
func (b *Broadcaster) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		<-b.loopDone

		b.mu.Lock()
		subs := make([]*Subscription, 0, len(b.subs))
		for _, sub := range b.subs {
			subs = append(subs, sub)
		}
		b.mu.Unlock()

		for _, sub := range subs {
			sub.Close()
		}

		b.logger.Debug("broadcaster closed")
	})
}

// run is the single logical consumer: it serializes all deliveries, which
// is what gives every subscriber the same event order.
func (b *Broadcaster) run() {
	defer close(b.loopDone)
	for {
		select {
		case <-b.done:
			return
		case event := <-b.queue:
			if !b.fanout(event) {
				return
			}
		}
	}
}

// fanout delivers one event to every registered subscriber, holding the
// subscriber-set lock for the duration of the pass. Returns false when the
// broadcaster shut down mid-pass.
func (b *Broadcaster) fanout(event *Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) == 0 {
		b.logger.Debug("no subscribers connected, event dropped", "sender", event.Sender)
		return true
	}

	for id, sub := range b.subs {
		select {
		case sub.ch <- event:
		case <-sub.gone:
			// Subscriber disconnected while we were blocked on its full
			// channel; Close removes it from the set once we release the
			// lock.
			b.logger.Debug("skipped delivery to disconnected subscriber", "sub_id", id)
		case <-b.done:
			return false
		}
	}
	return true
}
