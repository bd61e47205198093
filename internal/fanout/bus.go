// Package fanout publishes order-lifecycle events to topic subscribers.
// Delivery is best-effort and at-most-once: a subscriber that is absent or
// whose buffer is full simply misses the event. The ledger stays the source
// of truth; this layer is notification, not consistency.
package fanout

import (
	"sync"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Event pairs an envelope with the topic it was published on. Taps see it;
// topic subscribers only receive the envelope.
type Event struct {
	Topic    string
	Envelope market.Envelope
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	taps   map[*Tap]struct{}
	closed bool
	log    *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs: make(map[string]map[*Subscription]struct{}),
		taps: make(map[*Tap]struct{}),
		log:  log,
	}
}

// Publish never blocks: sends happen under the read lock with a non-blocking
// select, so a slow subscriber drops events instead of stalling the caller.
func (b *Bus) Publish(topic string, ev market.Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for sub := range b.subs[topic] {
		select {
		case sub.ch <- ev:
		default:
			b.log.Debug("fanout: dropped event for slow subscriber",
				zap.String("topic", topic),
				zap.String("event_type", ev.EventType))
		}
	}
	for tap := range b.taps {
		select {
		case tap.ch <- Event{Topic: topic, Envelope: ev}:
		default:
			b.log.Debug("fanout: dropped event for slow tap",
				zap.String("topic", topic),
				zap.String("event_type", ev.EventType))
		}
	}
}

func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		bus:   b,
		topic: topic,
		ch:    make(chan market.Envelope, subscriberBuffer),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	set, ok := b.subs[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[topic] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Tap attaches a firehose observer that sees every published event,
// regardless of topic. Used by external bridges.
func (b *Bus) Tap() *Tap {
	tap := &Tap{bus: b, ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(tap.ch)
		return tap
	}
	b.taps[tap] = struct{}{}
	return tap
}

// Close cancels every subscription and tap. Further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, set := range b.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
	for tap := range b.taps {
		close(tap.ch)
		delete(b.taps, tap)
	}
}

type Subscription struct {
	bus   *Bus
	topic string
	ch    chan market.Envelope
	once  sync.Once
}

func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) Events() <-chan market.Envelope { return s.ch }

// Cancel detaches and closes the channel. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if s.bus.closed {
			return
		}
		if set, ok := s.bus.subs[s.topic]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.bus.subs, s.topic)
			}
		}
		close(s.ch)
	})
}

type Tap struct {
	bus  *Bus
	ch   chan Event
	once sync.Once
}

func (t *Tap) Events() <-chan Event { return t.ch }

func (t *Tap) Cancel() {
	t.once.Do(func() {
		t.bus.mu.Lock()
		defer t.bus.mu.Unlock()
		if t.bus.closed {
			return
		}
		delete(t.bus.taps, t)
		close(t.ch)
	})
}
