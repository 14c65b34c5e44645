// Package events fans notifications from the worker out to foreground
// subscribers.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/thingforge/thingforge/internal/channel"
	"github.com/thingforge/thingforge/internal/protocol"
)

// Publisher accepts notifications. Handlers and the dispatcher depend on
// this rather than on the bus.
type Publisher interface {
	Publish(n protocol.Command)
}

// Bus delivers every published notification to every subscriber. Progress
// is dropped for a subscriber whose buffer is full; everything else waits
// for room.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	dropped atomic.Int64
}

// NewBus returns a bus whose subscribers buffer size notifications.
func NewBus(size int) *Bus {
	return &Bus{subs: make(map[uint64]*Subscription), buffer: size}
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	id   uint64
	bus  *Bus
	ch   channel.Channel[protocol.Command]
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &Subscription{
		id:   b.nextID,
		bus:  b,
		ch:   channel.New[protocol.Command](b.buffer),
		done: make(chan struct{}),
	}
	b.subs[s.id] = s
	return s
}

// C returns the notification stream. It is closed by Close.
func (s *Subscription) C() <-chan protocol.Command {
	return s.ch.Receive()
}

// Close detaches the subscriber and closes its stream.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		s.ch.Close()
		s.mu.Unlock()
	})
}

func (s *Subscription) deliver(n protocol.Command, droppable bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	if droppable {
		return s.ch.TrySend(n)
	}
	return s.ch.SendUntil(n, s.done)
}

// Publish sends n to every current subscriber.
func (b *Bus) Publish(n protocol.Command) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	droppable := n.Kind() == protocol.KindProgress
	for _, s := range subs {
		if !s.deliver(n, droppable) && droppable {
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many progress notifications were discarded.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close detaches every subscriber.
func (b *Bus) Close() {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		s.Close()
	}
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(protocol.Command)

func (f PublisherFunc) Publish(n protocol.Command) { f(n) }

// Discard drops every notification.
var Discard Publisher = PublisherFunc(func(protocol.Command) {})
