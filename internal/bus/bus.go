// Package bus is a bounded, lossy, multi-producer multi-consumer broadcast
// channel.
//
// Every published value gets the next global sequence number and is written
// into a ring of fixed capacity. Subscribers only hold a cursor, so publishing
// never waits on them: a subscriber that falls more than capacity values
// behind loses the oldest ones and is told how many with a *LaggedError.
package bus

import (
	"context"
	"sync"
)

// Bus is the shared state behind every publisher and subscriber handle.
type Bus[T any] struct {
	mu         sync.Mutex
	ring       []T
	next       uint64 // sequence number of the next publish
	publishers int
	receivers  int
	closed     bool
	wake       chan struct{} // closed and replaced on every publish or close
}

// New creates a bus retaining the last capacity values and returns its first
// publisher handle. It panics if capacity is not positive.
func New[T any](capacity int) (*Publisher[T], *Bus[T]) {
	if capacity < 1 {
		panic("bus: capacity must be positive")
	}
	b := &Bus[T]{
		ring:       make([]T, capacity),
		publishers: 1,
		wake:       make(chan struct{}),
	}
	return &Publisher[T]{bus: b}, b
}

// Published returns how many values were accepted since creation.
func (b *Bus[T]) Published() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// ReceiverCount returns the number of live subscribers.
func (b *Bus[T]) ReceiverCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.receivers
}

// Subscribe returns a subscriber that observes only values published after
// this call.
func (b *Bus[T]) Subscribe() *Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receivers++
	return &Subscriber[T]{bus: b, cursor: b.next}
}

// oldest is the sequence number of the oldest retained value. Callers hold mu.
func (b *Bus[T]) oldest() uint64 {
	if c := uint64(len(b.ring)); b.next > c {
		return b.next - c
	}
	return 0
}

// broadcast wakes every waiting subscriber. Callers hold mu.
func (b *Bus[T]) broadcast() {
	close(b.wake)
	b.wake = make(chan struct{})
}

// Publisher is a sending handle. Handles are cheap to Clone; the bus closes
// once every handle has been closed.
type Publisher[T any] struct {
	bus  *Bus[T]
	once sync.Once
}

// Publish appends v and wakes the subscribers. It never blocks on slow
// subscribers and never fails; with no subscribers the value is dropped.
// It returns the number of subscribers at publish time.
func (p *Publisher[T]) Publish(v T) int {
	b := p.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	b.ring[b.next%uint64(len(b.ring))] = v
	b.next++
	b.broadcast()
	return b.receivers
}

// Clone returns a new handle on the same bus.
func (p *Publisher[T]) Clone() *Publisher[T] {
	b := p.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishers++
	return &Publisher[T]{bus: b}
}

// Subscribe is a shortcut for Bus.Subscribe.
func (p *Publisher[T]) Subscribe() *Subscriber[T] { return p.bus.Subscribe() }

// Close drops the handle. Closing twice is a no-op.
func (p *Publisher[T]) Close() {
	p.once.Do(func() {
		b := p.bus
		b.mu.Lock()
		defer b.mu.Unlock()
		b.publishers--
		if b.publishers == 0 {
			b.closed = true
			b.broadcast()
		}
	})
}

// Subscriber is a receiving handle with its own cursor. A Subscriber must not
// be used from several goroutines at once.
type Subscriber[T any] struct {
	bus    *Bus[T]
	cursor uint64
	once   sync.Once
}

// Recv returns the next value in publish order. It returns a *LaggedError if
// values were overwritten before this subscriber read them (the cursor then
// jumps to the oldest retained value), ErrClosed once all publishers are gone
// and the backlog is drained, or ctx.Err() if ctx is done first.
func (s *Subscriber[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	b := s.bus
	for {
		b.mu.Lock()
		if oldest := b.oldest(); s.cursor < oldest {
			missed := oldest - s.cursor
			s.cursor = oldest
			b.mu.Unlock()
			return zero, &LaggedError{Count: missed}
		}
		if s.cursor < b.next {
			v := b.ring[s.cursor%uint64(len(b.ring))]
			s.cursor++
			b.mu.Unlock()
			return v, nil
		}
		if b.closed {
			b.mu.Unlock()
			return zero, ErrClosed
		}
		wake := b.wake
		b.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close detaches the subscriber from the bus. Closing twice is a no-op.
func (s *Subscriber[T]) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		s.bus.receivers--
		s.bus.mu.Unlock()
	})
}
