// Package pubsub is the in-process fan-out used to push build-completed
// notifications to HTTP event streams.
package pubsub

import (
	"context"
	"sync"
)

// PubSub delivers published messages to every subscription on a topic.
// Slow subscribers are skipped once their buffer fills; event streams are
// best-effort.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	closed      bool
}

// Subscription is one listener on a topic.
type Subscription struct {
	topic  string
	ch     chan any
	ps     *PubSub
	cancel context.CancelFunc
	once   sync.Once
}

// New creates an empty PubSub.
func New() *PubSub {
	return &PubSub{subscribers: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a listener on topic. The subscription ends when ctx is
// canceled, Unsubscribe is called, or the PubSub shuts down.
func (ps *PubSub) Subscribe(ctx context.Context, topic string) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:  topic,
		ch:     make(chan any, 16),
		ps:     ps,
		cancel: cancel,
	}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		cancel()
		close(sub.ch)
		return sub
	}
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]struct{})
	}
	ps.subscribers[topic][sub] = struct{}{}
	ps.mu.Unlock()

	go func() {
		<-subCtx.Done()
		sub.Unsubscribe()
	}()

	return sub
}

// Publish delivers msg to every live subscription on topic without blocking.
func (ps *PubSub) Publish(topic string, msg any) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.closed {
		return
	}
	for sub := range ps.subscribers[topic] {
		select {
		case sub.ch <- msg:
		default:
			// Full buffer: drop for this subscriber.
		}
	}
}

// Shutdown closes every subscription.
func (ps *PubSub) Shutdown() {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return
	}
	ps.closed = true
	subs := make([]*Subscription, 0)
	for _, m := range ps.subscribers {
		for sub := range m {
			subs = append(subs, sub)
		}
	}
	ps.subscribers = make(map[string]map[*Subscription]struct{})
	ps.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// Channel returns the subscription's delivery channel. It is closed when the
// subscription ends.
func (s *Subscription) Channel() <-chan any {
	return s.ch
}

// Unsubscribe detaches the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.ps.mu.Lock()
	if m, ok := s.ps.subscribers[s.topic]; ok {
		delete(m, s)
		if len(m) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}
	s.ps.mu.Unlock()
	s.close()
}

func (s *Subscription) close() {
	s.once.Do(func() {
		s.cancel()
		close(s.ch)
	})
}
