// Package events signals changes to a user's notification collection.
// A signal carries no payload; subscribers re-read the store.
package events

import (
	"context"
	"sync"
)

// Subscription delivers change signals until Unsubscribe is called.
// Signals are coalesced: a slow reader sees at most one pending signal.
type Subscription interface {
	Updates() <-chan struct{}
	Unsubscribe() error
}

// signal is a coalescing, close-safe notification channel
type signal struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1)}
}

func (s *signal) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// close reports whether this call closed the channel.
func (s *signal) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	return true
}

// Broker is an in-process change feed keyed by topic
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[*brokerSub]struct{}
}

// NewBroker creates a new broker
func NewBroker() *Broker {
	return &Broker{topics: make(map[string]map[*brokerSub]struct{})}
}

type brokerSub struct {
	*signal
	broker *Broker
	topic  string
}

func (s *brokerSub) Updates() <-chan struct{} { return s.ch }

func (s *brokerSub) Unsubscribe() error {
	s.broker.remove(s)
	s.close()
	return nil
}

// Subscribe registers interest in topic
func (b *Broker) Subscribe(topic string) (Subscription, error) {
	sub := &brokerSub{signal: newSignal(), broker: b, topic: topic}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*brokerSub]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub, nil
}

// Publish signals every subscriber of topic without blocking
func (b *Broker) Publish(_ context.Context, topic string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.topics[topic] {
		sub.notify()
	}
	return nil
}

// SubscriberCount returns the number of active subscribers of topic
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close ends every subscription
func (b *Broker) Close() {
	b.mu.Lock()
	topics := b.topics
	b.topics = make(map[string]map[*brokerSub]struct{})
	b.mu.Unlock()

	for _, subs := range topics {
		for sub := range subs {
			sub.close()
		}
	}
}

func (b *Broker) remove(sub *brokerSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[sub.topic]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, sub.topic)
	}
}
