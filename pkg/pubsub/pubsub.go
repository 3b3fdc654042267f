// Package pubsub fans simulation tick events out to in-process subscribers.
// Subscribers register for a topic (usually a run id) or for AllTopics.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
)

// AllTopics subscribes to events published on every topic.
const AllTopics = "*"

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 100

// ErrClosed is returned by Subscribe after Shutdown.
var ErrClosed = errors.New("pubsub: closed")

// PubSub delivers TickEvents without ever blocking the publisher. When a
// subscriber's buffer is full the event is dropped for that subscriber
// and counted.
type PubSub struct {
	subscribers map[string]map[*Subscription]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	buffer      int
	dropped     atomic.Uint64
}

// Subscription is a single consumer of one topic.
type Subscription struct {
	topic     string
	channel   chan propagation.TickEvent
	ps        *PubSub
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPubSub creates a PubSub whose subscriptions buffer DefaultBuffer events.
func NewPubSub() *PubSub {
	return NewPubSubWithBuffer(DefaultBuffer)
}

// NewPubSubWithBuffer creates a PubSub with a custom subscription buffer.
func NewPubSubWithBuffer(buffer int) *PubSub {
	if buffer < 0 {
		buffer = 0
	}
	return &PubSub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		shutdown:    make(chan struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers for events on topic. The subscription ends when ctx
// is cancelled, on Unsubscribe, or on Shutdown; its channel is then closed.
func (ps *PubSub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return nil, ErrClosed
	}
	ps.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan propagation.TickEvent, ps.buffer),
		ps:      ps,
		cancel:  cancel,
	}

	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]struct{})
	}
	ps.subscribers[topic][sub] = struct{}{}
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends ev to the subscribers of topic and of AllTopics.
func (ps *PubSub) Publish(topic string, ev propagation.TickEvent) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.shutdownMu.Unlock()

	// snapshot so sends happen outside the lock
	ps.mu.RLock()
	subs := make([]*Subscription, 0, len(ps.subscribers[topic])+len(ps.subscribers[AllTopics]))
	for sub := range ps.subscribers[topic] {
		subs = append(subs, sub)
	}
	if topic != AllTopics {
		for sub := range ps.subscribers[AllTopics] {
			subs = append(subs, sub)
		}
	}
	ps.mu.RUnlock()

	for _, sub := range subs {
		sub.send(ev)
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) SubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (ps *PubSub) Dropped() uint64 {
	return ps.dropped.Load()
}

// Shutdown closes every subscription. Later publishes are ignored.
func (ps *PubSub) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	ps.mu.Lock()
	for topic, subs := range ps.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Observer returns a propagation.Observer that publishes every tick on topic.
// An empty topic publishes on the event's run id.
func (ps *PubSub) Observer(topic string) propagation.Observer {
	return propagation.ObserverFunc(func(ev propagation.TickEvent) {
		t := topic
		if t == "" {
			t = ev.RunID
		}
		ps.Publish(t, ev)
	})
}

// Channel returns the subscription's event channel.
func (s *Subscription) Channel() <-chan propagation.TickEvent {
	return s.channel
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	if subs := s.ps.subscribers[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}
	s.ps.mu.Unlock()

	s.close()
}

func (s *Subscription) send(ev propagation.TickEvent) {
	defer func() {
		// subscription closed concurrently between snapshot and send
		_ = recover()
	}()
	select {
	case s.channel <- ev:
	default:
		s.ps.dropped.Add(1)
	}
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
