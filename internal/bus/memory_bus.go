// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bus implements the notification fan-out behind ports.Bus.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
	"github.com/arlanhendrawinata/wagate/internal/metrics"
)

// MemoryBus is the in-process pub/sub. Delivery is best-effort: a subscriber
// that stops draining its channel loses events rather than stalling the
// publisher, so lifecycle transitions never block on observers.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]*memSub
}

const subBuffer = 64

const dropLogEvery = 100

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memSub)}
}

func topicKind(topic string) string {
	if topic == model.TopicGlobal {
		return "global"
	}
	return "session"
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, event interface{}) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	subs := append([]*memSub(nil), b.subs[topic]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		if !sub.deliver(event) {
			metrics.IncBusDrop(topicKind(topic))
			count := dropCount.Add(1)
			if count%dropLogEvery == 0 {
				log.L().Warn().
					Str("topic", topic).
					Uint64("dropped", count).
					Msg("memory bus dropped event for slow subscriber")
			}
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (ports.Subscription, error) {
	sub := &memSub{
		b:     b,
		topic: topic,
		ch:    make(chan interface{}, subBuffer),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return sub, nil
}

// memSub is one subscription. sendMu serializes delivery against Close: the
// channel is only ever closed under the same mutex that guards sends, so a
// publisher holding a stale subscriber snapshot can never hit a closed
// channel.
type memSub struct {
	b     *MemoryBus
	topic string

	sendMu sync.Mutex
	closed bool
	ch     chan interface{}
}

func (s *memSub) C() <-chan interface{} {
	return s.ch
}

// deliver attempts a non-blocking send. It reports false when the event was
// dropped, either because the buffer is full or the subscription is closed.
func (s *memSub) deliver(event interface{}) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *memSub) Close() error {
	s.b.mu.Lock()
	lst := s.b.subs[s.topic]
	out := lst[:0]
	for _, c := range lst {
		if c != s {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		delete(s.b.subs, s.topic)
	} else {
		s.b.subs[s.topic] = out
	}
	s.b.mu.Unlock()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch) // Signal subscriber to stop
	return nil
}

// Ensure compliance
var _ ports.Bus = (*MemoryBus)(nil)
