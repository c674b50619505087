// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
	"github.com/arlanhendrawinata/wagate/internal/log"
	"github.com/arlanhendrawinata/wagate/internal/metrics"
)

const (
	mirrorTimeout   = 2 * time.Second
	mirrorQueueSize = 256
)

// RedisMirrorBus wraps an inner bus and additionally publishes every event
// to a Redis channel of the same name, so external consumers can observe
// session events without attaching to the daemon's SSE endpoints. The mirror
// runs on its own worker behind a bounded queue: local delivery and the
// publisher never wait on Redis, and events overflowing the queue are
// dropped and counted.
type RedisMirrorBus struct {
	inner ports.Bus
	rdb   *redis.Client

	queue chan mirrorMsg
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

type mirrorMsg struct {
	topic   string
	payload []byte
}

// NewRedisMirrorBus connects to Redis, verifies the connection and starts
// the mirror worker.
func NewRedisMirrorBus(ctx context.Context, inner ports.Bus, addr, password string, db int) (*RedisMirrorBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis mirror ping %s: %w", addr, err)
	}
	return newMirrorBus(inner, rdb), nil
}

// NewRedisMirrorBusFromClient wires an existing client; used by tests.
func NewRedisMirrorBusFromClient(inner ports.Bus, rdb *redis.Client) *RedisMirrorBus {
	return newMirrorBus(inner, rdb)
}

func newMirrorBus(inner ports.Bus, rdb *redis.Client) *RedisMirrorBus {
	b := &RedisMirrorBus{
		inner: inner,
		rdb:   rdb,
		queue: make(chan mirrorMsg, mirrorQueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go b.mirrorLoop()
	return b
}

// mirrorLoop drains the queue onto Redis. Publish failures are logged and
// the event is lost; the loop itself never stops on error.
func (b *RedisMirrorBus) mirrorLoop() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case msg := <-b.queue:
			ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			err := b.rdb.Publish(ctx, msg.topic, msg.payload).Err()
			cancel()
			if err != nil {
				log.L().Warn().
					Err(err).
					Str("topic", msg.topic).
					Msg("redis mirror publish failed")
			}
		}
	}
}

func (b *RedisMirrorBus) Publish(ctx context.Context, topic string, event interface{}) error {
	if err := b.inner.Publish(ctx, topic, event); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.L().Warn().
			Err(err).
			Str("topic", topic).
			Msg("redis mirror skipped unmarshalable event")
		return nil
	}

	select {
	case b.queue <- mirrorMsg{topic: topic, payload: payload}:
	case <-b.stop:
	default:
		metrics.IncBusMirrorDrop()
	}
	return nil
}

func (b *RedisMirrorBus) Subscribe(ctx context.Context, topic string) (ports.Subscription, error) {
	return b.inner.Subscribe(ctx, topic)
}

// Close stops the mirror worker, abandoning queued events, then closes the
// client.
func (b *RedisMirrorBus) Close() error {
	b.once.Do(func() { close(b.stop) })
	<-b.done
	return b.rdb.Close()
}

var _ ports.Bus = (*RedisMirrorBus)(nil)
