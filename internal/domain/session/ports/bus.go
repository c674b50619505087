// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import "context"

// Bus is the notification fan-out. Delivery is asynchronous best-effort;
// publishing must never block session transitions.
type Bus interface {
	Publish(ctx context.Context, topic string, event interface{}) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription is one subscriber's view of a topic.
type Subscription interface {
	C() <-chan interface{}
	Close() error
}

// Renderer turns a raw scannable credential payload into a render-ready
// representation for observers.
type Renderer interface {
	ToDisplayable(payload string) (string, error)
}
