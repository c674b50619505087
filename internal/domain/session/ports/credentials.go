// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import "context"

// CredentialStore persists opaque credential material, namespaced per
// session id. Implementations are safe for concurrent use; different session
// ids never contend.
type CredentialStore interface {
	// Load returns the persisted material for id (nil when absent) and a
	// save callback bound to the same id.
	Load(ctx context.Context, id string) (Credentials, SaveFunc, error)
	// PurgeAll removes every artifact persisted for id.
	PurgeAll(ctx context.Context, id string) error
	// ListIDs enumerates the distinct session ids with persisted material.
	ListIDs(ctx context.Context) ([]string, error)
	Close() error
}
