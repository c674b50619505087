// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
)

// MemoryStore keeps credential material in process memory. It exists for
// tests and local prototyping; restarts lose every session.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (ports.Credentials, ports.SaveFunc, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	var creds ports.Credentials
	if ok {
		creds = append(ports.Credentials(nil), blob...)
	}

	save := func(ctx context.Context, creds ports.Credentials) error {
		s.mu.Lock()
		s.blobs[id] = append([]byte(nil), creds...)
		s.mu.Unlock()
		return nil
	}
	return creds, save, nil
}

func (s *MemoryStore) PurgeAll(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ ports.CredentialStore = (*MemoryStore)(nil)
