// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
)

const credPrefix = "cred:"

// BadgerStore is the default embedded credential store.
// Keys: "cred:<id>" -> opaque blob.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Load(ctx context.Context, id string) (ports.Credentials, ports.SaveFunc, error) {
	key := []byte(credPrefix + id)

	var creds ports.Credentials
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			creds = append(ports.Credentials(nil), val...)
			return nil
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, err
	}

	save := func(ctx context.Context, creds ports.Credentials) error {
		buf := append([]byte(nil), creds...)
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, buf)
		})
	}
	return creds, save, nil
}

func (s *BadgerStore) PurgeAll(ctx context.Context, id string) error {
	key := []byte(credPrefix + id)
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *BadgerStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(credPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			ids = append(ids, string(k[len(credPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

var _ ports.CredentialStore = (*BadgerStore)(nil)
