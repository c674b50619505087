// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arlanhendrawinata/wagate/internal/domain/session/ports"
)

func TestSweepOnceReapsOnlyExpiredPending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sweeper := &Sweeper{Manager: f.m, Interval: time.Hour, Expiry: 2 * time.Minute}

	_, err := f.m.Start(ctx, "stale-pending", "", false)
	require.NoError(t, err)
	_, err = f.m.Start(ctx, "fresh-pending", "", false)
	require.NoError(t, err)
	_, err = f.m.Start(ctx, "old-connected", "", false)
	require.NoError(t, err)
	f.tr.sink("old-connected").OnOpened("acct")

	// Nothing is old enough yet.
	require.Zero(t, sweeper.SweepOnce(ctx, time.Now()))
	require.Equal(t, 3, f.m.Count())

	// Age the stale session past the threshold by hand.
	sess := f.m.current("stale-pending")
	sess.mu.Lock()
	sess.rec.CreatedAt = time.Now().Add(-3 * time.Minute)
	sess.mu.Unlock()

	require.Equal(t, 1, sweeper.SweepOnce(ctx, time.Now()))

	_, err = f.m.Snapshot("stale-pending")
	require.ErrorIs(t, err, ports.ErrSessionNotFound)
	require.Equal(t, 1, f.st.purgeCount("stale-pending"))

	_, err = f.m.Snapshot("fresh-pending")
	require.NoError(t, err)
	_, err = f.m.Snapshot("old-connected")
	require.NoError(t, err)
}

func TestSweepNeverReapsConnectedRegardlessOfAge(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sweeper := &Sweeper{Manager: f.m, Interval: time.Hour, Expiry: 2 * time.Minute}

	_, err := f.m.Start(ctx, "bot1", "", false)
	require.NoError(t, err)
	f.tr.sink("bot1").OnOpened("acct")

	sess := f.m.current("bot1")
	sess.mu.Lock()
	sess.rec.CreatedAt = time.Now().Add(-24 * time.Hour)
	sess.mu.Unlock()

	require.Zero(t, sweeper.SweepOnce(ctx, time.Now()))
	_, err = f.m.Snapshot("bot1")
	require.NoError(t, err)
}

func TestSweeperRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t, nil)
	sweeper := &Sweeper{Manager: f.m, Interval: time.Millisecond, Expiry: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
