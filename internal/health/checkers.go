// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
)

// CheckFunc adapts a plain function into a Checker.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewCheckFunc creates a named checker from fn.
func NewCheckFunc(name string, fn func(ctx context.Context) CheckResult) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string { return c.name }

func (c *CheckFunc) Check(ctx context.Context) CheckResult {
	return c.fn(ctx)
}

// StoreChecker verifies the credential store answers an enumeration round
// trip.
type StoreChecker struct {
	listIDs func(ctx context.Context) ([]string, error)
}

// NewStoreChecker creates a checker backed by the store's ListIDs call.
func NewStoreChecker(listIDs func(ctx context.Context) ([]string, error)) *StoreChecker {
	return &StoreChecker{listIDs: listIDs}
}

func (c *StoreChecker) Name() string { return "credential_store" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ids, err := c.listIDs(ctx)
	if err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d persisted sessions", len(ids)),
	}
}

// SessionsChecker reports the session registry's utilization. Running at
// capacity degrades readiness without failing it: existing sessions are still
// served.
type SessionsChecker struct {
	count    func() int
	capacity int
}

// NewSessionsChecker creates a checker over the live-session count.
func NewSessionsChecker(count func() int, capacity int) *SessionsChecker {
	return &SessionsChecker{count: count, capacity: capacity}
}

func (c *SessionsChecker) Name() string { return "sessions" }

func (c *SessionsChecker) Check(context.Context) CheckResult {
	n := c.count()
	if c.capacity > 0 && n >= c.capacity {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("at capacity: %d/%d", n, c.capacity),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d/%d sessions", n, c.capacity),
	}
}
