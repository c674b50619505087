// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"github.com/arlanhendrawinata/wagate/internal/domain/session/model"
	"github.com/arlanhendrawinata/wagate/internal/metrics"
)

// reconcileGauges resets the live-session gauge from a fresh snapshot so the
// gauge can never drift from the registry.
func (m *Manager) reconcileGauges(snaps []model.Snapshot) {
	counts := map[model.Status]int{
		model.StatusPendingQR:      0,
		model.StatusPendingPairing: 0,
		model.StatusConnected:      0,
	}
	for _, s := range snaps {
		counts[s.Status]++
	}
	for status, n := range counts {
		metrics.SetSessionsLive(string(status), float64(n))
	}
}
