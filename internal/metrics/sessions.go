// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsLive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wagate_sessions_live",
			Help: "Current number of live session records by status.",
		},
		[]string{"status"},
	)

	sessionStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagate_session_starts_total",
			Help: "Total session start outcomes.",
		},
		[]string{"result"},
	)

	sessionEndTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagate_session_end_total",
			Help: "Total destroyed sessions by reason.",
		},
		[]string{"reason"},
	)

	disconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagate_session_disconnects_total",
			Help: "Total transport closes by classification.",
		},
		[]string{"class"},
	)

	reconnectsScheduledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagate_session_reconnects_scheduled_total",
			Help: "Total reconnect attempts scheduled by classification.",
		},
		[]string{"class"},
	)

	capacityRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wagate_capacity_rejections_total",
			Help: "Total session starts rejected by the capacity gate.",
		},
	)

	pendingExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wagate_pending_expired_total",
			Help: "Total pending sessions reaped by the expiry sweeper.",
		},
	)

	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagate_messages_sent_total",
			Help: "Total outbound message attempts.",
		},
		[]string{"result"},
	)

	busDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagate_bus_drops_total",
			Help: "Total notification events dropped by slow subscribers.",
		},
		[]string{"topic_kind"},
	)

	busMirrorDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wagate_bus_mirror_drops_total",
			Help: "Total notification events dropped by a saturated mirror queue.",
		},
	)
)

// SetSessionsLive reconciles the live-session gauge for one status.
func SetSessionsLive(status string, n float64) {
	sessionsLive.WithLabelValues(status).Set(n)
}

// RecordSessionStart counts one start outcome: "created", "noop", "forced",
// "rejected" or "error".
func RecordSessionStart(result string) {
	sessionStartsTotal.WithLabelValues(result).Inc()
}

// RecordSessionEnd counts one destroyed session by reason code.
func RecordSessionEnd(reason string) {
	sessionEndTotal.WithLabelValues(reason).Inc()
}

// RecordDisconnect counts one classified transport close.
func RecordDisconnect(class string) {
	disconnectsTotal.WithLabelValues(class).Inc()
}

// RecordReconnectScheduled counts one scheduled restart.
func RecordReconnectScheduled(class string) {
	reconnectsScheduledTotal.WithLabelValues(class).Inc()
}

// RecordCapacityRejection counts one start rejected at the capacity gate.
func RecordCapacityRejection() {
	capacityRejectionsTotal.Inc()
}

// RecordPendingExpired counts sessions reaped by the expiry sweeper.
func RecordPendingExpired(n int) {
	pendingExpiredTotal.Add(float64(n))
}

// RecordMessageSend counts one outbound send: "ok" or "error".
func RecordMessageSend(result string) {
	messagesSentTotal.WithLabelValues(result).Inc()
}

// IncBusMirrorDrop counts one event dropped instead of being mirrored to the
// external fan-out.
func IncBusMirrorDrop() {
	busMirrorDropsTotal.Inc()
}

// IncBusDrop counts one dropped notification event. topicKind is "session"
// or "global" to keep cardinality bounded.
func IncBusDrop(topicKind string) {
	busDropsTotal.WithLabelValues(topicKind).Inc()
}
