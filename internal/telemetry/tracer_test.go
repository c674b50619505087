// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlanhendrawinata/wagate/internal/config"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), config.TelemetryConfig{Enabled: false}, "wagate", "test")
	require.NoError(t, err)
	require.Nil(t, p.tp)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		ExporterType: "udp",
		Endpoint:     "localhost:4317",
	}, "wagate", "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported exporter type")
}

func TestTracerReturnsNamedTracer(t *testing.T) {
	_, err := NewProvider(context.Background(), config.TelemetryConfig{Enabled: false}, "wagate", "test")
	require.NoError(t, err)

	tr := Tracer("session-manager")
	require.NotNil(t, tr)

	_, span := tr.Start(context.Background(), "start")
	span.End()
}
