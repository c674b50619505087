// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package qr

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToDisplayable(t *testing.T) {
	r := NewPNGRenderer()

	uri, err := r.ToDisplayable("2@AbCdEf1234,xyz==,1700000000")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	require.True(t, len(raw) > 8)
	require.Equal(t, "\x89PNG", string(raw[:4]))
}

func TestToDisplayableRejectsEmptyPayload(t *testing.T) {
	r := NewPNGRenderer()
	_, err := r.ToDisplayable("")
	require.Error(t, err)
}
