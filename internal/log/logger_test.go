// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

// The accessors return pointers so zerolog's level methods, which have
// pointer receivers, can be chained on the call directly.
func TestAccessorsChainDirectly(t *testing.T) {
	if L() != L() {
		t.Fatal("L must hand out the same base logger")
	}

	L().Debug().Str("k", "v").Msg("base chain")

	ctx := ContextWithRequestID(context.Background(), "req-42")
	WithComponentFromContext(ctx, "test").Debug().Msg("derived chain")
}

func TestWithComponentFromContextAnnotatesCtxLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	WithComponentFromContext(ctx, "widget").Info().Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry[FieldComponent] != "widget" {
		t.Fatalf("component = %v, want widget", entry[FieldComponent])
	}
}
