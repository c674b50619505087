// Copyright (c) 2026 arlanhendrawinata
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package qr renders scannable pairing payloads into data URIs that API
// clients can embed directly in an <img> tag.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 256

// PNGRenderer encodes payloads as PNG QR codes.
type PNGRenderer struct{}

func NewPNGRenderer() *PNGRenderer { return &PNGRenderer{} }

// ToDisplayable returns a data:image/png;base64 URI for payload.
func (r *PNGRenderer) ToDisplayable(payload string) (string, error) {
	if payload == "" {
		return "", fmt.Errorf("empty qr payload")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, pngSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
