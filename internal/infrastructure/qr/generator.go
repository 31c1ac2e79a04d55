package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// PNG renders a QR payload as a PNG image
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	data, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: failed to encode payload: %w", err)
	}
	return data, nil
}

// PNGBase64 renders a QR payload as a base64-encoded PNG, the form the
// persistence layer and email templates consume.
func PNGBase64(payload string, size int) (string, error) {
	data, err := PNG(payload, size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
