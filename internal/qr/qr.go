// Package qr renders pairing tokens into displayable artifacts.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// DataURI encodes a pairing token as a QR code PNG wrapped in a data URI,
// ready to drop into an <img> src on the observer side.
func DataURI(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("qr: empty token")
	}
	png, err := qrcode.Encode(token, qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("qr: encode: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
