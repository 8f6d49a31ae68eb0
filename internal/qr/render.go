package qr

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// PNG renders content as a QR image of size pixels square.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr: empty content")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
