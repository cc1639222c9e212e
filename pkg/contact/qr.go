package contact

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QR code image bounds, in pixels.
const (
	MinQRSize     = 128
	MaxQRSize     = 1024
	DefaultQRSize = 256
)

// ErrQRSize is returned for a size outside MinQRSize..MaxQRSize.
var ErrQRSize = fmt.Errorf("size must be between %d and %d", MinQRSize, MaxQRSize)

// ParseLevel converts a recovery level option: "l" (low), "m" (medium), "h" (high), "x" (max).
// An empty string is medium.
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch s {
	case "l":
		return qrcode.Low, nil
	case "m", "":
		return qrcode.Medium, nil
	case "h":
		return qrcode.High, nil
	case "x":
		return qrcode.Highest, nil
	default:
		return qrcode.Medium, errors.New("level must be one of l,m,h,x")
	}
}

// QRCode renders content as a square PNG of the given size.
func QRCode(content string, level qrcode.RecoveryLevel, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("nothing to encode")
	}
	if size < MinQRSize || size > MaxQRSize {
		return nil, ErrQRSize
	}
	png, err := qrcode.Encode(content, level, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
