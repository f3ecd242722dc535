package whatsapp

import (
	"encoding/base64"
	"os"
	"time"

	"github.com/mdp/qrterminal/v3"
	qrCode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

type QR struct {
	Code        string    `json:"code"`
	Image       string    `json:"image"`
	GeneratedAt time.Time `json:"generatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func printQR(code string) {
	qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
}

// QRPNG renders a pairing code as a PNG image.
func QRPNG(code string) ([]byte, error) {
	return QRPNGSize(code, qrImageSize)
}

// QRPNGSize renders code at size pixels, clamped to 64..1024.
func QRPNGSize(code string, size int) ([]byte, error) {
	size = min(max(size, 64), 1024)
	return qrCode.Encode(code, qrCode.Medium, size)
}

// QRDataURL wraps a PNG as an inline image URL.
func QRDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// QR returns the latest pairing code as a PNG data URL.
func (s *Session) QR() (*QR, error) {
	if s.ready.Load() {
		return nil, ErrAlreadyPaired
	}

	s.mu.RLock()
	code, at, timeout := s.lastQR, s.lastQRAt, s.lastQRTimeout
	s.mu.RUnlock()

	if code == "" {
		return nil, ErrNoQR
	}

	png, err := QRPNG(code)
	if err != nil {
		return nil, err
	}

	return &QR{
		Code:        code,
		Image:       QRDataURL(png),
		GeneratedAt: at,
		ExpiresAt:   at.Add(timeout),
	}, nil
}
