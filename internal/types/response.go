package types

import (
	"time"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/webhook"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-gateway/pkg/whatsapp"
)

type ResponseSend struct {
	Receipt *pkgWhatsApp.Receipt `json:"receipt"`
}

type ResponseImageInfo struct {
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
	FileName string `json:"fileName"`
	Source   string `json:"source"`
}

type ResponseSendImage struct {
	Receipt   *pkgWhatsApp.Receipt `json:"receipt"`
	ImageInfo ResponseImageInfo    `json:"imageInfo"`
}

type ResponseMessages struct {
	Messages []pkgWhatsApp.ReceivedMessage `json:"messages"`
	Count    int                           `json:"count"`
}

type ResponseBulkRow struct {
	Line          int                  `json:"line"`
	NumeroDestino string               `json:"numeroDestino"`
	Status        string               `json:"status"`
	Code          int                  `json:"code"`
	Error         string               `json:"error,omitempty"`
	Receipt       *pkgWhatsApp.Receipt `json:"receipt,omitempty"`
}

type ResponseBulk struct {
	Total   int               `json:"total"`
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Results []ResponseBulkRow `json:"results"`
}

type ResponseDiagnostics struct {
	pkgWhatsApp.Diagnostics
	WebhookDeliveries []webhook.DeliveryLog `json:"webhookDeliveries"`
}

type ResponseQR struct {
	QRCode      string    `json:"qrcode"`
	Image       string    `json:"image"`
	GeneratedAt time.Time `json:"generatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Timeout     int       `json:"timeout"`
}

type ResponseToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}
