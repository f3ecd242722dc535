package whatsapp

import (
	"errors"
	"net/http"
	"strings"

	"go.mau.fi/whatsmeow"

	"github.com/gdbrns/go-whatsapp-gateway/pkg/media"
	"github.com/gdbrns/go-whatsapp-gateway/pkg/validation"
)

var (
	ErrClientNotReady      = errors.New("el cliente de WhatsApp no está listo")
	ErrNotOnWhatsApp       = errors.New("destination number is not registered on WhatsApp")
	ErrRecipientUnresolved = errors.New("recipient LID could not be resolved")
	ErrSessionBusy         = errors.New("another session operation is already running")
	ErrNoQR                = errors.New("no QR code available")
	ErrAlreadyPaired       = errors.New("session is already paired")
)

// Kind is the coarse category an error falls into for API responses.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotReady
	KindTransient
	KindInvalidInput
	KindNotOnWhatsApp
	KindRecipientUnresolved
	KindImageNotFound
	KindImageTimeout
	KindBusy
	KindQRUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotReady:
		return "not_ready"
	case KindTransient:
		return "transient"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotOnWhatsApp:
		return "not_on_whatsapp"
	case KindRecipientUnresolved:
		return "recipient_unresolved"
	case KindImageNotFound:
		return "image_not_found"
	case KindImageTimeout:
		return "image_timeout"
	case KindBusy:
		return "busy"
	case KindQRUnavailable:
		return "qr_unavailable"
	default:
		return "unknown"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotReady, KindTransient:
		return http.StatusServiceUnavailable
	case KindInvalidInput, KindRecipientUnresolved:
		return http.StatusBadRequest
	case KindNotOnWhatsApp, KindImageNotFound, KindQRUnavailable:
		return http.StatusNotFound
	case KindImageTimeout:
		return http.StatusRequestTimeout
	case KindBusy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing text for the kind.
func (k Kind) Message() string {
	switch k {
	case KindNotReady:
		return "El cliente de WhatsApp no está listo"
	case KindTransient:
		return "Error temporal de protocolo, intenta nuevamente"
	case KindInvalidInput:
		return "Datos de entrada inválidos"
	case KindNotOnWhatsApp:
		return "El número de destino no está registrado en WhatsApp"
	case KindRecipientUnresolved:
		return "No se pudo resolver el destinatario (LID)"
	case KindImageNotFound:
		return "No se encontró la imagen en la URL indicada"
	case KindImageTimeout:
		return "Tiempo de espera agotado al descargar la imagen"
	case KindBusy:
		return "Ya hay una operación de sesión en curso"
	case KindQRUnavailable:
		return "No hay un código QR disponible"
	default:
		return "Error al enviar mensaje"
	}
}

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrClientNotReady, KindNotReady},
	{whatsmeow.ErrNotConnected, KindNotReady},
	{whatsmeow.ErrNotLoggedIn, KindNotReady},
	{whatsmeow.ErrIQTimedOut, KindTransient},
	{ErrNotOnWhatsApp, KindNotOnWhatsApp},
	{ErrRecipientUnresolved, KindRecipientUnresolved},
	{ErrSessionBusy, KindBusy},
	{ErrNoQR, KindQRUnavailable},
	{ErrAlreadyPaired, KindQRUnavailable},
	{media.ErrImageNotFound, KindImageNotFound},
	{media.ErrImageTimeout, KindImageTimeout},
	{media.ErrInvalidURL, KindInvalidInput},
	{media.ErrNotAnImage, KindInvalidInput},
	{media.ErrImageTooLarge, KindInvalidInput},
	{validation.ErrPhoneEmpty, KindInvalidInput},
	{validation.ErrPhoneFormat, KindInvalidInput},
	{validation.ErrPhoneLocal, KindInvalidInput},
	{validation.ErrMessageEmpty, KindInvalidInput},
	{validation.ErrMessageLong, KindInvalidInput},
	{validation.ErrURLEmpty, KindInvalidInput},
	{validation.ErrURLInvalid, KindInvalidInput},
}

// Classify checks typed errors first and falls back to matching the text of
// untyped ones.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no está listo"), strings.Contains(lower, "not ready"):
		return KindNotReady
	case strings.Contains(msg, "Protocol error"):
		return KindTransient
	case strings.Contains(lower, "not connected"):
		return KindNotReady
	case isLIDError(err):
		return KindRecipientUnresolved
	}
	return KindUnknown
}

// StatusCode is shorthand for Classify(err).HTTPStatus().
func StatusCode(err error) int {
	return Classify(err).HTTPStatus()
}

func isRetryable(err error) bool {
	return Classify(err) == KindTransient
}

// isLIDError matches on case: a lower-case "lid" also occurs in words like "invalid".
func isLIDError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "LID") || strings.Contains(msg, "Lid is missing")
}
