package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

// MaxMessageGraphemes is the longest text body WhatsApp accepts.
const MaxMessageGraphemes = 65536

var (
	phonePattern = regexp.MustCompile(`^[1-9][0-9]{5,15}$`)

	phoneSeparators = strings.NewReplacer(
		" ", "",
		"\t", "",
		"-", "",
		".", "",
		"(", "",
		")", "",
		"/", "",
	)

	ErrPhoneEmpty   = errors.New("phone number cannot be empty")
	ErrPhoneFormat  = errors.New("phone number must be digits only and at least 6 characters")
	ErrPhoneLocal   = errors.New("phone number must be in international format without leading 0")
	ErrMessageEmpty = errors.New("message cannot be empty")
	ErrMessageLong  = errors.New("message is too long")
	ErrURLEmpty     = errors.New("url cannot be empty")
	ErrURLInvalid   = errors.New("url must be a valid http or https address")
)

// NormalizePhone strips separators, a WhatsApp server suffix and a leading "+".
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if at := strings.IndexRune(phone, '@'); at >= 0 {
		phone = phone[:at]
	}
	phone = phoneSeparators.Replace(phone)
	return strings.TrimPrefix(phone, "+")
}

// ValidatePhone ensures international format (no leading 0, digits only, length 6-16).
func ValidatePhone(phone string) error {
	trimmed := NormalizePhone(phone)
	if trimmed == "" {
		return ErrPhoneEmpty
	}
	if strings.HasPrefix(trimmed, "0") {
		return ErrPhoneLocal
	}
	if !phonePattern.MatchString(trimmed) {
		return ErrPhoneFormat
	}
	return nil
}

// ValidateMessage counts user-perceived characters, not bytes.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrMessageEmpty
	}
	if uniseg.GraphemeClusterCount(text) > MaxMessageGraphemes {
		return ErrMessageLong
	}
	return nil
}

// ValidateURL ensures a non-empty absolute http(s) URL.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrURLEmpty
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return ErrURLInvalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrURLInvalid
	}
	return nil
}
