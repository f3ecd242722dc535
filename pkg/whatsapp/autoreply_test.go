package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAutoReply(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC)

	cases := []struct {
		body  string
		want  string
		match bool
	}{
		{"hola", "¡Hola! ¿Cómo estás?", true},
		{"  HOLA ", "¡Hola! ¿Cómo estás?", true},
		{"Hola 👋", "¡Hola! ¿Cómo estás?", true},
		{"Adiós", "¡Adiós! Que tengas un buen día.", true},
		{"¿Cómo estás?", "Estoy bien, gracias por preguntar.", true},
		{"gracias 🙏", "De nada, ¡estoy aquí para ayudarte!", true},
		{"hora", "La hora actual es 14:03:09.", true},
		{"!ping", "pong", true},
		{"!PING", "", false},
		{"hola amigo", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := AutoReply(tc.body, now)
		assert.Equal(t, tc.match, ok, tc.body)
		assert.Equal(t, tc.want, got, tc.body)
	}
}

func TestAutoReplyTimeIsCurrent(t *testing.T) {
	first, _ := AutoReply("hora", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	second, _ := AutoReply("hora", time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))
	assert.NotEqual(t, first, second)
}
