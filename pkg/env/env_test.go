package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes(t *testing.T) {
	cases := map[string]int{
		"512":  512,
		"4K":   4 * 1024,
		"8M":   8 * 1024 * 1024,
		"8mb":  8 * 1024 * 1024,
		" 1G ": 1024 * 1024 * 1024,
	}
	for in, want := range cases {
		got, err := ParseBytes(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "M", "-1K", "abc"} {
		_, err := ParseBytes(in)
		assert.Error(t, err, in)
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("GW_TEST_INT", "nope")
	t.Setenv("GW_TEST_DURATION", "90s")
	t.Setenv("GW_TEST_LIST", " a, ,b ,")
	t.Setenv("GW_TEST_BLANK", "   ")

	assert.Equal(t, 7, GetEnvIntOrDefault("GW_TEST_INT", 7))
	assert.Equal(t, 90*time.Second, GetEnvDurationOrDefault("GW_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b"}, GetEnvListOrDefault("GW_TEST_LIST", nil))
	assert.Equal(t, "fallback", GetEnvStringOrDefault("GW_TEST_BLANK", "fallback"))
	assert.True(t, GetEnvBoolOrDefault("GW_TEST_MISSING", true))
}
