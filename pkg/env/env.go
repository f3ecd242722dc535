package env

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

var ErrEnvEmpty = errors.New("environment variable has an empty value")

// =============================================================================
// Environment Variables with Defaults
// =============================================================================

// GetEnvStringOrDefault returns the env value or a default if not set
func GetEnvStringOrDefault(envName, defaultValue string) string {
	v, err := GetEnvString(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvBoolOrDefault returns the env value or a default if not set or invalid
func GetEnvBoolOrDefault(envName string, defaultValue bool) bool {
	v, err := GetEnvBool(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvIntOrDefault returns the env value or a default if not set or invalid
func GetEnvIntOrDefault(envName string, defaultValue int) int {
	v, err := GetEnvInt(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvFloatOrDefault returns the env value or a default if not set or invalid
func GetEnvFloatOrDefault(envName string, defaultValue float64) float64 {
	v, err := GetEnvFloat64(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvDurationOrDefault returns the env value as duration or a default if not set
func GetEnvDurationOrDefault(envName string, defaultValue time.Duration) time.Duration {
	v, err := GetEnvString(envName)
	if err != nil {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

// GetEnvListOrDefault splits a comma separated value, dropping empty items
func GetEnvListOrDefault(envName string, defaultValue []string) []string {
	v, err := GetEnvString(envName)
	if err != nil {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// GetEnvBytesOrDefault parses sizes such as "512K", "8M" or "1G"
func GetEnvBytesOrDefault(envName string, defaultValue int) int {
	v, err := GetEnvString(envName)
	if err != nil {
		return defaultValue
	}
	n, err := ParseBytes(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// =============================================================================
// Core Environment Variable Getters
// =============================================================================

func SanitizeEnv(envName string) (string, error) {
	if len(envName) == 0 {
		return "", errors.New("environment variable name should not be empty")
	}

	retValue := strings.TrimSpace(os.Getenv(envName))
	if len(retValue) == 0 {
		return "", ErrEnvEmpty
	}

	return retValue, nil
}

func GetEnvString(envName string) (string, error) {
	return SanitizeEnv(envName)
}

func GetEnvBool(envName string) (bool, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return false, err
	}

	return strconv.ParseBool(envValue)
}

func GetEnvInt(envName string) (int, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return 0, err
	}

	retValue, err := strconv.ParseInt(envValue, 0, 0)
	if err != nil {
		return 0, err
	}

	return int(retValue), nil
}

func GetEnvFloat64(envName string) (float64, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(envValue, 64)
}

// ParseBytes converts a human size ("8M") into bytes.
func ParseBytes(size string) (int, error) {
	size = strings.TrimSpace(strings.ToUpper(size))
	size = strings.TrimSuffix(size, "B")
	if size == "" {
		return 0, ErrEnvEmpty
	}
	multiplier := 1
	switch {
	case strings.HasSuffix(size, "K"):
		multiplier = 1024
		size = strings.TrimSuffix(size, "K")
	case strings.HasSuffix(size, "M"):
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(size, "M")
	case strings.HasSuffix(size, "G"):
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(size, "G")
	}
	value, err := strconv.Atoi(strings.TrimSpace(size))
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, errors.New("size must be positive")
	}
	return value * multiplier, nil
}
