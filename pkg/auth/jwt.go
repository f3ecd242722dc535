package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrJWTNotConfigured = errors.New("JWT_SECRET_KEY not configured")

// OperatorClaims identify whoever may run session management operations.
type OperatorClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

const ScopeSession = "session"

// GenerateToken signs an HS256 token for subject valid for ttl.
func GenerateToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if JWTSecretKey == "" {
		return "", time.Time{}, ErrJWTNotConfigured
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := OperatorClaims{
		Scope: ScopeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(JWTSecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ValidateToken(tokenString string) (*OperatorClaims, error) {
	if JWTSecretKey == "" {
		return nil, ErrJWTNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(JWTSecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*OperatorClaims); ok && token.Valid && claims.Scope == ScopeSession {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
