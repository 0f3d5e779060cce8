// Package auth issues and verifies the short-lived service tokens that
// trusted platform services use to post notifications.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceIdentity is the caller behind a validated service token.
type ServiceIdentity struct {
	Service string `json:"service"`
}

// ExtractToken extracts the token from an Authorization header value.
// Accepts "Bearer <token>" or a bare token.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("empty authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		authHeader = parts[1]
	}

	token := strings.TrimSpace(authHeader)
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

// ServiceJWT signs and verifies HS256 service tokens.
type ServiceJWT struct {
	SecretKey   []byte
	TokenExpiry time.Duration
}

// NewServiceJWT creates a service token authority.
func NewServiceJWT(secretKey string, expiry time.Duration) (*ServiceJWT, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	return &ServiceJWT{
		SecretKey:   []byte(secretKey),
		TokenExpiry: expiry,
	}, nil
}

type serviceClaims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

// Generate signs a token asserting the given service identity.
func (a *ServiceJWT) Generate(service string) (string, error) {
	now := time.Now()
	claims := serviceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "feedhub",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.SecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

// Validate verifies a service token and returns the identity it asserts.
func (a *ServiceJWT) Validate(tokenString string) (*ServiceIdentity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &serviceClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.SecretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid service token: %w", err)
	}

	claims, ok := token.Claims.(*serviceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid service token claims")
	}
	if claims.Service == "" {
		return nil, errors.New("service token missing service identity")
	}
	return &ServiceIdentity{Service: claims.Service}, nil
}
