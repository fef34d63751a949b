package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"photosync-backend/internal/config"
)

// JWTManager validates (and, for tests and tooling, issues) the API bearer
// tokens minted by the external session service. The token's subject is the
// user key every queue and cache operation is scoped by.
type JWTManager struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

// Claims carried in the API token.
type Claims struct {
	UserKey string `json:"user_key"`
	jwt.RegisteredClaims
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret:   []byte(cfg.Auth.JWTSecret),
		issuer:   cfg.Auth.JWTIssuer,
		lifetime: cfg.Auth.TokenLifetime,
	}
}

// Generate issues a signed token for the given user key.
func (m *JWTManager) Generate(userKey string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserKey: userKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token, returning its claims.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserKey == "" {
		return nil, fmt.Errorf("token missing user key")
	}
	return claims, nil
}
