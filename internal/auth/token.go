package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yakubjanov004/telecom-support-engine/internal/config"
	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

var errInvalidToken = errors.New("invalid token")

// Claims carries the pre-verified principal inside an access token. The
// consumer-facing gateways authenticate users; the engine only decodes who
// is acting and in which role.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and parses access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a manager from auth config.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	ttl := time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(cfg.JWTSecret), ttl: ttl}
}

// Issue mints a signed token for the given subject and role.
func (m *TokenManager) Issue(subjectID string, role domain.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates a token and returns its claims.
func (m *TokenManager) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, errInvalidToken
	}
	return claims, nil
}
