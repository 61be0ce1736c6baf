package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every parse or validation failure; callers only
// need to know the token is not usable.
var ErrInvalidToken = errors.New("invalid token")

// TokenExpiry is the default token lifetime.
const TokenExpiry = 12 * time.Hour

// Claims carries the dashboard login identity. The JTI doubles as the
// session id for the pending-change queue, so every login gets a fresh
// empty queue.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session returns the session id bound to this token.
func (c *Claims) Session() string { return c.ID }

// CredentialStore validates a username and password pair.
type CredentialStore interface {
	Authenticate(ctx context.Context, username, password string) error
}

// Manager issues and validates HS256 dashboard tokens.
type Manager struct {
	secret []byte
	expiry time.Duration
	creds  CredentialStore
}

// NewManager constructs a Manager. A zero expiry falls back to TokenExpiry.
func NewManager(secret string, expiry time.Duration, creds CredentialStore) *Manager {
	if expiry <= 0 {
		expiry = TokenExpiry
	}
	return &Manager{secret: []byte(secret), expiry: expiry, creds: creds}
}

// Login checks the credentials and returns a signed token on success.
func (m *Manager) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := m.creds.Authenticate(ctx, username, password); err != nil {
		return "", err
	}
	return m.issue(username)
}

func (m *Manager) issue(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims.
func (m *Manager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
