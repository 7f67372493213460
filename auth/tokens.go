package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GabrielGBraga/mise/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRevokedToken = errors.New("token has been revoked")
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Revoker remembers signed-out token ids.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

func NewTokens(secret string, ttl time.Duration, revoker Revoker) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, revoker: revoker, now: time.Now}
}

// Issue signs a new token for user and returns the session with the token id.
func (t *Tokens) Issue(user models.User) (models.Session, string, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return models.Session{}, "", fmt.Errorf("sign token: %w", err)
	}

	return models.Session{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   exp.UTC().Truncate(time.Second),
		User:        models.SessionUser{ID: user.ID.Hex(), Email: user.Email},
	}, claims.ID, nil
}

// Verify parses the token and checks it against the revocation list.
func (t *Tokens) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := t.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	return t.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// MemoryRevocations is the revocation list used when redis is not configured.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = until
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	return ok && exp.After(m.now()), nil
}
