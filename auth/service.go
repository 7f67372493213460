package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/GabrielGBraga/mise/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("unable to validate email address: invalid format")
)

type Emitter interface {
	Emit(ev models.AuthEvent)
}

type Service struct {
	users  UserStore
	tokens *Tokens
	events Emitter
	now    func() time.Time
}

func NewService(users UserStore, tokens *Tokens, events Emitter) *Service {
	return &Service{users: users, tokens: tokens, events: events, now: time.Now}
}

func (s *Service) Tokens() *Tokens { return s.tokens }

func (s *Service) Register(ctx context.Context, email, password string) (models.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Session{}, err
	}
	if len(password) < 6 {
		return models.Session{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return models.Session{}, err
	}
	return s.startSession(user, models.EventSignedIn, "")
}

func (s *Service) Login(ctx context.Context, email, password string) (models.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Session{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return models.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.Session{}, ErrInvalidCredentials
	}
	return s.startSession(user, models.EventSignedIn, "")
}

// Logout revokes the presented token and tells whoever listens on it.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.events.Emit(models.AuthEvent{Type: models.EventSignedOut, UserID: claims.Subject, TokenID: claims.ID})
	return nil
}

// Refresh swaps the presented token for a fresh one.
func (s *Service) Refresh(ctx context.Context, claims *Claims) (models.Session, error) {
	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return models.Session{}, err
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return models.Session{}, fmt.Errorf("revoke token: %w", err)
	}
	return s.startSession(user, models.EventTokenRefreshed, claims.ID)
}

// Current describes the session the presented token belongs to.
func (s *Service) Current(ctx context.Context, claims *Claims, token string) (models.Session, error) {
	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
		User:        models.SessionUser{ID: user.ID.Hex(), Email: user.Email},
	}, nil
}

func (s *Service) userFromClaims(ctx context.Context, claims *Claims) (models.User, error) {
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return models.User{}, ErrInvalidToken
	}
	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return models.User{}, ErrInvalidToken
	}
	return user, err
}

func (s *Service) startSession(user models.User, kind models.AuthEventType, replaces string) (models.Session, error) {
	sess, tokenID, err := s.tokens.Issue(user)
	if err != nil {
		return models.Session{}, err
	}
	ev := models.AuthEvent{Type: kind, UserID: sess.User.ID, TokenID: tokenID, Session: &sess}
	if replaces != "" {
		ev.TokenID, ev.NextTokenID = replaces, tokenID
	}
	s.events.Emit(ev)
	return sess, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
