package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email"         json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	CreatedAt    time.Time          `bson:"created_at"    json:"created_at"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the authenticated-user context handed to clients.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}

type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent announces a session change. Session is nil for EventSignedOut.
// TokenID names the token the event concerns; NextTokenID is the token that
// replaces it after a refresh.
type AuthEvent struct {
	Type        AuthEventType `json:"type"`
	UserID      string        `json:"user_id"`
	TokenID     string        `json:"-"`
	NextTokenID string        `json:"-"`
	Session     *Session      `json:"session,omitempty"`
}
