package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/GabrielGBraga/mise/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	return c.startSession(ctx, "/api/v1/auth/register", credentials{Email: email, Password: password}, models.EventSignedIn)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	return c.startSession(ctx, "/api/v1/auth/login", credentials{Email: email, Password: password}, models.EventSignedIn)
}

// Refresh swaps the held token for a new one.
func (c *Client) Refresh(ctx context.Context) (models.Session, error) {
	return c.startSession(ctx, "/api/v1/auth/token/refresh", nil, models.EventTokenRefreshed)
}

func (c *Client) startSession(ctx context.Context, path string, in any, kind models.AuthEventType) (models.Session, error) {
	var sess models.Session
	if err := c.request(ctx, http.MethodPost, path, in, &sess); err != nil {
		return models.Session{}, err
	}
	c.apply(models.AuthEvent{Type: kind, UserID: sess.User.ID, Session: &sess})
	return sess, nil
}

// SignOut revokes the held token. The local session is dropped even when the
// backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	sess := c.Session()
	if sess == nil {
		return nil
	}
	err := c.request(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.apply(models.AuthEvent{Type: models.EventSignedOut, UserID: sess.User.ID})
	return err
}

// CurrentSession asks the backend whether the held token is still good. A
// rejected token is dropped and reported as no session.
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	held := c.Session()
	if held == nil {
		return nil, nil
	}
	var sess models.Session
	err := c.request(ctx, http.MethodGet, "/api/v1/auth/session", nil, &sess)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		c.apply(models.AuthEvent{Type: models.EventSignedOut, UserID: held.User.ID})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// OnAuthChange subscribes to session changes. The returned func unsubscribes.
func (c *Client) OnAuthChange(buffer int) (<-chan models.AuthEvent, func()) {
	ch := make(chan models.AuthEvent, buffer)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// apply records ev as the current session and tells subscribers.
func (c *Client) apply(ev models.AuthEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Type == models.EventSignedOut {
		c.session = nil
	} else if ev.Session != nil {
		s := *ev.Session
		c.session = &s
	}
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("⚠️ auth event %s dropped for slow subscriber", ev.Type)
		}
	}
}
