package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/GabrielGBraga/mise/auth"
	"github.com/GabrielGBraga/mise/utils"
	"github.com/julienschmidt/httprouter"
)

type Verifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

type Auth struct {
	tokens Verifier
}

func NewAuth(tokens Verifier) *Auth {
	return &Auth{tokens: tokens}
}

// Authenticate rejects requests without a valid bearer token.
func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := bearerToken(r)
		if token == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := a.tokens.Verify(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrRevokedToken) {
				log.Printf("❌ verify token: %v", err)
			}
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims, token)), ps)
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if token := bearerToken(r); token != "" {
			if claims, err := a.tokens.Verify(r.Context(), token); err == nil {
				r = r.WithContext(auth.WithClaims(r.Context(), claims, token))
			}
		}
		next(w, r, ps)
	}
}

// bearerToken reads the Authorization header, falling back to ?token= for
// websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
