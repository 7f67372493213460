package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/GabrielGBraga/mise/globals"
	"github.com/GabrielGBraga/mise/utils"
	"github.com/julienschmidt/httprouter"
)

type claimsKey struct{}

type authed struct {
	claims *Claims
	token  string
}

// WithClaims stores verified claims and the raw token on ctx.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, authed{claims: claims, token: token})
	ctx = context.WithValue(ctx, globals.UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, globals.EmailKey, claims.Email)
	return ctx
}

func ClaimsFromContext(ctx context.Context) (*Claims, string, bool) {
	a, ok := ctx.Value(claimsKey{}).(authed)
	if !ok || a.claims == nil {
		return nil, "", false
	}
	return a.claims, a.token, true
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in credentials
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.service.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	log.Printf("👤 registered %s", sess.User.Email)
	utils.RespondWithJSON(w, http.StatusCreated, sess)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in credentials
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, _, ok := ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		log.Printf("❌ logout %s: %v", claims.Subject, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, _, ok := ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	sess, err := h.service.Refresh(r.Context(), claims)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, token, ok := ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	sess, err := h.service.Current(r.Context(), claims, token)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrRevokedToken):
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrEmailTaken):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidEmail):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("❌ auth: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
