package transport

import (
	"errors"
	"net/http"
	"strings"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/session"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users        user.Service
	secureCookie bool
}

func NewAuthHandler(users user.Service, secureCookie bool) *AuthHandler {
	return &AuthHandler{users: users, secureCookie: secureCookie}
}

func (h *AuthHandler) Routes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/account/profile", h.Profile)
		r.Post("/account/profile", h.UpdateProfile)
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.Register(r.Context(), user.RegisterInput{
		Email:      strings.TrimSpace(r.FormValue("email")),
		Password:   r.FormValue("password"),
		FullName:   strings.TrimSpace(r.FormValue("full_name")),
		SessionKey: session.KeyFrom(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	auth.SetAccessToken(w, res.Token, user.TokenTTL, h.secureCookie)
	utils.WriteJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.Login(r.Context(), user.LoginInput{
		Email:      strings.TrimSpace(r.FormValue("email")),
		Password:   r.FormValue("password"),
		SessionKey: session.KeyFrom(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	auth.SetAccessToken(w, res.Token, user.TokenTTL, h.secureCookie)
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearAccessToken(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	p, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

// optionalField is nil when the form did not carry the key at all.
func optionalField(r *http.Request, key string) *string {
	if _, ok := r.PostForm[key]; !ok {
		return nil
	}
	v := strings.TrimSpace(r.PostForm.Get(key))
	return &v
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, "malformed form", http.StatusBadRequest)
		return
	}
	userID, _ := utils.GetUserIDFromContext(r.Context())

	params := user.UpdateProfileParams{
		UserID:   userID,
		FullName: optionalField(r, "full_name"),
		Phone:    optionalField(r, "phone"),
	}
	if raw := optionalField(r, "receive_marketing"); raw != nil {
		v := *raw == "1" || strings.EqualFold(*raw, "on") || strings.EqualFold(*raw, "true")
		params.ReceiveMarketing = &v
	}

	p, err := h.users.UpdateProfile(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidEmail), errors.Is(err, user.ErrWeakPassword):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, user.ErrEmailExists):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, user.ErrInvalidCredentials):
		utils.WriteJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, user.ErrProfileNotFound), errors.Is(err, user.ErrUserNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logger.FromCtx(r.Context()).Error("auth request failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
