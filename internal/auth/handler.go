// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Hiranx/WorldCountries/internal/core"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	service   *Service
	validator *validator.Validate
	cookie    CookieConfig
}

func NewHandler(service *Service, cookie CookieConfig) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
		cookie:    cookie,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth", h.SignIn)
	r.Delete("/auth", h.SignOut)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(
				w,
				core.InvalidCredentialsError(http.StatusUnauthorized),
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.setSessionCookie(w, resp.Token, resp.ExpiresAt)
	core.OK(w, resp)
}

// SignOut clears the session cookie. The token itself stays valid until
// it expires.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", time.Unix(0, 0))
	core.NoContent(w)
}

func (h *Handler) setSessionCookie(
	w http.ResponseWriter,
	value string,
	expiresAt time.Time,
) {
	if h.cookie.Name == "" {
		return
	}

	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	}

	http.SetCookie(w, cookie)
}
