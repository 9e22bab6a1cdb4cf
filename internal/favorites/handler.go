// AngelaMos | 2026
// handler.go

package favorites

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Hiranx/WorldCountries/internal/core"
	"github.com/Hiranx/WorldCountries/internal/middleware"
)

type AddFavoriteRequest struct {
	Country string `json:"country" validate:"required,max=200"`
	Flag    string `json:"flag"    validate:"omitempty,url,max=2048"`
}

type RemoveFavoriteRequest struct {
	Country string `json:"country" validate:"required,max=200"`
}

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/favorites", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Delete("/", h.Remove)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.service.List(
		r.Context(),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, favorites)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	favorites, err := h.service.Add(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.Country,
		req.Flag,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, favorites)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	var req RemoveFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	favorites, err := h.service.Remove(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.Country,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, favorites)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	default:
		core.InternalServerError(w, err)
	}
}
