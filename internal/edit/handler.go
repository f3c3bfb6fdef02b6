// AngelaMos | 2026
// handler.go

package edit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/entitlement"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
)

type Handler struct {
	service   *Service
	audit     *audit.Service
	validator *validator.Validate
}

func NewHandler(service *Service, auditSvc *audit.Service) *Handler {
	return &Handler{
		service:   service,
		audit:     auditSvc,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	consumeLimit func(http.Handler) http.Handler,
) {
	r.Route("/edits", func(r chi.Router) {
		r.Use(authenticator)

		r.With(consumeLimit).Post("/{imageID}/request", h.RequestEdit)
		r.Get("/{imageID}/history", h.History)
	})
}

func (h *Handler) RequestEdit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	imageID := chi.URLParam(r, "imageID")
	if !core.ValidID(imageID) {
		core.NotFound(w, "image")
		return
	}

	var body CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(body); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	req, err := h.service.RequestEdit(r.Context(), userID, imageID, body.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.audit != nil {
		h.audit.RecordRequest(r, userID, audit.ActionEditRequest, map[string]any{
			"edit_id":  req.ID,
			"image_id": imageID,
		})
	}

	core.Accepted(w, ToRequestResponse(req))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	imageID := chi.URLParam(r, "imageID")
	if !core.ValidID(imageID) {
		core.NotFound(w, "image")
		return
	}

	reqs, err := h.service.History(r.Context(), userID, imageID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToRequestResponseList(reqs))
}

func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := entitlement.AsAppError(err); ok {
		core.JSONError(w, appErr)
		return
	}

	switch {
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "image")
	default:
		core.InternalServerError(w, err)
	}
}
