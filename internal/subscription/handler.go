// AngelaMos | 2026
// handler.go

package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
)

// AccessReporter computes the live status view for a user.
type AccessReporter interface {
	Status(ctx context.Context, userID string) (StatusResponse, error)
}

// CheckoutStarter opens a hosted checkout with the billing provider.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, userID, plan string) (*CheckoutResponse, error)
}

type Handler struct {
	service   *Service
	access    AccessReporter
	checkout  CheckoutStarter
	audit     *audit.Service
	validator *validator.Validate
}

func NewHandler(
	service *Service,
	access AccessReporter,
	checkout CheckoutStarter,
	auditSvc *audit.Service,
) *Handler {
	return &Handler{
		service:   service,
		access:    access,
		checkout:  checkout,
		audit:     auditSvc,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Upsert)
		r.Get("/status", h.Status)
		r.Post("/checkout-session", h.CreateCheckoutSession)
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	status, err := h.access.Status(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, status)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	subs, err := h.service.List(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponseList(subs))
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sub, err := h.service.Upsert(r.Context(), userID, req.Plan)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	if h.audit != nil {
		h.audit.RecordRequest(r, userID, audit.ActionSubscriptionUpdated, map[string]any{
			"subscription_id": sub.ID,
			"plan":            sub.Plan,
		})
	}

	core.OK(w, ToSubscriptionResponse(sub))
}

func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	session, err := h.checkout.StartCheckout(r.Context(), userID, req.Plan)
	if err != nil {
		switch {
		case core.IsAppError(err):
			core.JSONError(w, err)
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, err.Error())
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	if h.audit != nil {
		h.audit.RecordRequest(r, userID, audit.ActionCheckoutStarted, map[string]any{
			"plan":       req.Plan,
			"session_id": session.SessionID,
		})
	}

	core.OK(w, session)
}
