// AngelaMos | 2026
// handler.go

package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
)

const maxWebhookBytes = int64(1 << 20)

type Handler struct {
	service  *Service
	provider Provider
	logger   *slog.Logger
}

func NewHandler(service *Service, provider Provider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, provider: provider, logger: logger}
}

// RegisterRoutes mounts the webhook without authentication; the provider
// signature is its credential.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/billing", func(r chi.Router) {
		r.Post("/webhook", h.Webhook)

		r.With(authenticator).Post("/portal-session", h.PortalSession)
	})
}

type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventType string `json:"event_type"`
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.logger.WarnContext(r.Context(), "webhook payload over limit",
				"limit", tooBig.Limit,
			)
			core.JSONError(w, core.NewAppError(
				core.ErrPayloadTooBig,
				"webhook payload exceeds the size limit",
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
			))
			return
		}
		core.BadRequest(w, "invalid payload")
		return
	}

	event, err := h.provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook verification failed", "error", err)
		core.BadRequest(w, "invalid webhook")
		return
	}

	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		h.logger.ErrorContext(r.Context(), "webhook handling failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, WebhookResponse{Received: true, EventType: event.Type})
}

type PortalResponse struct {
	URL string `json:"url"`
}

func (h *Handler) PortalSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	url, err := h.service.PortalURL(r.Context(), userID)
	if err != nil {
		switch {
		case core.IsAppError(err):
			core.JSONError(w, err)
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "no billing account for user")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, PortalResponse{URL: url})
}
