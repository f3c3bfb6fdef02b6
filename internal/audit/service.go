// AngelaMos | 2026
// service.go

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Service writes audit events. Recording is best effort: a failed write is
// logged and never fails the request that triggered it.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

type Entry struct {
	UserID    string
	Action    string
	Details   map[string]any
	IPAddress string
	UserAgent string
}

func (s *Service) Record(ctx context.Context, entry Entry) {
	details := []byte("{}")
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			s.logger.WarnContext(ctx, "audit details not serializable",
				"action", entry.Action,
				"error", err,
			)
		} else {
			details = b
		}
	}

	event := &Event{
		ID:        uuid.New().String(),
		Action:    entry.Action,
		Details:   string(details),
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
	}
	if entry.UserID != "" {
		event.UserID = &entry.UserID
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event",
			"action", entry.Action,
			"user_id", entry.UserID,
			"error", err,
		)
	}
}

// RecordRequest records an event with the client address and user agent
// taken from r.
func (s *Service) RecordRequest(
	r *http.Request,
	userID, action string,
	details map[string]any,
) {
	s.Record(r.Context(), Entry{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
) ([]Event, int, error) {
	return s.repo.List(ctx, params)
}

func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
