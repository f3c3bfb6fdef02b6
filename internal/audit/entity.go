// AngelaMos | 2026
// entity.go

package audit

import (
	"encoding/json"
	"time"
)

type Event struct {
	ID        string    `db:"id"`
	UserID    *string   `db:"user_id"`
	Action    string    `db:"action"`
	Details   string    `db:"details"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	ActionLogin                 = "login"
	ActionRegister              = "register"
	ActionLogoutAll             = "logout_all"
	ActionImageUpload           = "image_upload"
	ActionImageDelete           = "image_delete"
	ActionEditRequest           = "edit_request"
	ActionSubscriptionUpdated   = "subscription_updated"
	ActionSubscriptionCancelled = "subscription_cancelled"
	ActionCheckoutStarted       = "checkout_started"
	ActionUserStatusToggled     = "user_status_toggled"
)

type EventResponse struct {
	ID        string          `json:"id"`
	UserID    *string         `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details"`
	IPAddress string          `json:"ip_address"`
	UserAgent string          `json:"user_agent"`
	CreatedAt time.Time       `json:"created_at"`
}

type ListParams struct {
	UserID   string
	Action   string
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 100
	}
	if p.PageSize > 500 {
		p.PageSize = 500
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToEventResponse(e *Event) EventResponse {
	details := json.RawMessage(e.Details)
	if !json.Valid(details) {
		details = json.RawMessage("{}")
	}
	return EventResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    e.Action,
		Details:   details,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	}
}

func ToEventResponseList(events []Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, ToEventResponse(&events[i]))
	}
	return out
}
