// AngelaMos | 2026
// dto.go

package subscription

import (
	"time"
)

type UpsertRequest struct {
	Plan string `json:"plan" validate:"required,oneof=trial basic pro enterprise"`
}

type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=basic pro enterprise"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type SubscriptionResponse struct {
	ID                      string    `json:"id"`
	Plan                    string    `json:"plan"`
	Status                  string    `json:"status"`
	ExternalCustomerRef     *string   `json:"external_customer_ref,omitempty"`
	ExternalSubscriptionRef *string   `json:"external_subscription_ref,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// StatusResponse is the live access view returned by the status endpoint.
type StatusResponse struct {
	Status         string `json:"status"`
	Plan           string `json:"plan"`
	TrialRemaining int    `json:"trial_remaining"`
}

func ToSubscriptionResponse(s *Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                      s.ID,
		Plan:                    s.Plan,
		Status:                  s.Status,
		ExternalCustomerRef:     s.ExternalCustomerRef,
		ExternalSubscriptionRef: s.ExternalSubscriptionRef,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

func ToSubscriptionResponseList(subs []Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, ToSubscriptionResponse(&subs[i]))
	}
	return out
}
