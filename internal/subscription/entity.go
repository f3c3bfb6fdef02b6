// AngelaMos | 2026
// entity.go

package subscription

import (
	"time"
)

// Subscription is a user's plan and its billing state. A user may
// accumulate several rows over time; the most recently created one is
// current. Rows are never deleted.
type Subscription struct {
	ID                      string    `db:"id"`
	UserID                  string    `db:"user_id"`
	Plan                    string    `db:"plan"`
	Status                  string    `db:"status"`
	ExternalCustomerRef     *string   `db:"external_customer_ref"`
	ExternalSubscriptionRef *string   `db:"external_subscription_ref"`
	CreatedAt               time.Time `db:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsTrial() bool {
	return s.Plan == PlanTrial
}

func (s *Subscription) CustomerRef() string {
	if s.ExternalCustomerRef == nil {
		return ""
	}
	return *s.ExternalCustomerRef
}

const (
	PlanTrial      = "trial"
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

func IsValidPlan(plan string) bool {
	switch plan {
	case PlanTrial, PlanBasic, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

func IsPaidPlan(plan string) bool {
	return plan == PlanBasic || plan == PlanPro || plan == PlanEnterprise
}

// IsBillingStatus reports whether status is one the billing provider may
// drive a subscription into.
func IsBillingStatus(status string) bool {
	return status == StatusActive || status == StatusInactive
}
