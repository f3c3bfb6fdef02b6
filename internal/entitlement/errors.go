// AngelaMos | 2026
// errors.go

package entitlement

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

const (
	ReasonSubscriptionRequired = "subscription_required"
	ReasonTrialExhausted       = "trial_exhausted"
)

// DeniedError is returned when the gate refuses a consumption.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("entitlement denied: %s", e.Reason)
}

func (e *DeniedError) Unwrap() error {
	return core.ErrEntitlementDenied
}

func (e *DeniedError) AppError() *core.AppError {
	switch e.Reason {
	case ReasonTrialExhausted:
		return core.NewAppError(
			e,
			"trial credits exhausted, subscribe to continue",
			http.StatusPaymentRequired,
			"TRIAL_EXHAUSTED",
		)
	default:
		return core.NewAppError(
			e,
			"an active subscription is required",
			http.StatusPaymentRequired,
			"SUBSCRIPTION_REQUIRED",
		)
	}
}

// AsAppError maps a denial anywhere in err's chain to its HTTP form.
func AsAppError(err error) (*core.AppError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.AppError(), true
	}
	return nil, false
}
