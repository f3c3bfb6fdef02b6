// AngelaMos | 2026
// gate.go

package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
)

const (
	AccessTrial    = "trial"
	AccessActive   = "active"
	AccessInactive = "inactive"
)

type SubscriptionReader interface {
	Current(ctx context.Context, userID string) (*subscription.Subscription, error)
}

// Decision is the gate's answer for one user at one point in time.
type Decision struct {
	Allowed        bool
	Reason         string
	Access         string
	Plan           string
	TrialRemaining int
}

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// AccessStatus derives the user's access from the current subscription.
// No subscription means an untouched trial.
func AccessStatus(sub *subscription.Subscription) string {
	if sub == nil {
		return AccessTrial
	}
	if !sub.IsActive() {
		return AccessInactive
	}
	if sub.IsTrial() {
		return AccessTrial
	}
	return AccessActive
}

type Gate struct {
	calc *Calculator
}

func NewGate(calc *Calculator) *Gate {
	return &Gate{calc: calc}
}

// Authorize evaluates, in order: inactive access denies, an exhausted trial
// denies, anything else is allowed. It never records usage.
func (g *Gate) Authorize(
	ctx context.Context,
	ledger Ledger,
	subs SubscriptionReader,
	userID string,
) (Decision, error) {
	sub, err := subs.Current(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return Decision{}, fmt.Errorf("authorize: %w", err)
	}
	if errors.Is(err, core.ErrNotFound) {
		sub = nil
	}

	remaining, err := g.calc.TrialRemaining(ctx, ledger, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("authorize: %w", err)
	}

	d := Decision{
		Access:         AccessStatus(sub),
		Plan:           subscription.PlanTrial,
		TrialRemaining: remaining,
	}
	if sub != nil {
		d.Plan = sub.Plan
	}

	switch {
	case d.Access == AccessInactive:
		d.Reason = ReasonSubscriptionRequired
	case d.Access == AccessTrial && remaining <= 0:
		d.Reason = ReasonTrialExhausted
	default:
		d.Allowed = true
	}

	return d, nil
}
