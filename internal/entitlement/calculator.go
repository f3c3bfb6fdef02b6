// AngelaMos | 2026
// calculator.go

package entitlement

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/imagedit/backend/internal/usage"
)

// Ledger is the read side of the usage ledger the calculator sums over.
type Ledger interface {
	Totals(ctx context.Context, userID string) (usage.Totals, error)
}

// Calculator derives trial credits from ledger state. It keeps no counter
// of its own, so a change to the configured credit allowance applies to
// every user immediately.
type Calculator struct {
	trialCredits int
}

func NewCalculator(trialCredits int) *Calculator {
	return &Calculator{trialCredits: max(0, trialCredits)}
}

// Remaining is max(0, credits - consumed).
func (c *Calculator) Remaining(consumed int) int {
	return max(0, c.trialCredits-consumed)
}

func (c *Calculator) TrialRemaining(
	ctx context.Context,
	ledger Ledger,
	userID string,
) (int, error) {
	totals, err := c.Totals(ctx, ledger, userID)
	if err != nil {
		return 0, err
	}
	return c.Remaining(totals.Sum()), nil
}

func (c *Calculator) Totals(
	ctx context.Context,
	ledger Ledger,
	userID string,
) (usage.Totals, error) {
	totals, err := ledger.Totals(ctx, userID)
	if err != nil {
		return usage.Totals{}, fmt.Errorf("usage totals: %w", err)
	}
	return totals, nil
}
