// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/imagedit/backend/internal/image"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
	"github.com/carterperez-dev/imagedit/backend/internal/user"
)

type UserCounter interface {
	Counts(ctx context.Context) (user.Counts, error)
}

type PlanCounter interface {
	CountByPlan(ctx context.Context) ([]subscription.PlanCount, error)
}

type ImageCounter interface {
	CountByStatus(ctx context.Context, since time.Time) ([]image.StatusCount, error)
}

type UsageTotaler interface {
	PlatformTotals(ctx context.Context, since time.Time) (usage.Totals, error)
}

type Service struct {
	users  UserCounter
	plans  PlanCounter
	images ImageCounter
	usage  UsageTotaler
	now    func() time.Time
}

func NewService(users UserCounter, plans PlanCounter, images ImageCounter, usage UsageTotaler) *Service {
	return &Service{
		users:  users,
		plans:  plans,
		images: images,
		usage:  usage,
		now:    time.Now,
	}
}

const (
	defaultStatsDays = 30
	maxStatsDays     = 365
)

// PlatformStats aggregates the platform counters over the last days days.
// The four sources are independent and queried concurrently.
func (s *Service) PlatformStats(ctx context.Context, days int) (*PlatformStats, error) {
	if days < 1 {
		days = defaultStatsDays
	}
	days = min(days, maxStatsDays)
	since := s.now().AddDate(0, 0, -days)

	var (
		counts user.Counts
		plans  []subscription.PlanCount
		images []image.StatusCount
		totals usage.Totals
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.users.Counts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		plans, err = s.plans.CountByPlan(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		images, err = s.images.CountByStatus(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.usage.PlatformTotals(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}

	stats := &PlatformStats{
		Days:   days,
		Since:  since,
		Users:  UserStats{Total: counts.Total, Active: counts.Active},
		Plans:  map[string]int{},
		Images: map[string]int{},
		Usage: UsageStats{
			Uploaded: totals.Uploaded,
			Edited:   totals.Edited,
			Total:    totals.Sum(),
		},
	}

	paid := 0
	for _, pc := range plans {
		if pc.Status != subscription.StatusActive {
			continue
		}
		stats.Plans[pc.Plan] += pc.Count
		if subscription.IsPaidPlan(pc.Plan) {
			paid += pc.Count
		}
	}
	// Anyone without an active paid subscription is on the trial allowance.
	stats.Users.Trial = max(counts.Total-paid, 0)

	for _, ic := range images {
		stats.Images[ic.Status] += ic.Count
	}

	return stats, nil
}
