// AngelaMos | 2026
// service.go

package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/imagedit/backend/internal/entitlement"
	"github.com/carterperez-dev/imagedit/backend/internal/image"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
	"github.com/carterperez-dev/imagedit/backend/internal/user"
)

const recentImages = 20

type Service struct {
	users         *user.Service
	entitlements  *entitlement.Service
	images        *image.Service
	subscriptions *subscription.Service
}

func NewService(
	users *user.Service,
	entitlements *entitlement.Service,
	images *image.Service,
	subscriptions *subscription.Service,
) *Service {
	return &Service{
		users:         users,
		entitlements:  entitlements,
		images:        images,
		subscriptions: subscriptions,
	}
}

// Summary collects the signed-in user's home screen in one round trip.
// Every figure is read live; nothing here is cached.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	var (
		u      *user.User
		totals usage.Totals
		status subscription.StatusResponse
		images []image.Image
		subs   []subscription.Subscription
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = s.users.GetUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.entitlements.Totals(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		status, err = s.entitlements.Status(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		images, err = s.images.Recent(gctx, userID, recentImages)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.subscriptions.List(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}

	return &Summary{
		User: user.ToUserResponse(u),
		Usage: UsageSummary{
			Uploaded:       totals.Uploaded,
			Edited:         totals.Edited,
			Total:          totals.Sum(),
			TrialRemaining: status.TrialRemaining,
		},
		Access:        status,
		RecentImages:  image.ToImageResponseList(images),
		Subscriptions: subscription.ToSubscriptionResponseList(subs),
	}, nil
}
