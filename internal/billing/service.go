// AngelaMos | 2026
// service.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/auth"
	"github.com/carterperez-dev/imagedit/backend/internal/config"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
)

type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*auth.UserInfo, error)
}

type Service struct {
	provider Provider
	subs     *subscription.Service
	users    UserDirectory
	dedupe   Deduper
	audit    *audit.Service
	cfg      config.BillingConfig
	logger   *slog.Logger
}

func NewService(
	provider Provider,
	subs *subscription.Service,
	users UserDirectory,
	dedupe Deduper,
	auditSvc *audit.Service,
	cfg config.BillingConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		subs:     subs,
		users:    users,
		dedupe:   dedupe,
		audit:    auditSvc,
		cfg:      cfg,
		logger:   logger,
	}
}

// StartCheckout opens a subscription checkout for a paid plan, creating the
// provider customer on first use.
func (s *Service) StartCheckout(
	ctx context.Context,
	userID, plan string,
) (*subscription.CheckoutResponse, error) {
	if !subscription.IsPaidPlan(plan) {
		return nil, fmt.Errorf(
			"start checkout: %w",
			core.NewValidationError("plan", "must be basic, pro or enterprise"),
		)
	}

	priceID := s.cfg.PriceFor(plan)
	if priceID == "" {
		return nil, fmt.Errorf(
			"start checkout: %w",
			core.NewValidationError("plan", "price not configured for plan"),
		)
	}

	customerRef, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	siteURL := strings.TrimRight(s.cfg.SiteURL, "/")

	sess, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:      userID,
		CustomerRef: customerRef,
		PriceID:     priceID,
		Plan:        plan,
		SuccessURL:  siteURL + "/billing/success",
		CancelURL:   siteURL + "/billing/cancel",
	})
	if err != nil {
		return nil, err
	}

	return &subscription.CheckoutResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// PortalURL returns a self-service billing portal link for a user who
// already has a provider customer.
func (s *Service) PortalURL(ctx context.Context, userID string) (string, error) {
	sub, err := s.subs.Current(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return "", err
	}
	if sub == nil || sub.CustomerRef() == "" {
		return "", fmt.Errorf(
			"portal session: %w",
			core.NewValidationError("customer", "no billing account for user"),
		)
	}

	returnURL := strings.TrimRight(s.cfg.SiteURL, "/") + "/settings/billing"
	return s.provider.CreatePortalSession(ctx, sub.CustomerRef(), returnURL)
}

func (s *Service) ensureCustomer(ctx context.Context, userID string) (string, error) {
	sub, err := s.subs.Current(ctx, userID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return "", err
	}
	if sub != nil && sub.CustomerRef() != "" {
		return sub.CustomerRef(), nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("ensure customer: %w", err)
	}

	customerRef, err := s.provider.CreateCustomer(ctx, userID, user.Email)
	if err != nil {
		return "", err
	}

	if _, err := s.subs.AttachCustomer(ctx, userID, customerRef); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "billing customer created",
		"user_id", userID,
		"customer_ref", customerRef,
	)

	return customerRef, nil
}

// HandleEvent applies a verified provider event. Each event id is handled
// at most once; a failure releases the claim so the provider's retry is
// processed.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (err error) {
	if event.ID != "" && s.dedupe != nil {
		claimed, claimErr := s.dedupe.Claim(ctx, event.ID)
		if claimErr != nil {
			s.logger.WarnContext(ctx, "billing event dedupe unavailable",
				"event_id", event.ID,
				"error", claimErr,
			)
		} else if !claimed {
			s.logger.DebugContext(ctx, "billing event already handled",
				"event_id", event.ID,
			)
			return nil
		}

		defer func() {
			if err == nil || claimErr != nil {
				return
			}
			if relErr := s.dedupe.Release(ctx, event.ID); relErr != nil {
				s.logger.WarnContext(ctx, "release billing event claim",
					"event_id", event.ID,
					"error", relErr,
				)
			}
		}()
	}

	switch event.Type {
	case EventCheckoutCompleted:
		_, err = s.subs.LinkExternalSubscription(
			ctx,
			event.CustomerRef,
			event.SubscriptionRef,
			event.Plan,
		)

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		_, err = s.subs.ApplyBillingEvent(ctx, event.CustomerRef, event.SubscriptionStatus)
		if err == nil && event.Plan != "" {
			_, err = s.subs.ApplyPlanChange(ctx, event.CustomerRef, event.Plan)
		}

	case EventSubscriptionDeleted:
		var changed bool
		changed, err = s.subs.ApplyBillingEvent(ctx, event.CustomerRef, subscription.StatusInactive)
		if err == nil && changed {
			s.recordCancellation(ctx, event)
		}

	default:
		s.logger.DebugContext(ctx, "ignoring billing event", "type", event.Type)
	}

	if err != nil {
		return fmt.Errorf("handle %s: %w", event.Type, err)
	}

	return nil
}

func (s *Service) recordCancellation(ctx context.Context, event *Event) {
	if s.audit == nil {
		return
	}

	entry := audit.Entry{
		Action: audit.ActionSubscriptionCancelled,
		Details: map[string]any{
			"customer_ref":     event.CustomerRef,
			"subscription_ref": event.SubscriptionRef,
			"event_id":         event.ID,
		},
	}

	if sub, err := s.subs.CurrentByCustomer(ctx, event.CustomerRef); err == nil {
		entry.UserID = sub.UserID
	}

	s.audit.Record(ctx, entry)
}
