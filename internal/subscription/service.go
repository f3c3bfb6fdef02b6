// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

// Locker serializes the writes to one user's subscriptions. fn receives a
// Repository bound to whatever holds the lock, a transaction for Postgres.
type Locker interface {
	WithUserLock(
		ctx context.Context,
		userID string,
		fn func(ctx context.Context, repo Repository) error,
	) error
}

type Service struct {
	repo   Repository
	locker Locker
	logger *slog.Logger
}

// NewService locks per user in process until WithLocker installs a lock
// shared by every API node.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		locker: &localLocker{repo: repo, locks: make(map[string]*sync.Mutex)},
		logger: logger,
	}
}

// WithLocker returns a Service whose read-then-create writes run under l.
func (s *Service) WithLocker(l Locker) *Service {
	return &Service{repo: s.repo, locker: l, logger: s.logger}
}

// Current returns the user's current subscription or core.ErrNotFound.
func (s *Service) Current(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	return s.repo.Current(ctx, userID)
}

func (s *Service) CurrentByCustomer(
	ctx context.Context,
	customerRef string,
) (*Subscription, error) {
	return s.repo.GetByCustomerRef(ctx, customerRef)
}

func (s *Service) List(
	ctx context.Context,
	userID string,
) ([]Subscription, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Upsert sets the user's plan, creating the subscription if none exists.
// Either way the result is active.
func (s *Service) Upsert(
	ctx context.Context,
	userID, plan string,
) (*Subscription, error) {
	if !IsValidPlan(plan) {
		return nil, fmt.Errorf(
			"upsert subscription: %w",
			core.NewValidationError("plan", "must be trial, basic, pro or enterprise"),
		)
	}

	var sub *Subscription
	err := s.locker.WithUserLock(ctx, userID, func(ctx context.Context, repo Repository) error {
		current, err := repo.Current(ctx, userID)
		if errors.Is(err, core.ErrNotFound) {
			sub = &Subscription{
				ID:     uuid.New().String(),
				UserID: userID,
				Plan:   plan,
				Status: StatusActive,
			}
			return repo.Create(ctx, sub)
		}
		if err != nil {
			return err
		}

		current.Plan = plan
		current.Status = StatusActive
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// ApplyBillingEvent moves the subscription owned by customerRef to status.
// Unknown customers are ignored. Applying the status the subscription
// already has writes nothing. The returned bool reports whether a write
// happened.
func (s *Service) ApplyBillingEvent(
	ctx context.Context,
	customerRef, status string,
) (bool, error) {
	if !IsBillingStatus(status) {
		return false, fmt.Errorf(
			"apply billing event: %w",
			core.NewValidationError("status", "must be active or inactive"),
		)
	}

	if customerRef == "" {
		s.logger.WarnContext(ctx, "billing event without customer reference")
		return false, nil
	}

	sub, err := s.repo.GetByCustomerRef(ctx, customerRef)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.InfoContext(ctx, "billing event for unknown customer",
			"customer_ref", customerRef,
			"status", status,
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if sub.Status == status {
		return false, nil
	}

	previous := sub.Status
	sub.Status = status

	if err := s.repo.Update(ctx, sub); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "subscription status changed",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"from", previous,
		"to", status,
	)

	return true, nil
}

// ApplyPlanChange moves the subscription owned by customerRef to plan when
// the billing provider reports a paid plan different from the stored one.
// Like ApplyBillingEvent it reports whether anything was written.
func (s *Service) ApplyPlanChange(
	ctx context.Context,
	customerRef, plan string,
) (bool, error) {
	if customerRef == "" || !IsPaidPlan(plan) {
		return false, nil
	}

	sub, err := s.repo.GetByCustomerRef(ctx, customerRef)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if sub.Plan == plan {
		return false, nil
	}

	previous := sub.Plan
	sub.Plan = plan

	if err := s.repo.Update(ctx, sub); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "subscription plan changed",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"from", previous,
		"to", plan,
	)

	return true, nil
}

// AttachCustomer records the billing provider's customer id on the user's
// current subscription, starting a trial subscription if the user has none.
func (s *Service) AttachCustomer(
	ctx context.Context,
	userID, customerRef string,
) (*Subscription, error) {
	if customerRef == "" {
		return nil, fmt.Errorf(
			"attach customer: %w",
			core.NewValidationError("customer_ref", "is required"),
		)
	}

	var sub *Subscription
	err := s.locker.WithUserLock(ctx, userID, func(ctx context.Context, repo Repository) error {
		current, err := repo.Current(ctx, userID)
		if errors.Is(err, core.ErrNotFound) {
			sub = &Subscription{
				ID:                  uuid.New().String(),
				UserID:              userID,
				Plan:                PlanTrial,
				Status:              StatusActive,
				ExternalCustomerRef: &customerRef,
			}
			return repo.Create(ctx, sub)
		}
		if err != nil {
			return err
		}

		sub = current
		if current.CustomerRef() == customerRef {
			return nil
		}
		current.ExternalCustomerRef = &customerRef
		return repo.Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// LinkExternalSubscription completes a checkout: the customer's subscription
// takes the paid plan, the provider's subscription id and becomes active.
// Unknown customers are ignored and repeated deliveries write nothing.
func (s *Service) LinkExternalSubscription(
	ctx context.Context,
	customerRef, subscriptionRef, plan string,
) (bool, error) {
	if customerRef == "" {
		return false, nil
	}

	sub, err := s.repo.GetByCustomerRef(ctx, customerRef)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.InfoContext(ctx, "checkout completed for unknown customer",
			"customer_ref", customerRef,
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	changed := false

	if subscriptionRef != "" &&
		(sub.ExternalSubscriptionRef == nil || *sub.ExternalSubscriptionRef != subscriptionRef) {
		sub.ExternalSubscriptionRef = &subscriptionRef
		changed = true
	}

	if IsPaidPlan(plan) && sub.Plan != plan {
		sub.Plan = plan
		changed = true
	}

	if sub.Status != StatusActive {
		sub.Status = StatusActive
		changed = true
	}

	if !changed {
		return false, nil
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		return false, err
	}

	return true, nil
}

func (s *Service) CountByPlan(ctx context.Context) ([]PlanCount, error) {
	return s.repo.CountByPlan(ctx)
}

// PlanFor reports the plan of the user's current active subscription, or
// trial when there is none.
func (s *Service) PlanFor(ctx context.Context, userID string) (string, error) {
	sub, err := s.repo.Current(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return PlanTrial, nil
	}
	if err != nil {
		return "", fmt.Errorf("plan for user: %w", err)
	}
	if sub.Status != StatusActive {
		return PlanTrial, nil
	}
	return sub.Plan, nil
}

type localLocker struct {
	repo Repository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *localLocker) WithUserLock(
	ctx context.Context,
	userID string,
	fn func(ctx context.Context, repo Repository) error,
) error {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx, l.repo)
}
