// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
)

type ConsumeRequest struct {
	UserID   string
	Quantity int
	Reason   string
	Notes    string
}

// Effect is the caller's work for a consumption, run after the gate allows
// it and before the usage record is appended.
type Effect func(ctx context.Context, tx Tx) error

type Service struct {
	runner Runner
	ledger Ledger
	subs   SubscriptionReader
	calc   *Calculator
	gate   *Gate
	tracer trace.Tracer
	logger *slog.Logger
}

func NewService(
	runner Runner,
	ledger Ledger,
	subs SubscriptionReader,
	trialCredits int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	calc := NewCalculator(trialCredits)
	return &Service{
		runner: runner,
		ledger: ledger,
		subs:   subs,
		calc:   calc,
		gate:   NewGate(calc),
		tracer: otel.Tracer("imagedit/entitlement"),
		logger: logger,
	}
}

func (s *Service) TrialRemaining(ctx context.Context, userID string) (int, error) {
	return s.calc.TrialRemaining(ctx, s.ledger, userID)
}

func (s *Service) Totals(ctx context.Context, userID string) (usage.Totals, error) {
	return s.calc.Totals(ctx, s.ledger, userID)
}

// AuthorizeConsumption is a read-only check. Use Consume to check and
// record atomically.
func (s *Service) AuthorizeConsumption(
	ctx context.Context,
	userID string,
) (Decision, error) {
	return s.gate.Authorize(ctx, s.ledger, s.subs, userID)
}

// Status reports the user's live access view.
func (s *Service) Status(
	ctx context.Context,
	userID string,
) (subscription.StatusResponse, error) {
	d, err := s.AuthorizeConsumption(ctx, userID)
	if err != nil {
		return subscription.StatusResponse{}, err
	}
	return subscription.StatusResponse{
		Status:         d.Access,
		Plan:           d.Plan,
		TrialRemaining: d.TrialRemaining,
	}, nil
}

// Consume gates, runs effect and appends the usage record while holding the
// user's lock. A denial or effect failure leaves the ledger untouched.
func (s *Service) Consume(
	ctx context.Context,
	req ConsumeRequest,
	effect Effect,
) (*usage.Record, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf(
			"consume: %w",
			core.NewValidationError("quantity", "must be positive"),
		)
	}
	if !usage.IsValidReason(req.Reason) {
		return nil, fmt.Errorf(
			"consume: %w",
			core.NewValidationError("reason", "must be upload or edit"),
		)
	}

	ctx, span := s.tracer.Start(ctx, "entitlement.consume",
		trace.WithAttributes(
			attribute.String("user.id", req.UserID),
			attribute.String("usage.reason", req.Reason),
			attribute.Int("usage.quantity", req.Quantity),
		),
	)
	defer span.End()

	var record *usage.Record

	err := s.runner.WithUserLock(ctx, req.UserID, func(ctx context.Context, tx Tx) error {
		decision, err := s.gate.Authorize(ctx, tx.Usage, tx.Subscriptions, req.UserID)
		if err != nil {
			return err
		}

		span.SetAttributes(
			attribute.String("entitlement.access", decision.Access),
			attribute.Bool("entitlement.allowed", decision.Allowed),
		)

		if err := decision.Err(); err != nil {
			s.logger.InfoContext(ctx, "consumption denied",
				"user_id", req.UserID,
				"reason", decision.Reason,
				"access", decision.Access,
			)
			return err
		}

		tx.Decision = decision

		if effect != nil {
			if err := effect(ctx, tx); err != nil {
				return err
			}
		}

		record, err = usage.NewService(tx.Usage).Record(
			ctx,
			req.UserID,
			req.Quantity,
			req.Reason,
			req.Notes,
		)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return record, nil
}
