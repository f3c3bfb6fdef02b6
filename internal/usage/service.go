// AngelaMos | 2026
// service.go

package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

// Service is the usage ledger. It validates and appends consumption
// records and answers aggregate questions about them.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends a consumption event. Invalid input is rejected before
// anything is written.
func (s *Service) Record(
	ctx context.Context,
	userID string,
	imagesConsumed int,
	reason string,
	notes string,
) (*Record, error) {
	if userID == "" {
		return nil, fmt.Errorf(
			"record usage: %w",
			core.NewValidationError("user_id", "is required"),
		)
	}

	if imagesConsumed <= 0 {
		return nil, fmt.Errorf(
			"record usage: %w",
			core.NewValidationError("images_consumed", "must be positive"),
		)
	}

	if !IsValidReason(reason) {
		return nil, fmt.Errorf(
			"record usage: %w",
			core.NewValidationError("reason", "must be upload or edit"),
		)
	}

	record := &Record{
		ID:             uuid.New().String(),
		UserID:         userID,
		ImagesConsumed: imagesConsumed,
		Reason:         reason,
	}

	if n := strings.TrimSpace(notes); n != "" {
		record.Notes = &n
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *Service) SumByReason(
	ctx context.Context,
	userID, reason string,
) (int, error) {
	if !IsValidReason(reason) {
		return 0, fmt.Errorf(
			"sum usage: %w",
			core.NewValidationError("reason", "must be upload or edit"),
		)
	}
	return s.repo.SumByReason(ctx, userID, reason)
}

func (s *Service) Total(ctx context.Context, userID string) (int, error) {
	t, err := s.repo.Totals(ctx, userID)
	if err != nil {
		return 0, err
	}
	return t.Sum(), nil
}

func (s *Service) Totals(ctx context.Context, userID string) (Totals, error) {
	return s.repo.Totals(ctx, userID)
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Record, int, error) {
	params.Normalize()
	return s.repo.List(ctx, userID, params.PageSize, params.Offset())
}

// PlatformTotals sums consumption across every user since the given time.
func (s *Service) PlatformTotals(ctx context.Context, since time.Time) (Totals, error) {
	return s.repo.PlatformTotals(ctx, since)
}
