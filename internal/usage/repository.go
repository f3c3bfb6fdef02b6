// AngelaMos | 2026
// repository.go

package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, record *Record) error
	SumByReason(ctx context.Context, userID, reason string) (int, error)
	Totals(ctx context.Context, userID string) (Totals, error)
	List(ctx context.Context, userID string, limit, offset int) ([]Record, int, error)
	PlatformTotals(ctx context.Context, since time.Time) (Totals, error)
}

type repository struct {
	db    core.DBTX
	table string
}

// NewRepository binds the ledger to db, which may be a pool or a
// transaction. table is the configured ledger table name.
func NewRepository(db core.DBTX, table string) Repository {
	return &repository{db: db, table: table}
}

func (r *repository) Insert(ctx context.Context, record *Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, images_consumed, reason, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`, r.table)

	err := r.db.GetContext(ctx, &record.CreatedAt, query,
		record.ID,
		record.UserID,
		record.ImagesConsumed,
		record.Reason,
		record.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	return nil
}

func (r *repository) SumByReason(
	ctx context.Context,
	userID, reason string,
) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(images_consumed), 0)
		FROM %s
		WHERE user_id = $1 AND reason = $2`, r.table)

	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, reason); err != nil {
		return 0, fmt.Errorf("sum usage by reason: %w", err)
	}

	return total, nil
}

func (r *repository) Totals(ctx context.Context, userID string) (Totals, error) {
	query := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(images_consumed) FILTER (WHERE reason = 'upload'), 0) AS uploaded,
			COALESCE(SUM(images_consumed) FILTER (WHERE reason = 'edit'), 0) AS edited
		FROM %s
		WHERE user_id = $1`, r.table)

	var t Totals
	if err := r.db.GetContext(ctx, &t, query, userID); err != nil {
		return Totals{}, fmt.Errorf("usage totals: %w", err)
	}

	return t, nil
}

func (r *repository) List(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]Record, int, error) {
	countQuery := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE user_id = $1`, r.table)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count usage records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, images_consumed, reason, notes, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, r.table)

	var records []Record
	if err := r.db.SelectContext(ctx, &records, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list usage records: %w", err)
	}

	return records, total, nil
}

func (r *repository) PlatformTotals(
	ctx context.Context,
	since time.Time,
) (Totals, error) {
	query := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(images_consumed) FILTER (WHERE reason = 'upload'), 0) AS uploaded,
			COALESCE(SUM(images_consumed) FILTER (WHERE reason = 'edit'), 0) AS edited
		FROM %s
		WHERE created_at >= $1`, r.table)

	var t Totals
	if err := r.db.GetContext(ctx, &t, query, since); err != nil {
		return Totals{}, fmt.Errorf("platform usage totals: %w", err)
	}

	return t, nil
}
