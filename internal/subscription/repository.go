// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Current(ctx context.Context, userID string) (*Subscription, error)
	GetByCustomerRef(ctx context.Context, customerRef string) (*Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	CountByPlan(ctx context.Context) ([]PlanCount, error)
}

type PlanCount struct {
	Plan   string `db:"plan"`
	Status string `db:"status"`
	Count  int    `db:"count"`
}

type repository struct {
	db    core.DBTX
	table string
}

func NewRepository(db core.DBTX, table string) Repository {
	return &repository{db: db, table: table}
}

const subscriptionColumns = `id, user_id, plan, status, external_customer_ref,
		       external_subscription_ref, created_at, updated_at`

func (r *repository) Create(ctx context.Context, sub *Subscription) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, plan, status, external_customer_ref,
		                external_subscription_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`, r.table)

	err := r.db.QueryRowxContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Plan,
		sub.Status,
		sub.ExternalCustomerRef,
		sub.ExternalSubscriptionRef,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return core.DBError("create subscription", err)
	}

	return nil
}

func (r *repository) Current(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, subscriptionColumns, r.table)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, userID)
	if err != nil {
		return nil, core.DBError("current subscription", err)
	}

	return &sub, nil
}

func (r *repository) GetByCustomerRef(
	ctx context.Context,
	customerRef string,
) (*Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE external_customer_ref = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, subscriptionColumns, r.table)

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, customerRef)
	if err != nil {
		return nil, core.DBError("subscription by customer", err)
	}

	return &sub, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
) ([]Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, subscriptionColumns, r.table)

	subs := []Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	return subs, nil
}

func (r *repository) Update(ctx context.Context, sub *Subscription) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET plan = $2, status = $3, external_customer_ref = $4,
		    external_subscription_ref = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`, r.table)

	err := r.db.GetContext(ctx, &sub.UpdatedAt, query,
		sub.ID,
		sub.Plan,
		sub.Status,
		sub.ExternalCustomerRef,
		sub.ExternalSubscriptionRef,
	)
	if err != nil {
		return core.DBError("update subscription", err)
	}

	return nil
}

func (r *repository) CountByPlan(ctx context.Context) ([]PlanCount, error) {
	query := fmt.Sprintf(`
		SELECT plan, status, COUNT(*) AS count
		FROM (
			SELECT DISTINCT ON (user_id) user_id, plan, status
			FROM %s
			ORDER BY user_id, created_at DESC, id DESC
		) current
		GROUP BY plan, status
		ORDER BY plan, status`, r.table)

	counts := []PlanCount{}
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count subscriptions by plan: %w", err)
	}

	return counts, nil
}
