// AngelaMos | 2026
// runner.go

package entitlement

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/imagedit/backend/internal/config"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
)

// Tx is what a caller sees inside a user's critical section. Every store is
// bound to the same transaction.
type Tx struct {
	DB            core.DBTX
	Usage         usage.Repository
	Subscriptions subscription.Repository
	Decision      Decision
}

// Runner serializes work per user. fn runs with the user's lock held and
// everything it writes through Tx commits or rolls back together.
type Runner interface {
	WithUserLock(
		ctx context.Context,
		userID string,
		fn func(ctx context.Context, tx Tx) error,
	) error
}

type PostgresRunner struct {
	db     *sqlx.DB
	tables config.TablesConfig
}

func NewPostgresRunner(db *sqlx.DB, tables config.TablesConfig) *PostgresRunner {
	return &PostgresRunner{db: db, tables: tables}
}

func (p *PostgresRunner) WithUserLock(
	ctx context.Context,
	userID string,
	fn func(ctx context.Context, tx Tx) error,
) error {
	return core.InTx(ctx, p.db, func(tx *sqlx.Tx) error {
		if err := core.LockUserRow(ctx, tx, userID); err != nil {
			return err
		}

		return fn(ctx, Tx{
			DB:            tx,
			Usage:         usage.NewRepository(tx, p.tables.Usage),
			Subscriptions: subscription.NewRepository(tx, p.tables.Subscriptions),
		})
	})
}

// MemoryRunner guards shared in-memory stores with one mutex per user. It
// does not roll back writes made before fn fails.
type MemoryRunner struct {
	usage         usage.Repository
	subscriptions subscription.Repository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryRunner(
	usageRepo usage.Repository,
	subRepo subscription.Repository,
) *MemoryRunner {
	return &MemoryRunner{
		usage:         usageRepo,
		subscriptions: subRepo,
		locks:         make(map[string]*sync.Mutex),
	}
}

func (m *MemoryRunner) WithUserLock(
	ctx context.Context,
	userID string,
	fn func(ctx context.Context, tx Tx) error,
) error {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	defer l.Unlock()

	return fn(ctx, Tx{
		Usage:         m.usage,
		Subscriptions: m.subscriptions,
	})
}

// SubscriptionLock hands subscription writes the same per-user lock the
// entitlement gate takes, so plan changes and consumption never interleave.
type SubscriptionLock struct {
	Runner Runner
}

func (l SubscriptionLock) WithUserLock(
	ctx context.Context,
	userID string,
	fn func(ctx context.Context, repo subscription.Repository) error,
) error {
	return l.Runner.WithUserLock(ctx, userID, func(ctx context.Context, tx Tx) error {
		return fn(ctx, tx.Subscriptions)
	})
}

var (
	_ Runner              = (*PostgresRunner)(nil)
	_ Runner              = (*MemoryRunner)(nil)
	_ subscription.Locker = SubscriptionLock{}
)
