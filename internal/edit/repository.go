// AngelaMos | 2026
// repository.go

package edit

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	ListByImage(ctx context.Context, imageID string) ([]Request, error)
	Update(ctx context.Context, req *Request) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const requestColumns = `id, image_id, user_id, prompt, status, result_url,
		       provider_task_id, error_message, created_at, updated_at`

func (r *repository) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO edit_requests (id, image_id, user_id, prompt, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		req.ID,
		req.ImageID,
		req.UserID,
		req.Prompt,
		req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return core.DBError("create edit request", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM edit_requests WHERE id = $1`

	var req Request
	err := r.db.GetContext(ctx, &req, query, id)
	if err != nil {
		return nil, core.DBError("get edit request", err)
	}

	return &req, nil
}

func (r *repository) ListByImage(ctx context.Context, imageID string) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM edit_requests
		WHERE image_id = $1
		ORDER BY created_at DESC, id DESC`

	reqs := []Request{}
	if err := r.db.SelectContext(ctx, &reqs, query, imageID); err != nil {
		return nil, fmt.Errorf("list edit requests: %w", err)
	}

	return reqs, nil
}

func (r *repository) Update(ctx context.Context, req *Request) error {
	query := `
		UPDATE edit_requests
		SET status = $2, result_url = $3, provider_task_id = $4,
		    error_message = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &req.UpdatedAt, query,
		req.ID,
		req.Status,
		req.ResultURL,
		req.ProviderTaskID,
		req.ErrorMessage,
	)
	if err != nil {
		return core.DBError("update edit request", err)
	}

	return nil
}
