// AngelaMos | 2026
// repository.go

package image

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, img *Image) error
	GetByID(ctx context.Context, id string) (*Image, error)
	GetForUser(ctx context.Context, id, userID string) (*Image, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Image, int, error)
	Update(ctx context.Context, img *Image) error
	Delete(ctx context.Context, id, userID string) error
	CountByStatus(ctx context.Context, since time.Time) ([]StatusCount, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const imageColumns = `id, user_id, filename, original_url, processed_url, status,
		       last_edit_prompt, created_at, updated_at`

func (r *repository) Create(ctx context.Context, img *Image) error {
	query := `
		INSERT INTO images (id, user_id, filename, original_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		img.ID,
		img.UserID,
		img.Filename,
		img.OriginalURL,
		img.Status,
	).Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return core.DBError("create image", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`

	var img Image
	err := r.db.GetContext(ctx, &img, query, id)
	if err != nil {
		return nil, core.DBError("get image", err)
	}

	return &img, nil
}

func (r *repository) GetForUser(
	ctx context.Context,
	id, userID string,
) (*Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1 AND user_id = $2`

	var img Image
	err := r.db.GetContext(ctx, &img, query, id, userID)
	if err != nil {
		return nil, core.DBError("get image", err)
	}

	return &img, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]Image, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM images WHERE user_id = $1`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count images: %w", err)
	}

	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	images := []Image{}
	if err := r.db.SelectContext(ctx, &images, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list images: %w", err)
	}

	return images, total, nil
}

func (r *repository) Update(ctx context.Context, img *Image) error {
	query := `
		UPDATE images
		SET processed_url = $2, status = $3, last_edit_prompt = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &img.UpdatedAt, query,
		img.ID,
		img.ProcessedURL,
		img.Status,
		img.LastEditPrompt,
	)
	if err != nil {
		return core.DBError("update image", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM images WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete image rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete image: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountByStatus(
	ctx context.Context,
	since time.Time,
) ([]StatusCount, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM images
		WHERE created_at >= $1
		GROUP BY status
		ORDER BY status`

	counts := []StatusCount{}
	if err := r.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("count images by status: %w", err)
	}

	return counts, nil
}
