// AngelaMos | 2026
// service.go

package image

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/entitlement"
	"github.com/carterperez-dev/imagedit/backend/internal/storage"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
)

// RepositoryFactory binds an image repository to a pool or a transaction.
type RepositoryFactory func(db core.DBTX) Repository

type Service struct {
	repo         Repository
	repoFor      RepositoryFactory
	entitlements *entitlement.Service
	store        storage.Storage
	maxBatch     int
	logger       *slog.Logger
}

type ServiceConfig struct {
	Repository   Repository
	RepoFor      RepositoryFactory
	Entitlements *entitlement.Service
	Storage      storage.Storage
	MaxBatch     int
	Logger       *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RepoFor == nil {
		cfg.RepoFor = NewRepository
	}
	return &Service{
		repo:         cfg.Repository,
		repoFor:      cfg.RepoFor,
		entitlements: cfg.Entitlements,
		store:        cfg.Storage,
		maxBatch:     cfg.MaxBatch,
		logger:       cfg.Logger,
	}
}

// Upload stores a batch and charges one credit per file. The gate, the
// trial cap on the batch size, the image rows and the ledger entry all run
// under the user's lock. Files saved before a failure are removed.
func (s *Service) Upload(
	ctx context.Context,
	userID string,
	files []File,
) ([]Image, error) {
	if err := s.validateBatch(files); err != nil {
		return nil, fmt.Errorf("upload images: %w", err)
	}

	var saved []string
	created := make([]Image, 0, len(files))

	_, err := s.entitlements.Consume(ctx, entitlement.ConsumeRequest{
		UserID:   userID,
		Quantity: len(files),
		Reason:   usage.ReasonUpload,
	}, func(ctx context.Context, tx entitlement.Tx) error {
		d := tx.Decision
		if d.Access == entitlement.AccessTrial && len(files) > d.TrialRemaining {
			return &entitlement.DeniedError{Reason: entitlement.ReasonTrialExhausted}
		}

		repo := s.repoFor(tx.DB)
		for _, f := range files {
			url, err := s.store.Save(ctx, f.Data, f.Filename, userID)
			if err != nil {
				return fmt.Errorf("save %s: %w", f.Filename, err)
			}
			saved = append(saved, url)

			img := Image{
				ID:          uuid.New().String(),
				UserID:      userID,
				Filename:    f.Filename,
				OriginalURL: url,
				Status:      StatusUploaded,
			}
			if err := repo.Create(ctx, &img); err != nil {
				return err
			}
			created = append(created, img)
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, saved)
		return nil, err
	}

	s.logger.InfoContext(ctx, "images uploaded",
		"user_id", userID,
		"count", len(created),
	)

	return created, nil
}

func (s *Service) validateBatch(files []File) error {
	if len(files) == 0 {
		return core.NewValidationError("files", "at least one file is required")
	}
	if len(files) > s.maxBatch {
		return core.NewValidationError(
			"files",
			fmt.Sprintf("batch too large, max %d", s.maxBatch),
		)
	}

	for i := range files {
		name := filepath.Base(strings.TrimSpace(files[i].Filename))
		if name == "." || name == string(filepath.Separator) {
			name = "image"
		}
		files[i].Filename = name

		if len(files[i].Data) == 0 {
			return core.NewValidationError("files", name+" is empty")
		}
		if !IsImage(files[i].Data) {
			return core.NewValidationError("files", name+" is not an image")
		}
	}

	return nil
}

// IsImage sniffs the content rather than trusting the client's type.
func IsImage(data []byte) bool {
	return strings.HasPrefix(mimetype.Detect(data).String(), "image/")
}

func (s *Service) discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.store.Delete(context.WithoutCancel(ctx), url); err != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned upload",
				"url", url,
				"error", err,
			)
		}
	}
}

func (s *Service) Get(ctx context.Context, id, userID string) (*Image, error) {
	return s.repo.GetForUser(ctx, id, userID)
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Image, int, error) {
	params.Normalize()
	return s.repo.ListByUser(ctx, userID, params.PageSize, params.Offset())
}

func (s *Service) Recent(ctx context.Context, userID string, n int) ([]Image, error) {
	images, _, err := s.repo.ListByUser(ctx, userID, n, 0)
	return images, err
}

// Delete removes the row, then the stored files. File cleanup is best
// effort.
func (s *Service) Delete(ctx context.Context, id, userID string) (*Image, error) {
	img, err := s.repo.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return nil, err
	}

	urls := []string{img.OriginalURL}
	if img.ProcessedURL != nil {
		urls = append(urls, *img.ProcessedURL)
	}
	s.discard(ctx, urls)

	return img, nil
}

func (s *Service) MarkProcessing(ctx context.Context, id, prompt string) error {
	return s.transition(ctx, id, func(img *Image) {
		img.Status = StatusProcessing
		img.LastEditPrompt = &prompt
	})
}

func (s *Service) MarkDone(ctx context.Context, id, processedURL string) error {
	return s.transition(ctx, id, func(img *Image) {
		img.Status = StatusDone
		img.ProcessedURL = &processedURL
	})
}

func (s *Service) MarkFailed(ctx context.Context, id string) error {
	return s.transition(ctx, id, func(img *Image) {
		img.Status = StatusFailed
	})
}

func (s *Service) transition(ctx context.Context, id string, apply func(*Image)) error {
	img, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	apply(img)
	return s.repo.Update(ctx, img)
}

func (s *Service) GetByID(ctx context.Context, id string) (*Image, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) CountByStatus(ctx context.Context, since time.Time) ([]StatusCount, error) {
	return s.repo.CountByStatus(ctx, since)
}

func (s *Service) RepositoryFor(db core.DBTX) Repository {
	return s.repoFor(db)
}
