// AngelaMos | 2026
// service.go

package edit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/editor"
	"github.com/carterperez-dev/imagedit/backend/internal/entitlement"
	"github.com/carterperez-dev/imagedit/backend/internal/image"
	"github.com/carterperez-dev/imagedit/backend/internal/storage"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
	"github.com/carterperez-dev/imagedit/backend/internal/worker"
)

const (
	maxPromptLength   = 2000
	maxFailureMessage = 500
)

type RepositoryFactory func(db core.DBTX) Repository

type ServiceConfig struct {
	Repository   Repository
	RepoFor      RepositoryFactory
	Images       *image.Service
	Entitlements *entitlement.Service
	Queue        worker.Queue
	Editor       editor.Editor
	Storage      storage.Storage
	Logger       *slog.Logger
}

type Service struct {
	repo         Repository
	repoFor      RepositoryFactory
	images       *image.Service
	entitlements *entitlement.Service
	queue        worker.Queue
	editor       editor.Editor
	store        storage.Storage
	tracer       trace.Tracer
	logger       *slog.Logger
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
		images:       cfg.Images,
		entitlements: cfg.Entitlements,
		queue:        cfg.Queue,
		editor:       cfg.Editor,
		store:        cfg.Storage,
		tracer:       otel.Tracer("imagedit/edit"),
		logger:       cfg.Logger,
	}
}

// RequestEdit charges one edit credit, records the request as queued and
// hands it to the work queue. A request that cannot be queued is kept and
// marked failed.
func (s *Service) RequestEdit(
	ctx context.Context,
	userID, imageID, prompt string,
) (*Request, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf(
			"request edit: %w",
			core.NewValidationError("prompt", "is required"),
		)
	}
	if len(prompt) > maxPromptLength {
		return nil, fmt.Errorf(
			"request edit: %w",
			core.NewValidationError("prompt", fmt.Sprintf("must be at most %d characters", maxPromptLength)),
		)
	}

	var req *Request

	_, err := s.entitlements.Consume(ctx, entitlement.ConsumeRequest{
		UserID:   userID,
		Quantity: 1,
		Reason:   usage.ReasonEdit,
		Notes:    "image:" + imageID,
	}, func(ctx context.Context, tx entitlement.Tx) error {
		if _, err := s.images.RepositoryFor(tx.DB).GetForUser(ctx, imageID, userID); err != nil {
			return err
		}

		req = &Request{
			ID:      uuid.New().String(),
			ImageID: imageID,
			UserID:  userID,
			Prompt:  prompt,
			Status:  StatusQueued,
		}
		return s.repoFor(tx.DB).Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to queue edit",
			"edit_id", req.ID,
			"error", err,
		)
		s.fail(context.WithoutCancel(ctx), req, "edit queue unavailable")
	}

	return req, nil
}

func (s *Service) enqueue(ctx context.Context, req *Request) error {
	payload, err := json.Marshal(jobPayload{
		EditID:  req.ID,
		ImageID: req.ImageID,
		UserID:  req.UserID,
	})
	if err != nil {
		return err
	}

	return s.queue.Enqueue(ctx, worker.Job{
		ID:      req.ID,
		Type:    JobType,
		Payload: payload,
	})
}

// History lists the edits of an image the user owns, newest first.
func (s *Service) History(
	ctx context.Context,
	userID, imageID string,
) ([]Request, error) {
	if _, err := s.images.Get(ctx, imageID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByImage(ctx, imageID)
}

// Process runs one edit job: it calls the provider and stores the result.
// The final status is written by Complete. A redelivered job whose edit is
// already done is skipped.
func (s *Service) Process(ctx context.Context, job worker.Job) error {
	var p jobPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.EditID == "" {
		p.EditID = job.ID
	}

	ctx, span := s.tracer.Start(ctx, "edit.process",
		trace.WithAttributes(attribute.String("edit.id", p.EditID)),
	)
	defer span.End()

	err := s.process(ctx, p.EditID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) process(ctx context.Context, editID string) error {
	req, err := s.repo.GetByID(ctx, editID)
	if err != nil {
		return err
	}
	if req.Finished() {
		return nil
	}

	req.Status = StatusProcessing
	req.ErrorMessage = nil
	if err := s.repo.Update(ctx, req); err != nil {
		return err
	}
	if err := s.images.MarkProcessing(ctx, req.ImageID, req.Prompt); err != nil {
		return err
	}

	img, err := s.images.GetByID(ctx, req.ImageID)
	if err != nil {
		return err
	}

	source, err := s.store.Load(ctx, img.SourceURL())
	if err != nil {
		return fmt.Errorf("load source image: %w", err)
	}

	result, err := s.editor.Edit(ctx, source, req.Prompt)
	if err != nil {
		return err
	}

	url, err := s.store.Save(ctx, result.Image, "edited_"+img.Filename, img.UserID)
	if err != nil {
		return fmt.Errorf("save edited image: %w", err)
	}

	req.ResultURL = &url
	if result.TaskID != "" {
		req.ProviderTaskID = &result.TaskID
	}

	return s.repo.Update(ctx, req)
}

// Complete records the outcome of a processed job on the edit request and
// its image.
func (s *Service) Complete(ctx context.Context, job worker.Job, jobErr error) {
	req, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "edit completion for unknown request",
			"edit_id", job.ID,
			"error", err,
		)
		return
	}

	if jobErr != nil || req.ResultURL == nil {
		msg := "edit produced no result"
		if jobErr != nil {
			msg = failureMessage(jobErr)
		}
		s.fail(ctx, req, msg)
		return
	}

	if req.Finished() {
		return
	}

	req.Status = StatusDone
	if err := s.repo.Update(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to complete edit",
			"edit_id", req.ID,
			"error", err,
		)
		return
	}

	if err := s.images.MarkDone(ctx, req.ImageID, *req.ResultURL); err != nil {
		s.logger.ErrorContext(ctx, "failed to update edited image",
			"image_id", req.ImageID,
			"error", err,
		)
		return
	}

	s.logger.InfoContext(ctx, "edit completed",
		"edit_id", req.ID,
		"image_id", req.ImageID,
	)
}

func (s *Service) fail(ctx context.Context, req *Request, msg string) {
	req.Status = StatusFailed
	req.ErrorMessage = &msg

	if err := s.repo.Update(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to record edit failure",
			"edit_id", req.ID,
			"error", err,
		)
	}

	if err := s.images.MarkFailed(ctx, req.ImageID); err != nil && !errors.Is(err, core.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to mark image failed",
			"image_id", req.ImageID,
			"error", err,
		)
	}
}

func failureMessage(err error) string {
	if errors.Is(err, core.ErrProviderUnavailable) {
		return "edit provider unavailable"
	}
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "source image missing"
	}
	if errors.Is(err, worker.ErrQueueClosed) {
		return "edit queue stopped before processing"
	}
	return truncate(err.Error(), maxFailureMessage)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
