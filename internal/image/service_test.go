// AngelaMos | 2026
// service_test.go

package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/entitlement"
	"github.com/carterperez-dev/imagedit/backend/internal/storage"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type fixture struct {
	images *MemoryRepository
	usage  *usage.MemoryRepository
	subs   *subscription.MemoryRepository
	store  *storage.Local
	svc    *Service
}

func newFixture(t *testing.T, credits, maxBatch int) *fixture {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir(), "/static/uploads")
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	images := NewMemoryRepository()
	u := usage.NewMemoryRepository()
	s := subscription.NewMemoryRepository()
	ent := entitlement.NewService(entitlement.NewMemoryRunner(u, s), u, s, credits, nil)

	return &fixture{
		images: images,
		usage:  u,
		subs:   s,
		store:  store,
		svc: NewService(ServiceConfig{
			Repository:   images,
			RepoFor:      func(core.DBTX) Repository { return images },
			Entitlements: ent,
			Storage:      store,
			MaxBatch:     maxBatch,
		}),
	}
}

func batch(n int) []File {
	files := make([]File, n)
	for i := range files {
		files[i] = File{Filename: "photo.png", Data: pngBytes}
	}
	return files
}

func (f *fixture) storedFiles(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(f.store.Root(), func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk storage: %v", err)
	}
	return n
}

func TestUploadChargesOneCreditPerImage(t *testing.T) {
	f := newFixture(t, 10, 30)
	ctx := context.Background()

	images, err := f.svc.Upload(ctx, "u1", batch(7))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(images) != 7 {
		t.Fatalf("len(images) = %d, want 7", len(images))
	}

	uploaded, _ := f.usage.SumByReason(ctx, "u1", usage.ReasonUpload)
	if uploaded != 7 {
		t.Errorf("uploaded = %d, want 7", uploaded)
	}
	if f.storedFiles(t) != 7 {
		t.Errorf("stored files = %d, want 7", f.storedFiles(t))
	}
	for _, img := range images {
		if img.Status != StatusUploaded || img.UserID != "u1" {
			t.Errorf("image = %+v", img)
		}
	}
}

func TestUploadBatchLargerThanTrialRemainingIsDenied(t *testing.T) {
	f := newFixture(t, 10, 30)
	ctx := context.Background()

	if _, err := f.svc.Upload(ctx, "u1", batch(7)); err != nil {
		t.Fatalf("Upload(7) error = %v", err)
	}

	_, err := f.svc.Upload(ctx, "u1", batch(5))
	var denied *entitlement.DeniedError
	if !errors.As(err, &denied) || denied.Reason != entitlement.ReasonTrialExhausted {
		t.Fatalf("Upload(5) error = %v, want trial_exhausted", err)
	}

	if f.usage.Len() != 1 || f.images.Len() != 7 || f.storedFiles(t) != 7 {
		t.Fatalf("state changed after denial: records=%d images=%d files=%d",
			f.usage.Len(), f.images.Len(), f.storedFiles(t))
	}

	if _, err := f.svc.Upload(ctx, "u1", batch(3)); err != nil {
		t.Fatalf("Upload(3) error = %v", err)
	}

	_, err = f.svc.Upload(ctx, "u1", batch(1))
	if !errors.As(err, &denied) || denied.Reason != entitlement.ReasonTrialExhausted {
		t.Fatalf("Upload after exhaustion error = %v, want trial_exhausted", err)
	}
}

func TestUploadPaidPlanIsNotCapped(t *testing.T) {
	f := newFixture(t, 2, 30)
	ctx := context.Background()

	if _, err := subscription.NewService(f.subs, nil).Upsert(ctx, "u1", subscription.PlanPro); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if _, err := f.svc.Upload(ctx, "u1", batch(5)); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestUploadInactiveSubscriptionIsDenied(t *testing.T) {
	f := newFixture(t, 10, 30)
	ctx := context.Background()

	subs := subscription.NewService(f.subs, nil)
	sub, err := subs.Upsert(ctx, "u1", subscription.PlanBasic)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	sub.Status = subscription.StatusInactive
	if err := f.subs.Update(ctx, sub); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	_, err = f.svc.Upload(ctx, "u1", batch(1))
	var denied *entitlement.DeniedError
	if !errors.As(err, &denied) || denied.Reason != entitlement.ReasonSubscriptionRequired {
		t.Fatalf("Upload() error = %v, want subscription_required", err)
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name  string
		files []File
	}{
		{"empty batch", nil},
		{"too many files", batch(4)},
		{"empty file", []File{{Filename: "a.png"}}},
		{"not an image", []File{{Filename: "a.png", Data: []byte("just some text")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10, 3)

			_, err := f.svc.Upload(context.Background(), "u1", tt.files)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("Upload() error = %v, want ErrInvalidInput", err)
			}
			if f.usage.Len() != 0 || f.storedFiles(t) != 0 {
				t.Fatal("validation failure wrote state")
			}
		})
	}
}

type failingImages struct {
	*MemoryRepository
	failAfter int
	created   int
}

func (r *failingImages) Create(ctx context.Context, img *Image) error {
	if r.created >= r.failAfter {
		return errors.New("insert failed")
	}
	r.created++
	return r.MemoryRepository.Create(ctx, img)
}

func TestUploadRemovesFilesWhenRecordingFails(t *testing.T) {
	f := newFixture(t, 10, 30)
	failing := &failingImages{MemoryRepository: f.images, failAfter: 2}
	f.svc.repoFor = func(core.DBTX) Repository { return failing }

	if _, err := f.svc.Upload(context.Background(), "u1", batch(4)); err == nil {
		t.Fatal("Upload() error = nil, want failure")
	}

	if f.storedFiles(t) != 0 {
		t.Errorf("stored files = %d, want 0", f.storedFiles(t))
	}
	if f.usage.Len() != 0 {
		t.Errorf("usage records = %d, want 0", f.usage.Len())
	}
}

func TestDeleteRemovesRowAndFiles(t *testing.T) {
	f := newFixture(t, 10, 30)
	ctx := context.Background()

	images, err := f.svc.Upload(ctx, "u1", batch(1))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	id := images[0].ID

	if _, err := f.svc.Delete(ctx, id, "u2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Delete() by other user error = %v, want ErrNotFound", err)
	}

	if _, err := f.svc.Delete(ctx, id, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.images.Len() != 0 || f.storedFiles(t) != 0 {
		t.Fatalf("images=%d files=%d after delete", f.images.Len(), f.storedFiles(t))
	}

	uploaded, _ := f.usage.SumByReason(ctx, "u1", usage.ReasonUpload)
	if uploaded != 1 {
		t.Errorf("uploaded = %d, want ledger untouched by delete", uploaded)
	}
}

func TestEditLifecycleTransitions(t *testing.T) {
	f := newFixture(t, 10, 30)
	ctx := context.Background()

	images, err := f.svc.Upload(ctx, "u1", batch(1))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	id := images[0].ID

	if err := f.svc.MarkProcessing(ctx, id, "remove background"); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	if err := f.svc.MarkDone(ctx, id, "/static/uploads/u1/edited.png"); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}

	img, _ := f.svc.Get(ctx, id, "u1")
	if img.Status != StatusDone || img.SourceURL() != "/static/uploads/u1/edited.png" {
		t.Fatalf("image = %+v", img)
	}
	if img.LastEditPrompt == nil || *img.LastEditPrompt != "remove background" {
		t.Fatalf("LastEditPrompt = %v", img.LastEditPrompt)
	}

	if err := f.svc.MarkFailed(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("MarkFailed(missing) error = %v, want ErrNotFound", err)
	}
}
