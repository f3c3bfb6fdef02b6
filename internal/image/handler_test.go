// AngelaMos | 2026
// handler_test.go

package image

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
)

func withUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }

func multipartBody(t *testing.T, n int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i < n; i++ {
		part, err := mw.CreateFormFile("files", "photo.png")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		_, _ = part.Write(pngBytes)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func newRouter(f *fixture, auditRepo *audit.MemoryRepository, userID string) chi.Router {
	r := chi.NewRouter()
	h := NewHandler(f.svc, audit.NewService(auditRepo, nil), 10<<20)
	h.RegisterRoutes(r, withUser(userID), passthrough)
	return r
}

func upload(t *testing.T, r http.Handler, n int) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, n)
	req := httptest.NewRequest(http.MethodPost, "/images/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerUploadAndList(t *testing.T) {
	f := newFixture(t, 10, 30)
	auditRepo := audit.NewMemoryRepository()
	r := newRouter(f, auditRepo, "u1")

	rec := upload(t, r, 2)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data []ImageResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.Data) != 2 {
		t.Fatalf("created = %d, want 2", len(created.Data))
	}

	actions := auditRepo.Actions()
	if len(actions) != 1 || actions[0] != audit.ActionImageUpload {
		t.Errorf("audit actions = %v", actions)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var list core.Response
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Meta == nil || list.Meta.Total != 2 {
		t.Fatalf("meta = %+v, want total 2", list.Meta)
	}
}

func TestHandlerUploadOverTrialReturns402(t *testing.T) {
	f := newFixture(t, 3, 30)
	r := newRouter(f, audit.NewMemoryRepository(), "u1")

	rec := upload(t, r, 4)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}

	var resp core.Response
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error == nil || resp.Error.Code != "TRIAL_EXHAUSTED" {
		t.Fatalf("error = %+v, want TRIAL_EXHAUSTED", resp.Error)
	}
}

func TestHandlerUploadBatchTooLargeReturns400(t *testing.T) {
	f := newFixture(t, 100, 2)
	r := newRouter(f, audit.NewMemoryRepository(), "u1")

	if rec := upload(t, r, 3); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerGetAndDeleteAreOwnerScoped(t *testing.T) {
	f := newFixture(t, 10, 30)
	auditRepo := audit.NewMemoryRepository()

	images, err := f.svc.Upload(context.Background(), "u1", batch(1))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	path := "/images/" + images[0].ID

	other := newRouter(f, auditRepo, "u2")
	rec := httptest.NewRecorder()
	other.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("other user get status = %d, want 404", rec.Code)
	}

	owner := newRouter(f, auditRepo, "u1")
	rec = httptest.NewRecorder()
	owner.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	owner.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, path, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	actions := auditRepo.Actions()
	if len(actions) != 1 || actions[0] != audit.ActionImageDelete {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestHandlerMalformedIDIsNotFound(t *testing.T) {
	f := newFixture(t, 10, 30)
	r := newRouter(f, audit.NewMemoryRepository(), "u1")

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, "/images/abc", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s /images/abc status = %d, want 404", method, rec.Code)
		}

		var resp core.Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
			t.Errorf("error = %+v, want NOT_FOUND", resp.Error)
		}
	}
}
