// AngelaMos | 2026
// handler_test.go

package usage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

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

func TestHandlerListReturnsOwnRecords(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Record(ctx, "u1", 2, ReasonUpload, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := svc.Record(ctx, "u2", 9, ReasonUpload, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, withUser("u1"))

	req := httptest.NewRequest(http.MethodGet, "/usage/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Success bool             `json:"success"`
		Data    []RecordResponse `json:"data"`
		Meta    struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !body.Success || body.Meta.Total != 1 || len(body.Data) != 1 {
		t.Fatalf("body = %+v, want one record", body)
	}
	if body.Data[0].ImagesConsumed != 2 {
		t.Fatalf("images_consumed = %d, want 2", body.Data[0].ImagesConsumed)
	}
}
