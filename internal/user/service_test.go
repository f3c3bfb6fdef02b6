// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
)

func seed(t *testing.T, svc *Service, email, name string) string {
	t.Helper()
	info, err := svc.Create(context.Background(), email, "hash", name)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", email, err)
	}
	return info.ID
}

func TestCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	info, err := svc.Create(ctx, "  Ada@Example.COM ", "hash", " Ada Lovelace ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if info.Email != "ada@example.com" || info.FullName != "Ada Lovelace" || !info.IsActive {
		t.Fatalf("user info = %+v", info)
	}

	if _, err := svc.Create(ctx, "ada@example.com", "hash", "Other"); !errors.Is(err, core.ErrDuplicateKey) {
		t.Fatalf("duplicate Create() error = %v, want ErrDuplicateKey", err)
	}

	byEmail, err := svc.GetByEmail(ctx, "ADA@example.com")
	if err != nil || byEmail.ID != info.ID {
		t.Fatalf("GetByEmail() = %+v, %v", byEmail, err)
	}
}

func TestToggleActiveRevokesTokensOnDeactivate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	admin := seed(t, svc, "admin@example.com", "Admin")
	target := seed(t, svc, "user@example.com", "User")

	if _, err := svc.ToggleActive(ctx, admin, admin); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("self toggle error = %v, want ErrForbidden", err)
	}

	u, err := svc.ToggleActive(ctx, admin, target)
	if err != nil {
		t.Fatalf("ToggleActive() error = %v", err)
	}
	if u.IsActive || u.TokenVersion != 1 {
		t.Fatalf("after deactivate = %+v", u)
	}

	u, err = svc.ToggleActive(ctx, admin, target)
	if err != nil {
		t.Fatalf("ToggleActive() error = %v", err)
	}
	if !u.IsActive || u.TokenVersion != 1 {
		t.Fatalf("after reactivate = %+v", u)
	}

	counts, _ := svc.Counts(ctx)
	if counts.Total != 2 || counts.Active != 2 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestCanDelete(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	admin := seed(t, svc, "admin@example.com", "Admin")
	other := seed(t, svc, "other@example.com", "Other")
	plain := seed(t, svc, "plain@example.com", "Plain")

	if _, err := svc.UpdateRole(ctx, admin, RoleAdmin); err != nil {
		t.Fatalf("UpdateRole() error = %v", err)
	}
	if _, err := svc.UpdateRole(ctx, admin, "root"); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("UpdateRole(root) error = %v, want ErrInvalidInput", err)
	}

	tests := []struct {
		name      string
		requester string
		target    string
		wantErr   error
	}{
		{"self", plain, plain, nil},
		{"admin deletes user", admin, other, nil},
		{"user deletes user", plain, other, core.ErrForbidden},
		{"user deletes admin", plain, admin, core.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CanDelete(ctx, tt.requester, tt.target)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("CanDelete() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("CanDelete() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdminToggleStatusIsAudited(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	admin := seed(t, svc, "admin@example.com", "Admin")
	target := seed(t, svc, "user@example.com", "User")
	auditRepo := audit.NewMemoryRepository()

	r := chi.NewRouter()
	asAdmin := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, admin)
			ctx = context.WithValue(ctx, middleware.UserRoleKey, RoleAdmin)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
	NewHandler(svc, audit.NewService(auditRepo, nil)).
		RegisterAdminRoutes(r, asAdmin, middleware.RequireAdmin)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/users/"+target+"/toggle-status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if actions := auditRepo.Actions(); len(actions) != 1 || actions[0] != audit.ActionUserStatusToggled {
		t.Fatalf("audit actions = %v", actions)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/users/missing/toggle-status", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d, want 404", rec.Code)
	}
}
