// AngelaMos | 2026
// handler_test.go

package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
)

type stubAccess struct {
	status StatusResponse
}

func (s stubAccess) Status(context.Context, string) (StatusResponse, error) {
	return s.status, nil
}

type stubCheckout struct {
	plan string
}

func (s *stubCheckout) StartCheckout(_ context.Context, _ string, plan string) (*CheckoutResponse, error) {
	s.plan = plan
	return &CheckoutResponse{SessionID: "cs_test", URL: "https://checkout.example/cs_test"}, nil
}

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestRouter(checkout *stubCheckout, auditRepo *audit.MemoryRepository) (chi.Router, *Service) {
	svc := NewService(NewMemoryRepository(), nil)
	h := NewHandler(
		svc,
		stubAccess{status: StatusResponse{Status: "trial", Plan: "trial", TrialRemaining: 4}},
		checkout,
		audit.NewService(auditRepo, nil),
	)

	r := chi.NewRouter()
	h.RegisterRoutes(r, asUser("u1"))
	return r, svc
}

func TestStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(&stubCheckout{}, audit.NewMemoryRepository())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var got StatusResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.TrialRemaining != 4 || got.Status != "trial" {
		t.Fatalf("data = %+v, want trial with 4 remaining", got)
	}
}

func TestUpsertEndpoint(t *testing.T) {
	auditRepo := audit.NewMemoryRepository()
	r, svc := newTestRouter(&stubCheckout{}, auditRepo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/", strings.NewReader(`{"plan":"pro"}`))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	current, err := svc.Current(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.Plan != PlanPro || current.Status != StatusActive {
		t.Fatalf("Current() = %s/%s, want pro/active", current.Plan, current.Status)
	}

	actions := auditRepo.Actions()
	if len(actions) != 1 || actions[0] != audit.ActionSubscriptionUpdated {
		t.Fatalf("audit actions = %v", actions)
	}
}

func TestUpsertEndpointRejectsBadPlan(t *testing.T) {
	r, _ := newTestRouter(&stubCheckout{}, audit.NewMemoryRepository())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/", strings.NewReader(`{"plan":"platinum"}`))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCheckoutEndpoint(t *testing.T) {
	checkout := &stubCheckout{}
	r, _ := newTestRouter(checkout, audit.NewMemoryRepository())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/checkout-session", strings.NewReader(`{"plan":"basic"}`))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if checkout.plan != PlanBasic {
		t.Fatalf("checkout plan = %q, want basic", checkout.plan)
	}

	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var got CheckoutResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.SessionID != "cs_test" {
		t.Fatalf("session_id = %q, want cs_test", got.SessionID)
	}
}

func TestCheckoutEndpointRejectsTrialPlan(t *testing.T) {
	r, _ := newTestRouter(&stubCheckout{}, audit.NewMemoryRepository())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/checkout-session", strings.NewReader(`{"plan":"trial"}`))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
