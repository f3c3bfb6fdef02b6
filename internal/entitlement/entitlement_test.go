// AngelaMos | 2026
// entitlement_test.go

package entitlement

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
)

type fixture struct {
	usage *usage.MemoryRepository
	subs  *subscription.MemoryRepository
	svc   *Service
}

func newFixture(credits int) *fixture {
	u := usage.NewMemoryRepository()
	s := subscription.NewMemoryRepository()
	return &fixture{
		usage: u,
		subs:  s,
		svc:   NewService(NewMemoryRunner(u, s), u, s, credits, nil),
	}
}

func (f *fixture) record(t *testing.T, userID string, n int, reason string) {
	t.Helper()
	if _, err := usage.NewService(f.usage).Record(context.Background(), userID, n, reason, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}

func (f *fixture) subscribe(t *testing.T, userID, plan, status string) {
	t.Helper()
	ctx := context.Background()
	sub, err := subscription.NewService(f.subs, nil).Upsert(ctx, userID, plan)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if status != subscription.StatusActive {
		sub.Status = status
		if err := f.subs.Update(ctx, sub); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
}

func TestTrialRemainingFormula(t *testing.T) {
	tests := []struct {
		name    string
		credits int
		uploads []int
		edits   []int
		want    int
	}{
		{"no usage", 10, nil, nil, 10},
		{"partial", 10, []int{3, 2}, []int{1}, 4},
		{"exact", 10, []int{7}, []int{3}, 0},
		{"over", 10, []int{12}, []int{4}, 0},
		{"zero credits", 0, nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.credits)
			for _, n := range tt.uploads {
				f.record(t, "u1", n, usage.ReasonUpload)
			}
			for _, n := range tt.edits {
				f.record(t, "u1", n, usage.ReasonEdit)
			}

			got, err := f.svc.TrialRemaining(context.Background(), "u1")
			if err != nil {
				t.Fatalf("TrialRemaining() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("TrialRemaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTotalsSplitsByReason(t *testing.T) {
	f := newFixture(10)
	f.record(t, "u1", 4, usage.ReasonUpload)
	f.record(t, "u1", 1, usage.ReasonEdit)
	f.record(t, "u1", 1, usage.ReasonEdit)

	totals, err := f.svc.Totals(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if totals.Uploaded != 4 || totals.Edited != 2 {
		t.Fatalf("Totals() = %+v, want uploaded=4 edited=2", totals)
	}
}

func TestCalculatorFollowsConfiguredCredits(t *testing.T) {
	u := usage.NewMemoryRepository()
	if _, err := usage.NewService(u).Record(context.Background(), "u1", 6, usage.ReasonUpload, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for credits, want := range map[int]int{5: 0, 6: 0, 10: 4, 20: 14} {
		got, err := NewCalculator(credits).TrialRemaining(context.Background(), u, "u1")
		if err != nil {
			t.Fatalf("TrialRemaining() error = %v", err)
		}
		if got != want {
			t.Errorf("credits=%d: TrialRemaining() = %d, want %d", credits, got, want)
		}
	}
}

func TestAccessStatus(t *testing.T) {
	tests := []struct {
		name string
		sub  *subscription.Subscription
		want string
	}{
		{"no subscription", nil, AccessTrial},
		{"active trial", &subscription.Subscription{Plan: "trial", Status: "active"}, AccessTrial},
		{"active paid", &subscription.Subscription{Plan: "pro", Status: "active"}, AccessActive},
		{"inactive paid", &subscription.Subscription{Plan: "pro", Status: "inactive"}, AccessInactive},
		{"inactive trial", &subscription.Subscription{Plan: "trial", Status: "inactive"}, AccessInactive},
		{"past due", &subscription.Subscription{Plan: "basic", Status: "past_due"}, AccessInactive},
		{"canceled", &subscription.Subscription{Plan: "enterprise", Status: "canceled"}, AccessInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AccessStatus(tt.sub); got != tt.want {
				t.Fatalf("AccessStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthorizeConsumption(t *testing.T) {
	tests := []struct {
		name       string
		plan       string
		status     string
		consumed   int
		wantAllow  bool
		wantReason string
	}{
		{"fresh trial", "", "", 0, true, ""},
		{"trial with credits", "trial", "active", 9, true, ""},
		{"trial exhausted", "", "", 10, false, ReasonTrialExhausted},
		{"paid active ignores trial", "pro", "active", 50, true, ""},
		{"inactive with credits left", "pro", "inactive", 0, false, ReasonSubscriptionRequired},
		{"inactive and exhausted", "basic", "inactive", 10, false, ReasonSubscriptionRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(10)
			if tt.plan != "" {
				f.subscribe(t, "u1", tt.plan, tt.status)
			}
			if tt.consumed > 0 {
				f.record(t, "u1", tt.consumed, usage.ReasonUpload)
			}

			d, err := f.svc.AuthorizeConsumption(context.Background(), "u1")
			if err != nil {
				t.Fatalf("AuthorizeConsumption() error = %v", err)
			}
			if d.Allowed != tt.wantAllow || d.Reason != tt.wantReason {
				t.Fatalf("Decision = %+v, want allowed=%v reason=%q", d, tt.wantAllow, tt.wantReason)
			}
			if f.usage.Len() != boolToInt(tt.consumed > 0) {
				t.Fatalf("gate wrote usage records")
			}
		})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestTrialScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10)

	if _, err := f.svc.Consume(ctx, ConsumeRequest{UserID: "u1", Quantity: 7, Reason: usage.ReasonUpload}, nil); err != nil {
		t.Fatalf("Consume(7) error = %v", err)
	}

	remaining, err := f.svc.TrialRemaining(ctx, "u1")
	if err != nil {
		t.Fatalf("TrialRemaining() error = %v", err)
	}
	if remaining != 3 {
		t.Fatalf("TrialRemaining() = %d, want 3", remaining)
	}

	d, err := f.svc.AuthorizeConsumption(ctx, "u1")
	if err != nil {
		t.Fatalf("AuthorizeConsumption() error = %v", err)
	}
	if !d.Allowed {
		t.Fatalf("gate denied with 3 credits left: %+v", d)
	}

	// The gate does not look at batch size; callers cap against TrialRemaining.
	if _, err := f.svc.Consume(ctx, ConsumeRequest{UserID: "u1", Quantity: 5, Reason: usage.ReasonUpload}, nil); err != nil {
		t.Fatalf("Consume(5) error = %v", err)
	}

	remaining, err = f.svc.TrialRemaining(ctx, "u1")
	if err != nil {
		t.Fatalf("TrialRemaining() error = %v", err)
	}
	if remaining != 0 {
		t.Fatalf("TrialRemaining() = %d, want 0", remaining)
	}

	_, err = f.svc.Consume(ctx, ConsumeRequest{UserID: "u1", Quantity: 1, Reason: usage.ReasonEdit}, nil)
	var denied *DeniedError
	if !errors.As(err, &denied) || denied.Reason != ReasonTrialExhausted {
		t.Fatalf("Consume() after exhaustion error = %v, want trial_exhausted", err)
	}
}

func TestConsumeValidatesBeforeLocking(t *testing.T) {
	f := newFixture(10)

	_, err := f.svc.Consume(context.Background(), ConsumeRequest{UserID: "u1", Quantity: 0, Reason: usage.ReasonUpload}, func(context.Context, Tx) error {
		t.Fatal("effect ran for invalid request")
		return nil
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Consume() error = %v, want ErrInvalidInput", err)
	}
	if f.usage.Len() != 0 {
		t.Fatalf("records = %d, want 0", f.usage.Len())
	}
}

func TestConsumeDeniedSkipsEffectAndLedger(t *testing.T) {
	f := newFixture(10)
	f.subscribe(t, "u1", "pro", subscription.StatusInactive)

	ran := false
	_, err := f.svc.Consume(context.Background(), ConsumeRequest{UserID: "u1", Quantity: 1, Reason: usage.ReasonUpload}, func(context.Context, Tx) error {
		ran = true
		return nil
	})

	if !errors.Is(err, core.ErrEntitlementDenied) {
		t.Fatalf("Consume() error = %v, want ErrEntitlementDenied", err)
	}
	if ran {
		t.Fatal("effect ran after denial")
	}
	if f.usage.Len() != 0 {
		t.Fatalf("records = %d, want 0", f.usage.Len())
	}

	appErr, ok := AsAppError(err)
	if !ok || appErr.StatusCode != http.StatusPaymentRequired || appErr.Code != "SUBSCRIPTION_REQUIRED" {
		t.Fatalf("AsAppError() = %+v, %v", appErr, ok)
	}
}

func TestConsumeEffectFailureRecordsNothing(t *testing.T) {
	f := newFixture(10)
	boom := errors.New("storage down")

	_, err := f.svc.Consume(context.Background(), ConsumeRequest{UserID: "u1", Quantity: 2, Reason: usage.ReasonUpload}, func(_ context.Context, tx Tx) error {
		if !tx.Decision.Allowed || tx.Decision.TrialRemaining != 10 {
			t.Errorf("Decision = %+v, want allowed with 10 remaining", tx.Decision)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Consume() error = %v, want %v", err, boom)
	}
	if f.usage.Len() != 0 {
		t.Fatalf("records = %d, want 0", f.usage.Len())
	}
}

func TestConsumeSerializesPerUser(t *testing.T) {
	f := newFixture(10)
	ctx := context.Background()

	const attempts = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
		denied  int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Consume(ctx, ConsumeRequest{UserID: "u1", Quantity: 1, Reason: usage.ReasonUpload}, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				allowed++
			case errors.Is(err, core.ErrEntitlementDenied):
				denied++
			default:
				t.Errorf("Consume() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if allowed != 10 || denied != attempts-10 {
		t.Fatalf("allowed=%d denied=%d, want 10 and %d", allowed, denied, attempts-10)
	}

	remaining, err := f.svc.TrialRemaining(ctx, "u1")
	if err != nil {
		t.Fatalf("TrialRemaining() error = %v", err)
	}
	if remaining != 0 {
		t.Fatalf("TrialRemaining() = %d, want 0", remaining)
	}
}

func TestStatusView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10)

	st, err := f.svc.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Status != AccessTrial || st.Plan != subscription.PlanTrial || st.TrialRemaining != 10 {
		t.Fatalf("Status() = %+v, want trial/trial/10", st)
	}

	f.subscribe(t, "u1", "pro", subscription.StatusActive)

	st, err = f.svc.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Status != AccessActive || st.Plan != "pro" {
		t.Fatalf("Status() = %+v, want active/pro", st)
	}
}

func TestSubscriptionLockSerializesUpserts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10)
	subs := subscription.NewService(f.subs, nil).
		WithLocker(SubscriptionLock{Runner: NewMemoryRunner(f.usage, f.subs)})

	var wg sync.WaitGroup
	for _, plan := range []string{subscription.PlanBasic, subscription.PlanPro, subscription.PlanEnterprise} {
		wg.Add(1)
		go func(plan string) {
			defer wg.Done()
			if _, err := subs.Upsert(ctx, "u1", plan); err != nil {
				t.Errorf("Upsert(%s) error = %v", plan, err)
			}
		}(plan)
	}
	wg.Wait()

	list, err := subs.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() len = %d, want 1", len(list))
	}
}
