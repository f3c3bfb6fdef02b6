// AngelaMos | 2026
// service_test.go

package audit

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestRecordRequestCapturesClient(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)

	req := httptest.NewRequest("POST", "/v1/images/upload", nil)
	req.Header.Set("User-Agent", "imagedit-test")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 203.0.113.9")

	svc.RecordRequest(req, "u1", ActionImageUpload, map[string]any{"count": 2})

	events, total, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 {
		t.Fatalf("List() total = %d, want 1", total)
	}

	got := events[0]
	if got.IPAddress != "203.0.113.9" {
		t.Errorf("IPAddress = %q, want 203.0.113.9", got.IPAddress)
	}
	if got.UserAgent != "imagedit-test" {
		t.Errorf("UserAgent = %q, want imagedit-test", got.UserAgent)
	}
	if got.UserID == nil || *got.UserID != "u1" {
		t.Errorf("UserID = %v, want u1", got.UserID)
	}

	var details map[string]any
	if err := json.Unmarshal([]byte(got.Details), &details); err != nil {
		t.Fatalf("details not JSON: %v", err)
	}
	if details["count"] != float64(2) {
		t.Errorf("details[count] = %v, want 2", details["count"])
	}
}

func TestListFilters(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	svc.Record(ctx, Entry{UserID: "u1", Action: ActionLogin})
	svc.Record(ctx, Entry{UserID: "u2", Action: ActionLogin})
	svc.Record(ctx, Entry{UserID: "u1", Action: ActionImageDelete})

	tests := []struct {
		name   string
		params ListParams
		want   int
	}{
		{"all", ListParams{}, 3},
		{"by user", ListParams{UserID: "u1"}, 2},
		{"by action", ListParams{Action: ActionLogin}, 2},
		{"by both", ListParams{UserID: "u2", Action: ActionImageDelete}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := svc.List(ctx, tt.params)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != tt.want {
				t.Fatalf("List() total = %d, want %d", total, tt.want)
			}
		})
	}
}

func TestToEventResponseFallsBackOnBadDetails(t *testing.T) {
	resp := ToEventResponse(&Event{Details: "not json"})
	if string(resp.Details) != "{}" {
		t.Fatalf("Details = %s, want {}", resp.Details)
	}
}
