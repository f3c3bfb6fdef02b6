// AngelaMos | 2026
// client_test.go

package editor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/config"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

func newTestClient(url string) *Client {
	c := NewClient(config.EditorConfig{
		Endpoint: url,
		APIKey:   "secret",
		Timeout:  5 * time.Second,
	})
	c.backoff = time.Millisecond
	return c
}

func TestEditSendsImageAndPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req editRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		raw, _ := base64.StdEncoding.DecodeString(req.Image)
		if string(raw) != "pixels" || req.Prompt != "make it blue" {
			t.Errorf("request = (%q, %q)", raw, req.Prompt)
		}

		_ = json.NewEncoder(w).Encode(editResponse{
			Result: base64.StdEncoding.EncodeToString([]byte("blue pixels")),
			TaskID: "task-1",
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Edit(context.Background(), []byte("pixels"), "make it blue")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if string(res.Image) != "blue pixels" || res.TaskID != "task-1" {
		t.Fatalf("Edit() = (%q, %q)", res.Image, res.TaskID)
	}
}

func TestEditRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(editResponse{
			Result: base64.StdEncoding.EncodeToString([]byte("ok")),
		})
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Edit(context.Background(), []byte("x"), "p"); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestEditClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Edit(context.Background(), []byte("x"), "p")
	if !errors.Is(err, core.ErrProviderUnavailable) {
		t.Fatalf("Edit() error = %v, want ErrProviderUnavailable", err)
	}

	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
		t.Fatalf("Edit() error = %v, want StatusError 400", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestEditWithoutEndpoint(t *testing.T) {
	_, err := NewClient(config.EditorConfig{}).Edit(context.Background(), []byte("x"), "p")
	if !errors.Is(err, core.ErrProviderUnavailable) {
		t.Fatalf("Edit() error = %v, want ErrProviderUnavailable", err)
	}
}
