// AngelaMos | 2026
// client.go

package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carterperez-dev/imagedit/backend/internal/config"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
)

const maxAttempts = 3

// Editor applies a natural language edit to an image.
type Editor interface {
	Edit(ctx context.Context, image []byte, prompt string) (*Result, error)
}

type Result struct {
	Image  []byte
	TaskID string
}

type editRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

type editResponse struct {
	Result string `json:"result"`
	TaskID string `json:"task_id"`
}

type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("edit provider http %d: %s", e.Status, e.Body)
}

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	backoff  time.Duration
}

func NewClient(cfg config.EditorConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		backoff:  250 * time.Millisecond,
	}
}

// Edit posts the image and prompt to the provider. 429 and 5xx responses
// are retried; every failure is reported as core.ErrProviderUnavailable.
func (c *Client) Edit(ctx context.Context, image []byte, prompt string) (*Result, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("edit image: endpoint not configured: %w", core.ErrProviderUnavailable)
	}

	body, err := json.Marshal(editRequest{
		Image:  base64.StdEncoding.EncodeToString(image),
		Prompt: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode edit request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("edit image: %w: %w", core.ErrProviderUnavailable, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		res, err := c.do(ctx, body)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) &&
			se.Status != http.StatusTooManyRequests && se.Status < 500 {
			break
		}
	}

	return nil, fmt.Errorf("edit image: %w: %w", core.ErrProviderUnavailable, lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck
		return nil, &StatusError{Status: resp.StatusCode, Body: string(msg)}
	}

	var out editResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode edit response: %w", err)
	}

	img, err := base64.StdEncoding.DecodeString(out.Result)
	if err != nil {
		return nil, fmt.Errorf("decode edited image: %w", err)
	}
	if len(img) == 0 {
		return nil, errors.New("edit response has no image")
	}

	return &Result{Image: img, TaskID: out.TaskID}, nil
}

var _ Editor = (*Client)(nil)
