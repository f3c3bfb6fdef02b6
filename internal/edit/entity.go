// AngelaMos | 2026
// entity.go

package edit

import (
	"time"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

const JobType = "image.edit"

type Request struct {
	ID             string    `db:"id"`
	ImageID        string    `db:"image_id"`
	UserID         string    `db:"user_id"`
	Prompt         string    `db:"prompt"`
	Status         string    `db:"status"`
	ResultURL      *string   `db:"result_url"`
	ProviderTaskID *string   `db:"provider_task_id"`
	ErrorMessage   *string   `db:"error_message"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r *Request) Finished() bool {
	return r.Status == StatusDone
}

type jobPayload struct {
	EditID  string `json:"edit_id"`
	ImageID string `json:"image_id"`
	UserID  string `json:"user_id"`
}
