// AngelaMos | 2026
// dto.go

package edit

import (
	"time"
)

type CreateRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=2000"`
}

type RequestResponse struct {
	ID             string    `json:"id"`
	ImageID        string    `json:"image_id"`
	Prompt         string    `json:"prompt"`
	Status         string    `json:"status"`
	ResultURL      *string   `json:"result_url"`
	ProviderTaskID *string   `json:"provider_task_id"`
	ErrorMessage   *string   `json:"error_message"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func ToRequestResponse(r *Request) RequestResponse {
	return RequestResponse{
		ID:             r.ID,
		ImageID:        r.ImageID,
		Prompt:         r.Prompt,
		Status:         r.Status,
		ResultURL:      r.ResultURL,
		ProviderTaskID: r.ProviderTaskID,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func ToRequestResponseList(reqs []Request) []RequestResponse {
	out := make([]RequestResponse, len(reqs))
	for i := range reqs {
		out[i] = ToRequestResponse(&reqs[i])
	}
	return out
}
