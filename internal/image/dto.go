// AngelaMos | 2026
// dto.go

package image

import (
	"time"
)

type ImageResponse struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	OriginalURL    string    `json:"original_url"`
	ProcessedURL   *string   `json:"processed_url"`
	Status         string    `json:"status"`
	LastEditPrompt *string   `json:"last_edit_prompt"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListParams struct {
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToImageResponse(img *Image) ImageResponse {
	return ImageResponse{
		ID:             img.ID,
		Filename:       img.Filename,
		OriginalURL:    img.OriginalURL,
		ProcessedURL:   img.ProcessedURL,
		Status:         img.Status,
		LastEditPrompt: img.LastEditPrompt,
		CreatedAt:      img.CreatedAt,
		UpdatedAt:      img.UpdatedAt,
	}
}

func ToImageResponseList(images []Image) []ImageResponse {
	out := make([]ImageResponse, len(images))
	for i := range images {
		out[i] = ToImageResponse(&images[i])
	}
	return out
}
