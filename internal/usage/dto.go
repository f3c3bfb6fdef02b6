// AngelaMos | 2026
// dto.go

package usage

import (
	"time"
)

type RecordResponse struct {
	ID             string    `json:"id"`
	ImagesConsumed int       `json:"images_consumed"`
	Reason         string    `json:"reason"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToRecordResponse(r *Record) RecordResponse {
	return RecordResponse{
		ID:             r.ID,
		ImagesConsumed: r.ImagesConsumed,
		Reason:         r.Reason,
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt,
	}
}

func ToRecordResponseList(records []Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for i := range records {
		out = append(out, ToRecordResponse(&records[i]))
	}
	return out
}
