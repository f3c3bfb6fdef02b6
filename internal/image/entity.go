// AngelaMos | 2026
// entity.go

package image

import (
	"time"
)

const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

type Image struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Filename       string    `db:"filename"`
	OriginalURL    string    `db:"original_url"`
	ProcessedURL   *string   `db:"processed_url"`
	Status         string    `db:"status"`
	LastEditPrompt *string   `db:"last_edit_prompt"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// SourceURL is the image an edit should start from: the latest edited
// version when there is one.
func (i *Image) SourceURL() string {
	if i.ProcessedURL != nil && *i.ProcessedURL != "" {
		return *i.ProcessedURL
	}
	return i.OriginalURL
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// File is one part of an upload batch.
type File struct {
	Filename string
	Data     []byte
}
