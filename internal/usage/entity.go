// AngelaMos | 2026
// entity.go

package usage

import (
	"time"
)

// Record is one consumption event. Records are appended and never updated.
type Record struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	ImagesConsumed int       `db:"images_consumed"`
	Reason         string    `db:"reason"`
	Notes          *string   `db:"notes"`
	CreatedAt      time.Time `db:"created_at"`
}

const (
	ReasonUpload = "upload"
	ReasonEdit   = "edit"
)

func IsValidReason(reason string) bool {
	return reason == ReasonUpload || reason == ReasonEdit
}

type Totals struct {
	Uploaded int `db:"uploaded"`
	Edited   int `db:"edited"`
}

func (t Totals) Sum() int {
	return t.Uploaded + t.Edited
}
