// AngelaMos | 2026
// dto.go

package dashboard

import (
	"github.com/carterperez-dev/imagedit/backend/internal/image"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/user"
)

type Summary struct {
	User          user.UserResponse                   `json:"user"`
	Usage         UsageSummary                        `json:"usage"`
	Access        subscription.StatusResponse         `json:"access"`
	RecentImages  []image.ImageResponse               `json:"recent_images"`
	Subscriptions []subscription.SubscriptionResponse `json:"subscriptions"`
}

type UsageSummary struct {
	Uploaded       int `json:"uploaded"`
	Edited         int `json:"edited"`
	Total          int `json:"total"`
	TrialRemaining int `json:"trial_remaining"`
}
