// AngelaMos | 2026
// provider.go

package billing

import (
	"context"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is a verified provider notification reduced to the fields the
// subscription state machine consumes. SubscriptionStatus is already
// normalized to active or inactive.
type Event struct {
	ID                 string
	Type               string
	CustomerRef        string
	SubscriptionRef    string
	SubscriptionStatus string
	Plan               string
}

type CheckoutParams struct {
	UserID      string
	CustomerRef string
	PriceID     string
	Plan        string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Provider is the billing provider as seen by this service.
type Provider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error)
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
