// AngelaMos | 2026
// stripe.go

package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/carterperez-dev/imagedit/backend/internal/config"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type StripeProvider struct {
	client        *client.API
	webhookSecret string
	cfg           config.BillingConfig
	logger        *slog.Logger
}

func NewStripeProvider(cfg config.BillingConfig, logger *slog.Logger) *StripeProvider {
	if logger == nil {
		logger = slog.Default()
	}

	sc := &client.API{}
	sc.Init(cfg.StripeSecretKey, nil)

	return &StripeProvider{
		client:        sc,
		webhookSecret: cfg.StripeWebhookSecret,
		cfg:           cfg,
		logger:        logger,
	}
}

func (p *StripeProvider) CreateCustomer(
	ctx context.Context,
	userID, email string,
) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.AddMetadata("user_id", userID)
	params.Context = ctx

	cust, err := p.client.Customers.New(params)
	if err != nil {
		return "", p.mapError("create customer", err)
	}

	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(
	ctx context.Context,
	in CheckoutParams,
) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(in.CustomerRef),
		ClientReferenceID: stripe.String(in.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.AddMetadata("plan", in.Plan)
	params.AddMetadata("user_id", in.UserID)
	params.Context = ctx

	sess, err := p.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, p.mapError("create checkout session", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) CreatePortalSession(
	ctx context.Context,
	customerRef, returnURL string,
) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.client.BillingPortalSessions.New(params)
	if err != nil {
		return "", p.mapError("create portal session", err)
	}

	return sess.URL, nil
}

// VerifyWebhook checks the Stripe-Signature header against the endpoint
// secret and normalizes the event payload.
func (p *StripeProvider) VerifyWebhook(
	payload []byte,
	signature string,
) (*Event, error) {
	if p.webhookSecret == "" {
		return nil, fmt.Errorf("verify webhook: endpoint secret not configured")
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		p.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return normalizeEvent(event, p.cfg)
}

func normalizeEvent(event stripe.Event, cfg config.BillingConfig) (*Event, error) {
	out := &Event{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if sess.Customer != nil {
			out.CustomerRef = sess.Customer.ID
		}
		if sess.Subscription != nil {
			out.SubscriptionRef = sess.Subscription.ID
		}
		out.Plan = sess.Metadata["plan"]
		out.SubscriptionStatus = subscription.StatusActive

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		if sub.Customer != nil {
			out.CustomerRef = sub.Customer.ID
		}
		out.SubscriptionRef = sub.ID
		out.SubscriptionStatus = NormalizeStatus(sub.Status)
		if out.Type == EventSubscriptionDeleted {
			out.SubscriptionStatus = subscription.StatusInactive
		}
		if sub.Items != nil {
			for _, item := range sub.Items.Data {
				if item != nil && item.Price != nil {
					if plan := cfg.PlanForPrice(item.Price.ID); plan != "" {
						out.Plan = plan
						break
					}
				}
			}
		}
	}

	return out, nil
}

// NormalizeStatus folds Stripe's subscription lifecycle into the two states
// the access gate distinguishes.
func NormalizeStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return subscription.StatusActive
	default:
		return subscription.StatusInactive
	}
}

func (p *StripeProvider) mapError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		p.logger.Error("stripe request failed",
			"op", op,
			"code", stripeErr.Code,
			"status", stripeErr.HTTPStatusCode,
			"request_id", stripeErr.RequestID,
		)
	} else {
		p.logger.Error("stripe request failed", "op", op, "error", err)
	}
	return fmt.Errorf("%s: %w", op, core.ProviderError("billing provider"))
}

var _ Provider = (*StripeProvider)(nil)
