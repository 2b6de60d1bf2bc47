// Package billing handles Stripe subscription webhooks, the boundary
// that flips a user's paid-access flag and price tag. Ownership of the
// billing relationship itself sits with Stripe; this package is the
// narrow adapter between its events and the local user mirror.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/Rubayet19/price-tracker/internal/constants"
	"github.com/Rubayet19/price-tracker/internal/crypto"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// ErrUnhandledEventType is returned (but not fatal) for event types this
// boundary doesn't act on.
var ErrUnhandledEventType = errors.New("unhandled webhook event type")

// metadataUserIDKey is the Stripe object metadata key carrying the local
// user id; it must be attached to the Checkout Session / Subscription
// when the checkout flow is created.
const metadataUserIDKey = "price_tracker_user_id"

// Handler processes verified Stripe webhook payloads.
type Handler struct {
	users         repository.UserRepository
	webhookEvents repository.WebhookEventRepository
	encryptor     *crypto.Encryptor
	webhookSecret string
	logger        *slog.Logger
}

// New builds a Handler. encryptor may be nil, in which case the Stripe
// customer id is stored in plaintext — acceptable only for local
// development without an ENCRYPTION_KEY configured.
func New(users repository.UserRepository, webhookEvents repository.WebhookEventRepository, encryptor *crypto.Encryptor, webhookSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		users:         users,
		webhookEvents: webhookEvents,
		encryptor:     encryptor,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// VerifyAndParse checks the Stripe-Signature header against the raw
// request body and returns the parsed event.
func (h *Handler) VerifyAndParse(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, h.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("failed to verify webhook signature: %w", err)
	}
	return event, nil
}

// HandleEvent routes a verified event to the handler for its type. The
// caller is expected to have already claimed eventID through
// WebhookEventRepository for idempotency.
func (h *Handler) HandleEvent(ctx context.Context, event stripe.Event) error {
	h.logger.Info("received stripe webhook", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed", "customer.subscription.updated":
		return h.handleSubscriptionActive(ctx, event)
	case "customer.subscription.deleted":
		return h.handleSubscriptionCanceled(ctx, event)
	default:
		h.logger.Debug("unhandled stripe webhook event type", "type", event.Type)
		return ErrUnhandledEventType
	}
}

type subscriptionLikeEvent struct {
	Metadata map[string]string `json:"metadata"`
	Customer struct {
		ID string `json:"id"`
	} `json:"customer"`
	Items struct {
		Data []struct {
			Price struct {
				ID       string            `json:"id"`
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (h *Handler) handleSubscriptionActive(ctx context.Context, event stripe.Event) error {
	var obj subscriptionLikeEvent
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	userID, ok := obj.Metadata[metadataUserIDKey]
	if !ok || userID == "" {
		h.logger.Warn("stripe event missing user id metadata", "event_id", event.ID, "type", event.Type)
		return nil
	}

	tier := constants.PlanTagStarter
	if len(obj.Items.Data) > 0 {
		if t, ok := obj.Items.Data[0].Price.Metadata["tier"]; ok && t != "" {
			tier = t
		}
	}

	var encryptedCustomerID *string
	if obj.Customer.ID != "" {
		enc, err := h.encryptCustomerID(obj.Customer.ID)
		if err != nil {
			return fmt.Errorf("failed to encrypt stripe customer id: %w", err)
		}
		encryptedCustomerID = enc
	}

	if err := h.users.SetHasPaidAccess(ctx, userID, true, &tier, encryptedCustomerID); err != nil {
		return fmt.Errorf("failed to grant paid access: %w", err)
	}

	h.logger.Info("granted paid access", "user_id", userID, "tier", tier, "event_id", event.ID)
	return nil
}

func (h *Handler) handleSubscriptionCanceled(ctx context.Context, event stripe.Event) error {
	var obj subscriptionLikeEvent
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	userID, ok := obj.Metadata[metadataUserIDKey]
	if !ok || userID == "" {
		h.logger.Warn("stripe cancellation missing user id metadata", "event_id", event.ID)
		return nil
	}

	if err := h.users.SetHasPaidAccess(ctx, userID, false, nil, nil); err != nil {
		return fmt.Errorf("failed to revoke paid access: %w", err)
	}

	h.logger.Info("revoked paid access", "user_id", userID, "event_id", event.ID)
	return nil
}

func (h *Handler) encryptCustomerID(customerID string) (*string, error) {
	if h.encryptor == nil {
		return &customerID, nil
	}
	ciphertext, err := h.encryptor.Encrypt(customerID)
	if err != nil {
		return nil, err
	}
	return &ciphertext, nil
}
