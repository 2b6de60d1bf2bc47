package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rubayet19/price-tracker/internal/billing"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// StripeWebhookHandler is a raw net/http handler rather than a huma
// resolver, since its authenticity check is the Stripe-Signature header
// against the raw body, not a bearer token.
type StripeWebhookHandler struct {
	billing       *billing.Handler
	webhookEvents repository.WebhookEventRepository
	lockTTL       time.Duration
	logger        *slog.Logger
}

// NewStripeWebhookHandler builds a StripeWebhookHandler.
func NewStripeWebhookHandler(b *billing.Handler, webhookEvents repository.WebhookEventRepository, logger *slog.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{billing: b, webhookEvents: webhookEvents, lockTTL: 2 * time.Minute, logger: logger}
}

// ServeHTTP verifies the signature, claims the event id for idempotency,
// and hands the parsed event to the billing boundary.
func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}

	event, err := h.billing.VerifyAndParse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("rejected stripe webhook with invalid signature", "error", err)
		http.Error(w, `{"error":"invalid signature"}`, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	lockUntil := time.Now().UTC().Add(h.lockTTL)
	claimed, err := h.webhookEvents.TryClaim(ctx, event.ID, string(event.Type), lockUntil)
	if err != nil {
		http.Error(w, `{"error":"claim failed"}`, http.StatusInternalServerError)
		return
	}
	if !claimed {
		// Another worker is already processing this event, or it already
		// succeeded; Stripe's retry policy expects a 200 either way.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.billing.HandleEvent(ctx, event); err != nil {
		if err == billing.ErrUnhandledEventType {
			_ = h.webhookEvents.MarkProcessed(ctx, event.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = h.webhookEvents.MarkFailed(ctx, event.ID, err.Error())
		h.logger.Error("failed to handle stripe webhook", "event_id", event.ID, "error", err)
		http.Error(w, `{"error":"processing failed"}`, http.StatusInternalServerError)
		return
	}

	if err := h.webhookEvents.MarkProcessed(ctx, event.ID); err != nil {
		h.logger.Warn("failed to mark webhook event processed", "event_id", event.ID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}
