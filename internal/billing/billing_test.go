package billing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/Rubayet19/price-tracker/internal/crypto"
	"github.com/Rubayet19/price-tracker/internal/models"
)

type fakeUserRepo struct {
	lastUserID    string
	lastHasAccess bool
	lastPriceTag  *string
	lastEncrypted *string
}

func (f *fakeUserRepo) Upsert(ctx context.Context, u *models.User) error      { return nil }
func (f *fakeUserRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) ListAll(ctx context.Context) ([]*models.User, error) { return nil, nil }
func (f *fakeUserRepo) SetLastDigestSentAt(ctx context.Context, userID string, at time.Time) error {
	return nil
}
func (f *fakeUserRepo) SetTrialStatus(ctx context.Context, userID string, status models.TrialStatus) error {
	return nil
}

func (f *fakeUserRepo) SetHasPaidAccess(ctx context.Context, userID string, hasPaidAccess bool, priceTag, stripeCustomerIDEncrypted *string) error {
	f.lastUserID = userID
	f.lastHasAccess = hasPaidAccess
	f.lastPriceTag = priceTag
	f.lastEncrypted = stripeCustomerIDEncrypted
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeUserRepo) {
	t.Helper()
	repo := &fakeUserRepo{}
	enc, err := crypto.NewEncryptorFromSeed("test-seed", "stripe-customer-id")
	if err != nil {
		t.Fatalf("NewEncryptorFromSeed() error = %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, nil, enc, "whsec_test", logger), repo
}

func TestHandleEvent_CheckoutCompletedGrantsPaidAccess(t *testing.T) {
	h, repo := newTestHandler(t)

	raw, _ := json.Marshal(map[string]any{
		"metadata": map[string]string{"price_tracker_user_id": "user-1"},
		"customer": map[string]string{"id": "cus_abc"},
		"items": map[string]any{
			"data": []map[string]any{
				{"price": map[string]any{"id": "price_1", "metadata": map[string]string{"tier": "pro"}}},
			},
		},
	})
	event := stripe.Event{Type: "checkout.session.completed", Data: &stripe.EventData{Raw: raw}}

	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if repo.lastUserID != "user-1" || !repo.lastHasAccess {
		t.Fatalf("got userID=%s hasAccess=%v, want user-1/true", repo.lastUserID, repo.lastHasAccess)
	}
	if repo.lastPriceTag == nil || *repo.lastPriceTag != "pro" {
		t.Errorf("got priceTag=%v, want pro", repo.lastPriceTag)
	}
	if repo.lastEncrypted == nil || *repo.lastEncrypted == "cus_abc" {
		t.Error("expected the stripe customer id to be encrypted before storage")
	}
}

func TestHandleEvent_SubscriptionDeletedRevokesAccess(t *testing.T) {
	h, repo := newTestHandler(t)

	raw, _ := json.Marshal(map[string]any{
		"metadata": map[string]string{"price_tracker_user_id": "user-2"},
	})
	event := stripe.Event{Type: "customer.subscription.deleted", Data: &stripe.EventData{Raw: raw}}

	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if repo.lastUserID != "user-2" || repo.lastHasAccess {
		t.Fatalf("got userID=%s hasAccess=%v, want user-2/false", repo.lastUserID, repo.lastHasAccess)
	}
}

func TestHandleEvent_MissingUserIDMetadataIsNotAnError(t *testing.T) {
	h, repo := newTestHandler(t)

	raw, _ := json.Marshal(map[string]any{"metadata": map[string]string{}})
	event := stripe.Event{Type: "checkout.session.completed", Data: &stripe.EventData{Raw: raw}}

	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil for a non-user checkout", err)
	}
	if repo.lastUserID != "" {
		t.Error("expected no repository mutation when user id metadata is absent")
	}
}

func TestHandleEvent_UnhandledTypeReturnsSentinel(t *testing.T) {
	h, _ := newTestHandler(t)
	event := stripe.Event{Type: "charge.refunded", Data: &stripe.EventData{Raw: []byte(`{}`)}}

	if err := h.HandleEvent(context.Background(), event); err != ErrUnhandledEventType {
		t.Errorf("HandleEvent() error = %v, want ErrUnhandledEventType", err)
	}
}
