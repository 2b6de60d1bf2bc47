package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/oklog/ulid/v2"

	"github.com/Rubayet19/price-tracker/internal/auth"
	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// TrialHandler issues the local bearer token and starts the free trial.
// It stands in for the external identity provider's sign-up flow in this
// self-hosted deployment.
type TrialHandler struct {
	users    repository.UserRepository
	verifier *auth.Verifier
	trialDur time.Duration
	tokenTTL time.Duration
}

// NewTrialHandler builds a TrialHandler.
func NewTrialHandler(users repository.UserRepository, verifier *auth.Verifier, trialDuration, tokenTTL time.Duration) *TrialHandler {
	return &TrialHandler{users: users, verifier: verifier, trialDur: trialDuration, tokenTTL: tokenTTL}
}

// StartInput is the trial-start request body.
type StartInput struct {
	Body struct {
		Email string `json:"email" format:"email" doc:"Email address to associate with the new account"`
	}
}

// StartOutput carries the newly issued bearer token.
type StartOutput struct {
	Body struct {
		Token     string    `json:"token"`
		UserID    string    `json:"user_id"`
		TrialEndsAt time.Time `json:"trial_ends_at"`
	}
}

// Start creates a new user with an active trial and issues a bearer token
// for it. Each call mints a fresh account; this boundary does nothing to
// prevent the same email from starting more than one trial, since account
// identity itself belongs to the external auth collaborator in production.
func (h *TrialHandler) Start(ctx context.Context, input *StartInput) (*StartOutput, error) {
	now := time.Now().UTC()
	userID := ulid.Make().String()
	trialEndsAt := now.Add(h.trialDur)

	user := &models.User{
		UserID:         userID,
		Email:          input.Body.Email,
		TrialStatus:    models.TrialStatusActive,
		TrialStartedAt: &now,
		TrialEndsAt:    &trialEndsAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.users.Upsert(ctx, user); err != nil {
		return nil, huma.Error500InternalServerError("failed to create trial user", err)
	}

	token, err := h.verifier.Issue(userID, input.Body.Email, h.tokenTTL)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to issue token", err)
	}

	resp := &StartOutput{}
	resp.Body.Token = token
	resp.Body.UserID = userID
	resp.Body.TrialEndsAt = trialEndsAt
	return resp, nil
}
