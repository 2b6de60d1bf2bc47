package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Rubayet19/price-tracker/internal/entitlements"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// EntitlementsHandler projects the resolved Entitlements for the current
// user.
type EntitlementsHandler struct {
	users repository.UserRepository
}

// NewEntitlementsHandler builds an EntitlementsHandler.
func NewEntitlementsHandler(users repository.UserRepository) *EntitlementsHandler {
	return &EntitlementsHandler{users: users}
}

// GetMeOutput is the resolved access level for the calling user.
type GetMeOutput struct {
	Body struct {
		AccessSource           string `json:"access_source"`
		PlanTier                string `json:"plan_tier,omitempty"`
		HasAccess               bool   `json:"has_access"`
		CompetitorLimit         int    `json:"competitor_limit"`
		SeverityGate            string `json:"severity_gate"`
		CanReceiveWeeklyDigest  bool   `json:"can_receive_weekly_digest"`
	}
}

// GetMe resolves and returns the calling user's current entitlements,
// applying the idempotent trial-status transition first if it changed.
func (h *EntitlementsHandler) GetMe(ctx context.Context, input *struct{}) (*GetMeOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load user", err)
	}
	if user == nil {
		return nil, huma.Error404NotFound("user not found")
	}

	now := time.Now().UTC()
	if entitlements.RefreshTrialStatus(user, now) {
		if err := h.users.SetTrialStatus(ctx, user.UserID, user.TrialStatus); err != nil {
			return nil, huma.Error500InternalServerError("failed to persist trial status", err)
		}
	}

	ent := entitlements.Resolve(user, now)
	resp := &GetMeOutput{}
	resp.Body.AccessSource = string(ent.AccessSource)
	resp.Body.PlanTier = ent.PlanTier
	resp.Body.HasAccess = ent.HasAccess
	resp.Body.CompetitorLimit = ent.CompetitorLimit
	resp.Body.SeverityGate = string(ent.SeverityGate)
	resp.Body.CanReceiveWeeklyDigest = ent.CanReceiveWeeklyDigest
	return resp, nil
}
