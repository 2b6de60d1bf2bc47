package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// InsightsHandler lets a user record feedback on a generated insight.
type InsightsHandler struct {
	insights repository.InsightRepository
}

// NewInsightsHandler builds an InsightsHandler.
func NewInsightsHandler(insights repository.InsightRepository) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

// FeedbackInput identifies the insight and the reaction to record.
type FeedbackInput struct {
	ID   string `path:"id"`
	Body struct {
		Feedback string `json:"feedback" enum:"helpful,not_helpful"`
	}
}

// FeedbackOutput confirms the recorded feedback.
type FeedbackOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Feedback records the calling user's reaction to an insight they own.
func (h *InsightsHandler) Feedback(ctx context.Context, input *FeedbackInput) (*FeedbackOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	insight, err := h.insights.GetByID(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load insight", err)
	}
	if insight == nil || insight.UserID != userID {
		return nil, huma.Error404NotFound("insight not found")
	}

	feedback := models.InsightFeedback(input.Body.Feedback)
	if feedback != models.FeedbackHelpful && feedback != models.FeedbackNotHelpful {
		return nil, huma.Error400BadRequest("feedback must be helpful or not_helpful")
	}

	if err := h.insights.SetFeedback(ctx, input.ID, feedback); err != nil {
		return nil, huma.Error500InternalServerError("failed to record feedback", err)
	}

	resp := &FeedbackOutput{}
	resp.Body.Success = true
	return resp, nil
}
