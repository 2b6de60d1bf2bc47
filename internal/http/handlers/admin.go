package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Rubayet19/price-tracker/internal/repository"
)

// AdminHandler serves the operator-facing crawl-health view. It sits
// behind the cron-secret boundary rather than user auth, since there is
// no superadmin role in this system's user model.
type AdminHandler struct {
	companies repository.CompanyRepository
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(companies repository.CompanyRepository) *AdminHandler {
	return &AdminHandler{companies: companies}
}

// CrawlStatsOutput reports tracked-competitor counts by last crawl status.
type CrawlStatsOutput struct {
	Body struct {
		Counts map[string]int `json:"counts"`
	}
}

// CrawlStats aggregates competitor crawl health across every user.
func (h *AdminHandler) CrawlStats(ctx context.Context, input *struct{}) (*CrawlStatsOutput, error) {
	counts, err := h.companies.CrawlStatusCounts(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to aggregate crawl stats", err)
	}

	resp := &CrawlStatsOutput{}
	resp.Body.Counts = make(map[string]int, len(counts))
	for status, count := range counts {
		resp.Body.Counts[string(status)] = count
	}
	return resp, nil
}
