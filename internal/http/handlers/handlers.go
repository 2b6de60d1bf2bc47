// Package handlers implements the huma request/response types and
// resolvers for the pricing-intelligence HTTP surface: health, entitlements,
// trial issuance, company management, dashboard projections, insight
// feedback, admin crawl health, and the cron entrypoints the scheduler
// triggers over HTTP.
package handlers

import (
	"context"

	"github.com/Rubayet19/price-tracker/internal/http/mw"
	"github.com/Rubayet19/price-tracker/internal/version"
)

// HealthCheckOutput is the liveness probe response body.
type HealthCheckOutput struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
}

// HealthCheck reports that the process is up. It does not check the
// database.
func HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	resp := &HealthCheckOutput{}
	resp.Body.Status = "ok"
	resp.Body.Version = version.Get().Version
	return resp, nil
}

// getUserID reads the authenticated subject from context, or "" if the
// request carries no verified claims.
func getUserID(ctx context.Context) string {
	claims := mw.ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
