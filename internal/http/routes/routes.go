// Package routes wires the handlers package onto a chi router behind
// three huma.API instances: public (health, trial), cron-secret-gated
// (scheduler entrypoints, admin crawl stats), and bearer-auth-gated
// (everything a signed-in user does).
package routes

import (
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/Rubayet19/price-tracker/internal/batchrunner"
	"github.com/Rubayet19/price-tracker/internal/billing"
	"github.com/Rubayet19/price-tracker/internal/config"
	"github.com/Rubayet19/price-tracker/internal/digestjob"
	"github.com/Rubayet19/price-tracker/internal/discovery"
	"github.com/Rubayet19/price-tracker/internal/http/handlers"
	"github.com/Rubayet19/price-tracker/internal/http/mw"
	"github.com/Rubayet19/price-tracker/internal/auth"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// Deps aggregates everything Register needs to build every handler.
type Deps struct {
	Repos      *repository.Repositories
	Discoverer *discovery.Discoverer
	Runner     *batchrunner.Runner
	Digest     *digestjob.Job
	Billing    *billing.Handler
	Verifier   *auth.Verifier
	Cfg        *config.Config
	Logger     *slog.Logger
}

// Register mounts every route this service exposes onto router.
func Register(router chi.Router, d Deps) {
	humaConfig := huma.DefaultConfig("Price Tracker API", "1.0.0")
	humaConfig.Info.Description = "Competitor pricing intelligence: crawl, diff, and gated insight delivery."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Bearer token issued by POST /api/v1/trial/start.",
		},
	}
	api := humachi.New(router, humaConfig)

	hiddenConfig := huma.DefaultConfig("Price Tracker API", "1.0.0")
	hiddenConfig.DocsPath = ""
	hiddenConfig.OpenAPIPath = ""
	hiddenConfig.SchemasPath = ""

	trialHandler := handlers.NewTrialHandler(d.Repos.User, d.Verifier, 14*24*time.Hour, 90*24*time.Hour)

	huma.Get(api, "/api/v1/health", handlers.HealthCheck)
	huma.Post(api, "/api/v1/trial/start", trialHandler.Start)

	// Stripe verifies its own signature; this is a raw handler, not huma.
	stripeHandler := handlers.NewStripeWebhookHandler(d.Billing, d.Repos.WebhookEvent, d.Logger)
	router.Post("/api/v1/webhooks/stripe", stripeHandler.ServeHTTP)

	// Cron-secret-gated: the external scheduler and operator tooling, not
	// end users.
	router.Group(func(r chi.Router) {
		r.Use(mw.CronSecret(d.Cfg.CronSecret))
		cronAPI := humachi.New(r, hiddenConfig)

		cronHandler := handlers.NewCronHandler(d.Repos.Lock, d.Runner, d.Digest, d.Cfg)
		huma.Get(cronAPI, "/api/v1/cron/crawl", cronHandler.Crawl)
		huma.Post(cronAPI, "/api/v1/cron/crawl", cronHandler.Crawl)
		huma.Get(cronAPI, "/api/v1/cron/digest", cronHandler.Digest)
		huma.Post(cronAPI, "/api/v1/cron/digest", cronHandler.Digest)

		adminHandler := handlers.NewAdminHandler(d.Repos.Company)
		huma.Get(cronAPI, "/api/v1/admin/crawl-stats", adminHandler.CrawlStats)
	})

	// Bearer-auth-gated: end-user routes.
	router.Group(func(r chi.Router) {
		r.Use(mw.Auth(d.Verifier, d.Logger))
		r.Use(mw.RateLimitByUser(d.Cfg.InteractiveRateLimitPerMinute))
		protectedAPI := humachi.New(r, hiddenConfig)

		entitlementsHandler := handlers.NewEntitlementsHandler(d.Repos.User)
		huma.Get(protectedAPI, "/api/v1/entitlements/me", entitlementsHandler.GetMe)

		companiesHandler := handlers.NewCompaniesHandler(d.Repos, d.Discoverer, d.Runner, d.Cfg)
		huma.Post(protectedAPI, "/api/v1/companies", companiesHandler.Create)
		huma.Get(protectedAPI, "/api/v1/companies", companiesHandler.List)
		huma.Get(protectedAPI, "/api/v1/companies/{id}", companiesHandler.Get)
		huma.Put(protectedAPI, "/api/v1/companies/{id}", companiesHandler.Update)
		huma.Post(protectedAPI, "/api/v1/companies/{id}/discover", companiesHandler.Discover)
		huma.Post(protectedAPI, "/api/v1/companies/{id}/crawl-now", companiesHandler.CrawlNow)
		huma.Post(protectedAPI, "/api/v1/companies/{id}/retry-crawl", companiesHandler.RetryCrawl)

		dashboardHandler := handlers.NewDashboardHandler(d.Repos)
		huma.Get(protectedAPI, "/api/v1/dashboard/overview", dashboardHandler.Overview)
		huma.Get(protectedAPI, "/api/v1/dashboard/feed", dashboardHandler.Feed)
		huma.Get(protectedAPI, "/api/v1/dashboard/comparison", dashboardHandler.Comparison)

		insightsHandler := handlers.NewInsightsHandler(d.Repos.Insight)
		huma.Post(protectedAPI, "/api/v1/insights/{id}/feedback", insightsHandler.Feedback)
	})
}
