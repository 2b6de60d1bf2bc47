package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/oklog/ulid/v2"

	"github.com/Rubayet19/price-tracker/internal/batchrunner"
	"github.com/Rubayet19/price-tracker/internal/config"
	"github.com/Rubayet19/price-tracker/internal/discovery"
	"github.com/Rubayet19/price-tracker/internal/entitlements"
	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// CompaniesHandler manages crawl targets: a user's own pricing page and
// the competitors tracked against it.
type CompaniesHandler struct {
	repos      *repository.Repositories
	discoverer *discovery.Discoverer
	runner     *batchrunner.Runner
	cfg        *config.Config
}

// NewCompaniesHandler builds a CompaniesHandler.
func NewCompaniesHandler(repos *repository.Repositories, discoverer *discovery.Discoverer, runner *batchrunner.Runner, cfg *config.Config) *CompaniesHandler {
	return &CompaniesHandler{repos: repos, discoverer: discoverer, runner: runner, cfg: cfg}
}

func companyBody(c *models.Company) companyResponse {
	resp := companyResponse{
		ID:                   c.ID,
		Type:                 string(c.Type),
		Name:                 c.Name,
		Domain:               c.Domain,
		HomepageURL:          c.HomepageURL,
		PrimaryPricingURL:    c.PrimaryPricingURL,
		PricingURLCandidates: c.PricingURLCandidates,
		NextCrawlAt:          c.NextCrawlAt,
		LastCrawlAt:          c.LastCrawlAt,
		LastCrawlStatus:      string(c.LastCrawlStatus),
		LastCrawlError:       c.LastCrawlError,
		LatestConfidence:     c.LatestConfidence,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
	return resp
}

type companyResponse struct {
	ID                   string                         `json:"id"`
	Type                 string                         `json:"type"`
	Name                 string                         `json:"name"`
	Domain               string                         `json:"domain"`
	HomepageURL          *string                        `json:"homepage_url,omitempty"`
	PrimaryPricingURL    *string                        `json:"primary_pricing_url,omitempty"`
	PricingURLCandidates []models.PricingURLCandidate    `json:"pricing_url_candidates"`
	NextCrawlAt          *time.Time                     `json:"next_crawl_at,omitempty"`
	LastCrawlAt          *time.Time                     `json:"last_crawl_at,omitempty"`
	LastCrawlStatus      string                         `json:"last_crawl_status"`
	LastCrawlError       *string                        `json:"last_crawl_error,omitempty"`
	LatestConfidence     *float64                       `json:"latest_confidence,omitempty"`
	CreatedAt            time.Time                      `json:"created_at"`
	UpdatedAt            time.Time                      `json:"updated_at"`
}

// CreateCompanyInput is the request body for adding a crawl target.
type CreateCompanyInput struct {
	Body struct {
		Type        string `json:"type" enum:"self,competitor" doc:"self for the user's own pricing page, competitor for a tracked rival"`
		Name        string `json:"name" minLength:"1"`
		Domain      string `json:"domain" minLength:"1"`
		HomepageURL string `json:"homepage_url,omitempty" format:"uri"`
		PricingURL  string `json:"pricing_url,omitempty" format:"uri" doc:"Known pricing page URL, if already known"`
	}
}

// CreateCompanyOutput wraps a created company.
type CreateCompanyOutput struct {
	Status int              `header:"Status-Code"`
	Body   companyResponse
}

// Create adds a new crawl target, enforcing the caller's competitor-count
// entitlement for type=competitor. There is no limit on type=self, since
// exactly one (or a handful) is expected.
func (h *CompaniesHandler) Create(ctx context.Context, input *CreateCompanyInput) (*CreateCompanyOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	companyType := models.CompanyType(input.Body.Type)
	if companyType != models.CompanyTypeSelf && companyType != models.CompanyTypeCompetitor {
		return nil, huma.Error400BadRequest("type must be self or competitor")
	}

	if companyType == models.CompanyTypeCompetitor {
		user, err := h.repos.User.GetByID(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load user", err)
		}
		ent := entitlements.Resolve(user, time.Now().UTC())
		if !ent.HasAccess {
			return nil, huma.Error403Forbidden("no active trial or paid access")
		}
		existing, err := h.repos.Company.GetByUserID(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to count companies", err)
		}
		count := 0
		for _, c := range existing {
			if c.Type == models.CompanyTypeCompetitor {
				count++
			}
		}
		if count >= ent.CompetitorLimit {
			return nil, huma.Error403Forbidden("competitor tracking limit reached for current plan")
		}
	}

	now := time.Now().UTC()
	company := &models.Company{
		ID:              ulid.Make().String(),
		UserID:          userID,
		Type:            companyType,
		Name:            input.Body.Name,
		Domain:          input.Body.Domain,
		LastCrawlStatus: models.CrawlStatusIdle,
		NextCrawlAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.Body.HomepageURL != "" {
		company.HomepageURL = &input.Body.HomepageURL
	}
	if input.Body.PricingURL != "" {
		company.PrimaryPricingURL = &input.Body.PricingURL
	}

	if err := h.repos.Company.Create(ctx, company); err != nil {
		return nil, huma.Error500InternalServerError("failed to create company", err)
	}

	resp := &CreateCompanyOutput{Status: 201}
	resp.Body = companyBody(company)
	return resp, nil
}

// ListOutput is the request owner's full company list.
type ListOutput struct {
	Body struct {
		Companies []companyResponse `json:"companies"`
	}
}

// List returns every company belonging to the calling user.
func (h *CompaniesHandler) List(ctx context.Context, input *struct{}) (*ListOutput, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	companies, err := h.repos.Company.GetByUserID(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list companies", err)
	}

	resp := &ListOutput{}
	for _, c := range companies {
		resp.Body.Companies = append(resp.Body.Companies, companyBody(c))
	}
	return resp, nil
}

// GetInput identifies a company by path id.
type GetInput struct {
	ID string `path:"id"`
}

// GetOutput wraps one company.
type GetOutput struct {
	Body companyResponse
}

// Get returns one company owned by the calling user.
func (h *CompaniesHandler) Get(ctx context.Context, input *GetInput) (*GetOutput, error) {
	company, err := h.loadOwned(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	resp := &GetOutput{}
	resp.Body = companyBody(company)
	return resp, nil
}

// UpdateInput lets a user edit the name or set a primary pricing URL
// manually, overriding discovery's recommendation.
type UpdateInput struct {
	ID   string `path:"id"`
	Body struct {
		Name              string `json:"name,omitempty"`
		PrimaryPricingURL string `json:"primary_pricing_url,omitempty" format:"uri"`
	}
}

// Update applies a partial edit to a company's name and/or pricing URL.
func (h *CompaniesHandler) Update(ctx context.Context, input *UpdateInput) (*GetOutput, error) {
	company, err := h.loadOwned(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Body.Name != "" {
		company.Name = input.Body.Name
	}
	if input.Body.PrimaryPricingURL != "" {
		url := input.Body.PrimaryPricingURL
		company.PrimaryPricingURL = &url
		for i := range company.PricingURLCandidates {
			company.PricingURLCandidates[i].SelectedByUser = company.PricingURLCandidates[i].URL == url
		}
	}
	company.UpdatedAt = time.Now().UTC()

	if err := h.repos.Company.Update(ctx, company); err != nil {
		return nil, huma.Error500InternalServerError("failed to update company", err)
	}

	resp := &GetOutput{}
	resp.Body = companyBody(company)
	return resp, nil
}

// DiscoverOutput reports the merged candidate set after a discovery pass.
type DiscoverOutput struct {
	Body struct {
		Candidates        []models.PricingURLCandidate `json:"candidates"`
		PrimaryPricingURL *string                       `json:"primary_pricing_url,omitempty"`
	}
}

// Discover runs link discovery against the company's homepage and merges
// the result into its existing candidate set, promoting a primary pricing
// URL if one clears the confidence/gap thresholds and none is set yet.
func (h *CompaniesHandler) Discover(ctx context.Context, input *GetInput) (*DiscoverOutput, error) {
	company, err := h.loadOwned(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if company.HomepageURL == nil || *company.HomepageURL == "" {
		return nil, huma.Error400BadRequest("company has no homepage_url to discover from")
	}

	discovered, err := h.discoverer.Discover(ctx, *company.HomepageURL)
	if err != nil {
		return nil, huma.Error502BadGateway("discovery fetch failed", err)
	}

	company.PricingURLCandidates = discovery.MergeCandidates(company.PricingURLCandidates, discovered)
	if company.PrimaryPricingURL == nil {
		if recommended, ok := discovery.RecommendPrimary(company.PricingURLCandidates, h.cfg.DiscoveryPrimaryMinConfidence, h.cfg.DiscoveryPrimaryMinGap); ok {
			company.PrimaryPricingURL = &recommended
		}
	}
	company.UpdatedAt = time.Now().UTC()

	if err := h.repos.Company.Update(ctx, company); err != nil {
		return nil, huma.Error500InternalServerError("failed to persist discovery results", err)
	}

	resp := &DiscoverOutput{}
	resp.Body.Candidates = company.PricingURLCandidates
	resp.Body.PrimaryPricingURL = company.PrimaryPricingURL
	return resp, nil
}

// CrawlNowOutput reports the immediate, synchronous pipeline outcome.
type CrawlNowOutput struct {
	Body struct {
		CompanyID string `json:"company_id"`
		Status    string `json:"status"`
		Error     string `json:"error,omitempty"`
	}
}

// CrawlNow runs the crawl pipeline for this company immediately rather
// than waiting for the next scheduled cron invocation.
func (h *CompaniesHandler) CrawlNow(ctx context.Context, input *GetInput) (*CrawlNowOutput, error) {
	if _, err := h.loadOwned(ctx, input.ID); err != nil {
		return nil, err
	}

	result, err := h.runner.RunOne(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("crawl failed", err)
	}

	resp := &CrawlNowOutput{}
	resp.Body.CompanyID = result.CompanyID
	resp.Body.Status = string(result.Status)
	resp.Body.Error = result.Error
	return resp, nil
}

// RetryCrawl clears any recorded crawl error and brings the next scheduled
// attempt forward to now, without running the pipeline inline. Use
// CrawlNow for a synchronous retry.
func (h *CompaniesHandler) RetryCrawl(ctx context.Context, input *GetInput) (*GetOutput, error) {
	company, err := h.loadOwned(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	company.LastCrawlError = nil
	company.CrawlLeaseUntil = nil
	company.NextCrawlAt = &now
	company.UpdatedAt = now

	if err := h.repos.Company.Update(ctx, company); err != nil {
		return nil, huma.Error500InternalServerError("failed to reschedule crawl", err)
	}

	resp := &GetOutput{}
	resp.Body = companyBody(company)
	return resp, nil
}

// loadOwned fetches a company by id and verifies it belongs to the
// calling user, collapsing "not found" and "not yours" into the same
// 404 so ownership can't be probed by id.
func (h *CompaniesHandler) loadOwned(ctx context.Context, id string) (*models.Company, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	company, err := h.repos.Company.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load company", err)
	}
	if company == nil || company.UserID != userID {
		return nil, huma.Error404NotFound("company not found")
	}
	return company, nil
}
