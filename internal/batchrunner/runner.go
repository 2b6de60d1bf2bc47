// Package batchrunner sequences the per-company crawl pipeline: resolve a
// pricing URL, check entitlements, fetch and extract, gate on content hash,
// persist a snapshot, diff against the prior snapshot, and conditionally
// emit an insight. It is the thing a cron-triggered handler calls once it
// holds the crawl invocation lock.
package batchrunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Rubayet19/price-tracker/internal/archive"
	"github.com/Rubayet19/price-tracker/internal/config"
	"github.com/Rubayet19/price-tracker/internal/diffengine"
	"github.com/Rubayet19/price-tracker/internal/discovery"
	"github.com/Rubayet19/price-tracker/internal/entitlements"
	"github.com/Rubayet19/price-tracker/internal/extractor"
	"github.com/Rubayet19/price-tracker/internal/insightbuilder"
	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// ItemStatus is the terminal outcome recorded for one claimed company.
type ItemStatus string

const (
	ItemOK           ItemStatus = "ok"
	ItemUnchanged    ItemStatus = "unchanged"
	ItemBlocked      ItemStatus = "blocked"
	ItemManualNeeded ItemStatus = "manual_needed"
	ItemError        ItemStatus = "error"
	ItemNoURL        ItemStatus = "no_url"
	ItemNotEntitled  ItemStatus = "not_entitled"
)

// ItemResult is one company's outcome within a batch.
type ItemResult struct {
	CompanyID string     `json:"company_id"`
	Status    ItemStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// BatchResult is the aggregate outcome of one RunBatch call.
type BatchResult struct {
	Claimed int          `json:"claimed"`
	Items   []ItemResult `json:"items"`
}

// Runner wires every component the per-item pipeline depends on.
type Runner struct {
	repos      *repository.Repositories
	discoverer *discovery.Discoverer
	archiver   *archive.Service
	cfg        *config.Config
	logger     *slog.Logger
}

// New builds a Runner. archiver may be a disabled *archive.Service (or
// nil), in which case raw captures are simply not archived.
func New(repos *repository.Repositories, discoverer *discovery.Discoverer, archiver *archive.Service, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{repos: repos, discoverer: discoverer, archiver: archiver, cfg: cfg, logger: logger}
}

// RunBatch repeatedly claims a due competitor and runs it through the
// pipeline until limit items have been claimed or none remain due. A claim
// error stops the batch early rather than retrying indefinitely.
func (r *Runner) RunBatch(ctx context.Context, limit int) BatchResult {
	var result BatchResult
	for i := 0; i < limit; i++ {
		leaseUntil := time.Now().UTC().Add(r.cfg.CrawlLeaseMS)
		company, err := r.repos.Company.ClaimDue(ctx, models.CompanyTypeCompetitor, leaseUntil)
		if err != nil {
			r.logger.Error("claim due company failed", "error", err)
			break
		}
		if company == nil {
			break
		}
		result.Claimed++
		result.Items = append(result.Items, r.runItem(ctx, company))
	}
	return result
}

// RunOne runs the pipeline for a single company immediately, bypassing the
// due-schedule check ClaimDue enforces. It returns an error without running
// when the company already carries an unexpired crawl lease; otherwise it
// takes the lease before running. The lease check and the lease write are
// separate statements, not one atomic claim like ClaimDue.
func (r *Runner) RunOne(ctx context.Context, companyID string) (ItemResult, error) {
	company, err := r.repos.Company.GetByID(ctx, companyID)
	if err != nil {
		return ItemResult{}, fmt.Errorf("failed to load company: %w", err)
	}
	if company == nil {
		return ItemResult{}, fmt.Errorf("company not found: %s", companyID)
	}

	now := time.Now().UTC()
	if company.CrawlLeaseUntil != nil && company.CrawlLeaseUntil.After(now) {
		return ItemResult{}, fmt.Errorf("company %s already holds an active crawl lease", companyID)
	}
	leaseUntil := now.Add(r.cfg.CrawlLeaseMS)
	company.CrawlLeaseUntil = &leaseUntil
	if err := r.repos.Company.Update(ctx, company); err != nil {
		return ItemResult{}, fmt.Errorf("failed to take crawl lease: %w", err)
	}

	return r.runItem(ctx, company), nil
}

// itemState accumulates everything the deferred Finalize step needs,
// independent of which terminal path the item took.
type itemState struct {
	status      models.CrawlStatus
	errMsg      string
	contentHash *string
	confidence  *float64
}

func (r *Runner) runItem(ctx context.Context, company *models.Company) ItemResult {
	now := time.Now().UTC()
	state := &itemState{}

	defer func() {
		if rec := recover(); rec != nil {
			state.status = models.CrawlStatusError
			state.errMsg = fmt.Sprintf("panic: %v", rec)
		}
		r.finalize(ctx, company, state, now)
	}()

	// Resolving.
	pricingURL := ""
	if company.PrimaryPricingURL != nil && *company.PrimaryPricingURL != "" {
		pricingURL = *company.PrimaryPricingURL
	} else if company.HomepageURL != nil && *company.HomepageURL != "" {
		discovered, err := r.discoverer.Discover(ctx, *company.HomepageURL)
		if err != nil {
			r.logger.Warn("discovery failed during resolving", "company_id", company.ID, "error", err)
		} else {
			company.PricingURLCandidates = discovery.MergeCandidates(company.PricingURLCandidates, discovered)
			if recommended, ok := discovery.RecommendPrimary(company.PricingURLCandidates, r.cfg.DiscoveryPrimaryMinConfidence, r.cfg.DiscoveryPrimaryMinGap); ok {
				pricingURL = recommended
				if company.PrimaryPricingURL == nil {
					company.PrimaryPricingURL = &recommended
				}
			}
		}
	}
	if pricingURL == "" {
		state.status = models.CrawlStatusManualNeeded
		state.errMsg = "no pricing url and no homepage url to discover from"
		return ItemResult{CompanyID: company.ID, Status: ItemNoURL, Error: state.errMsg}
	}

	// Entitlement check.
	user, err := r.repos.User.GetByID(ctx, company.UserID)
	if err != nil {
		state.status = models.CrawlStatusError
		state.errMsg = err.Error()
		return ItemResult{CompanyID: company.ID, Status: ItemError, Error: state.errMsg}
	}
	if user != nil && entitlements.RefreshTrialStatus(user, now) {
		if err := r.repos.User.SetTrialStatus(ctx, user.UserID, user.TrialStatus); err != nil {
			r.logger.Warn("failed to persist trial status transition", "user_id", user.UserID, "error", err)
		}
	}
	ent := entitlements.Resolve(user, now)
	if !ent.HasAccess {
		state.status = models.CrawlStatusIdle
		return ItemResult{CompanyID: company.ID, Status: ItemNotEntitled}
	}

	// Fetching.
	outcome := extractor.FetchAndExtract(ctx, pricingURL, extractor.FetchOptions{
		Timeout:       r.cfg.CrawlFetchTimeoutMS,
		MaxHTMLLength: r.cfg.CrawlMaxHTMLLength,
	})
	state.status = outcome.Status
	state.errMsg = outcome.Error
	if outcome.Status == models.CrawlStatusOK {
		hash := outcome.ContentHash
		confidence := outcome.Confidence
		state.contentHash = &hash
		state.confidence = &confidence
	}
	if outcome.Status != models.CrawlStatusOK {
		itemStatus := ItemStatus(outcome.Status)
		return ItemResult{CompanyID: company.ID, Status: itemStatus, Error: outcome.Error}
	}

	// HashGate.
	if company.LatestContentHash != nil && *company.LatestContentHash == outcome.ContentHash {
		return ItemResult{CompanyID: company.ID, Status: ItemUnchanged}
	}

	// Load the immediately-previous snapshot before writing the new one, so
	// the diff always compares against what was true before this crawl.
	previous, err := r.repos.Snapshot.GetLatestByCompanyID(ctx, company.ID)
	if err != nil {
		state.status = models.CrawlStatusError
		state.errMsg = err.Error()
		return ItemResult{CompanyID: company.ID, Status: ItemError, Error: state.errMsg}
	}

	// SnapshotCreated.
	snapshot := &models.Snapshot{
		ID:            ulid.Make().String(),
		UserID:        company.UserID,
		CompanyID:     company.ID,
		CapturedAt:    now,
		CaptureMethod: outcome.CaptureMethod,
		Confidence:    outcome.Confidence,
		ContentHash:   outcome.ContentHash,
		Payload:       outcome.Payload,
		IsVerified:    outcome.IsVerified,
	}
	if r.archiver.IsEnabled() && outcome.RawHTML != "" {
		key, err := r.archiver.StoreRawCapture(ctx, company.ID, snapshot.ID, []byte(outcome.RawHTML))
		if err != nil {
			r.logger.Warn("failed to archive raw capture", "company_id", company.ID, "error", err)
		} else if key != "" {
			snapshot.RawCaptureKey = &key
			company.RawCaptureKey = &key
		}
	}
	if err := r.repos.Snapshot.Create(ctx, snapshot); err != nil {
		state.status = models.CrawlStatusError
		state.errMsg = err.Error()
		return ItemResult{CompanyID: company.ID, Status: ItemError, Error: state.errMsg}
	}
	if previous == nil {
		// No prior observation: nothing to diff against, and the invariant
		// "a Diff only records a real change" means we simply stop here.
		return ItemResult{CompanyID: company.ID, Status: ItemOK}
	}

	// DiffComputed.
	normalized := diffengine.Compute(previous.Payload, snapshot.Payload, diffengine.DefaultThresholds, now)
	if normalized.IsEmpty() {
		return ItemResult{CompanyID: company.ID, Status: ItemOK}
	}
	severity := diffengine.Severity(normalized, diffengine.DefaultThresholds)
	verification := models.VerificationUnverified
	if snapshot.IsVerified {
		verification = models.VerificationVerified
	}

	diff := &models.Diff{
		ID:                 ulid.Make().String(),
		UserID:             company.UserID,
		CompanyID:          company.ID,
		PreviousSnapshotID: &previous.ID,
		CurrentSnapshotID:  snapshot.ID,
		NormalizedDiff:     normalized,
		Severity:           severity,
		VerificationState:  verification,
		DetectedAt:         now,
	}
	if err := r.repos.Diff.Create(ctx, diff); err != nil {
		state.status = models.CrawlStatusError
		state.errMsg = err.Error()
		return ItemResult{CompanyID: company.ID, Status: ItemError, Error: state.errMsg}
	}

	// InsightDecided.
	decision := insightbuilder.Build(insightbuilder.Input{
		User:              user,
		CompanyID:         company.ID,
		DiffID:            diff.ID,
		Severity:          severity,
		VerificationState: verification,
		NormalizedDiff:    normalized,
		Now:               now,
	})
	if decision.ShouldCreate {
		decision.Insight.ID = ulid.Make().String()
		if err := r.repos.Insight.Create(ctx, decision.Insight); err != nil {
			r.logger.Error("failed to persist insight", "company_id", company.ID, "diff_id", diff.ID, "error", err)
		}
	}

	return ItemResult{CompanyID: company.ID, Status: ItemOK}
}

// finalize always runs, even on panic, and is where runItem writes
// nextCrawlAt, clears crawlLeaseUntil, and sets the observation fields on
// Company.
func (r *Runner) finalize(ctx context.Context, company *models.Company, state *itemState, now time.Time) {
	finalStatus := state.status
	if finalStatus == "" {
		finalStatus = models.CrawlStatusError
	}

	company.LastCrawlAt = &now
	company.LastCrawlStatus = finalStatus
	company.CrawlLeaseUntil = nil
	company.UpdatedAt = now

	if state.contentHash != nil {
		company.LatestContentHash = state.contentHash
	}
	if state.confidence != nil {
		company.LatestConfidence = state.confidence
	}

	if state.errMsg != "" {
		msg := state.errMsg
		if len(msg) > 400 {
			msg = msg[:400]
		}
		company.LastCrawlError = &msg
	} else {
		company.LastCrawlError = nil
	}

	company.NextCrawlAt = nextCrawlTime(r.cfg, finalStatus, now)

	if err := r.repos.Company.Update(ctx, company); err != nil {
		r.logger.Error("failed to finalize company", "company_id", company.ID, "error", err)
	}

	switch finalStatus {
	case models.CrawlStatusBlocked, models.CrawlStatusManualNeeded, models.CrawlStatusError:
		r.recordAudit(ctx, company, finalStatus, state.errMsg, now)
	}
}

func nextCrawlTime(cfg *config.Config, status models.CrawlStatus, now time.Time) *time.Time {
	var delay time.Duration
	switch status {
	case models.CrawlStatusOK:
		delay = cfg.CrawlSuccessDelayMS
	case models.CrawlStatusBlocked:
		delay = cfg.CrawlBlockedBackoffMS
	case models.CrawlStatusManualNeeded:
		delay = cfg.CrawlManualBackoffMS
	case models.CrawlStatusIdle:
		// Not entitled right now; recheck on the same cadence as a
		// transient error so an upgrade is picked up reasonably soon.
		delay = cfg.CrawlErrorBackoffMS
	default:
		delay = cfg.CrawlErrorBackoffMS
	}
	t := now.Add(delay)
	return &t
}

func (r *Runner) recordAudit(ctx context.Context, company *models.Company, status models.CrawlStatus, errMsg string, now time.Time) {
	event := &models.AuditEvent{
		ID:        ulid.Make().String(),
		UserID:    company.UserID,
		CompanyID: &company.ID,
		EventType: "crawl_" + string(status),
		Outcome:   models.AuditOutcomeFailure,
		Metadata:  map[string]string{"error": errMsg},
		CreatedAt: now,
	}
	if err := r.repos.Audit.Record(ctx, event); err != nil {
		r.logger.Warn("failed to record crawl audit event", "company_id", company.ID, "error", err)
	}
}
