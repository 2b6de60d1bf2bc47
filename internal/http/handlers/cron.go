package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Rubayet19/price-tracker/internal/batchrunner"
	"github.com/Rubayet19/price-tracker/internal/config"
	"github.com/Rubayet19/price-tracker/internal/cronlock"
	"github.com/Rubayet19/price-tracker/internal/digestjob"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// CronHandler exposes the scheduler entrypoints an external cron trigger
// calls over HTTP, each guarded by its own named invocation lock so two
// overlapping triggers never run the same sweep concurrently.
type CronHandler struct {
	locks  repository.LockRepository
	runner *batchrunner.Runner
	digest *digestjob.Job
	cfg    *config.Config
}

// NewCronHandler builds a CronHandler.
func NewCronHandler(locks repository.LockRepository, runner *batchrunner.Runner, digest *digestjob.Job, cfg *config.Config) *CronHandler {
	return &CronHandler{locks: locks, runner: runner, digest: digest, cfg: cfg}
}

// CrawlInput lets the caller override the batch size, clamped by config.
type CrawlInput struct {
	Limit int `query:"limit" doc:"Max companies to claim this invocation; falls back to the configured default, clamped to the configured max"`
}

// CrawlOutput reports the batch result on success, or that the crawl
// invocation lock is already held.
type CrawlOutput struct {
	Status int `header:"Status-Code"`
	Body   struct {
		OK                bool                     `json:"ok"`
		Skipped           bool                     `json:"skipped"`
		Reason            string                   `json:"reason,omitempty"`
		RetryAfterSeconds int                      `json:"retryAfterSeconds,omitempty"`
		LockUntil         *time.Time               `json:"lockUntil,omitempty"`
		Result            *batchrunner.BatchResult `json:"result,omitempty"`
	}
}

// Crawl runs one crawl-batch invocation under the crawl invocation lock.
func (h *CronHandler) Crawl(ctx context.Context, input *CrawlInput) (*CrawlOutput, error) {
	limit := h.cfg.ClampBatchLimit(input.Limit)
	resp := &CrawlOutput{}

	var result batchrunner.BatchResult
	acquired, retryAfter, lockUntil, err := cronlock.WithLock(ctx, h.locks, cronlock.KeyCrawl, h.cfg.CronCrawlLockTTL, func(ctx context.Context) error {
		result = h.runner.RunBatch(ctx, limit)
		return nil
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("crawl batch failed", err)
	}

	if !acquired {
		resp.Status = 202
		resp.Body.Skipped = true
		resp.Body.Reason = "lock_active"
		resp.Body.RetryAfterSeconds = retryAfter
		if !lockUntil.IsZero() {
			resp.Body.LockUntil = &lockUntil
		}
		return resp, nil
	}

	resp.Status = 200
	resp.Body.OK = true
	resp.Body.Result = &result
	return resp, nil
}

// DigestOutput reports the sweep result on success, or that the digest
// invocation lock is already held.
type DigestOutput struct {
	Status int `header:"Status-Code"`
	Body   struct {
		OK                bool              `json:"ok"`
		Skipped           bool              `json:"skipped"`
		Reason            string            `json:"reason,omitempty"`
		RetryAfterSeconds int               `json:"retryAfterSeconds,omitempty"`
		LockUntil         *time.Time        `json:"lockUntil,omitempty"`
		Result            *digestjob.Result `json:"result,omitempty"`
	}
}

// Digest runs one weekly-digest sweep under the digest invocation lock.
func (h *CronHandler) Digest(ctx context.Context, input *struct{}) (*DigestOutput, error) {
	resp := &DigestOutput{}
	now := time.Now().UTC()

	var result digestjob.Result
	acquired, retryAfter, lockUntil, err := cronlock.WithLock(ctx, h.locks, cronlock.KeyDigest, h.cfg.CronDigestLockTTL, func(ctx context.Context) error {
		r, err := h.digest.Run(ctx, now)
		result = r
		return err
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("digest sweep failed", err)
	}

	if !acquired {
		resp.Status = 202
		resp.Body.Skipped = true
		resp.Body.Reason = "lock_active"
		resp.Body.RetryAfterSeconds = retryAfter
		if !lockUntil.IsZero() {
			resp.Body.LockUntil = &lockUntil
		}
		return resp, nil
	}

	resp.Status = 200
	resp.Body.OK = true
	resp.Body.Result = &result
	return resp, nil
}
