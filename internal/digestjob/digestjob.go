// Package digestjob implements the weekly digest sweep: for every eligible
// user, collect verified diffs from the lookback window and dispatch a
// summary email through the mailer collaborator.
package digestjob

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Rubayet19/price-tracker/internal/entitlements"
	"github.com/Rubayet19/price-tracker/internal/mailer"
	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/repository"
)

// Options tunes the sweep's lookback window and per-email cap.
type Options struct {
	LookbackDays     int
	MaxDiffsPerEmail int
	FromAddress      string
}

// UserResult is one user's outcome within a digest run.
type UserResult struct {
	UserID  string `json:"user_id"`
	Sent    bool   `json:"sent"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the aggregate outcome of one Job.Run call.
type Result struct {
	Considered int          `json:"considered"`
	Sent       int          `json:"sent"`
	Users      []UserResult `json:"users"`
}

// Job runs the weekly digest sweep over every local user.
type Job struct {
	repos   *repository.Repositories
	mailer  mailer.Mailer
	opts    Options
	logger  *slog.Logger
}

// New builds a Job.
func New(repos *repository.Repositories, m mailer.Mailer, opts Options, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 7
	}
	if opts.MaxDiffsPerEmail <= 0 {
		opts.MaxDiffsPerEmail = 30
	}
	return &Job{repos: repos, mailer: m, opts: opts, logger: logger}
}

// Run sweeps every user and sends the digest to anyone eligible who hasn't
// already received one within the lookback window.
func (j *Job) Run(ctx context.Context, now time.Time) (Result, error) {
	users, err := j.repos.User.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list users for digest sweep: %w", err)
	}

	lookback := now.Add(-time.Duration(j.opts.LookbackDays) * 24 * time.Hour)
	var result Result

	for _, u := range users {
		result.Considered++
		userResult := UserResult{UserID: u.UserID}

		switch {
		case u.Email == "":
			userResult.Skipped = "no_email"
		case !entitlements.Resolve(u, now).CanReceiveWeeklyDigest:
			userResult.Skipped = "not_eligible"
		case u.LastDigestSentAt != nil && u.LastDigestSentAt.After(lookback):
			userResult.Skipped = "recently_sent"
		}

		if userResult.Skipped != "" {
			result.Users = append(result.Users, userResult)
			continue
		}

		diffs, err := j.repos.Diff.GetByUserIDSince(ctx, u.UserID, lookback)
		if err != nil {
			userResult.Error = err.Error()
			result.Users = append(result.Users, userResult)
			continue
		}
		verified := filterVerified(diffs)
		if len(verified) == 0 {
			userResult.Skipped = "no_verified_diffs"
			result.Users = append(result.Users, userResult)
			continue
		}
		if len(verified) > j.opts.MaxDiffsPerEmail {
			verified = verified[:j.opts.MaxDiffsPerEmail]
		}

		msg := composeMessage(u, verified, j.opts.FromAddress, now)
		if err := j.mailer.Send(ctx, msg); err != nil {
			userResult.Error = err.Error()
			result.Users = append(result.Users, userResult)
			continue
		}

		if err := j.repos.User.SetLastDigestSentAt(ctx, u.UserID, now); err != nil {
			j.logger.Error("digest sent but failed to record lastDigestSentAt", "user_id", u.UserID, "error", err)
		}

		userResult.Sent = true
		result.Sent++
		result.Users = append(result.Users, userResult)
	}

	return result, nil
}

func filterVerified(diffs []*models.Diff) []*models.Diff {
	var out []*models.Diff
	for _, d := range diffs {
		if d.VerificationState == models.VerificationVerified {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out
}

func composeMessage(u *models.User, diffs []*models.Diff, from string, now time.Time) mailer.Message {
	counts := map[models.Severity]int{}
	for _, d := range diffs {
		counts[d.Severity]++
	}

	subject := fmt.Sprintf("Your weekly pricing digest: %d change(s) detected", len(diffs))

	var lines []string
	lines = append(lines, fmt.Sprintf("%d high, %d medium, %d low severity change(s) this week.",
		counts[models.SeverityHigh], counts[models.SeverityMedium], counts[models.SeverityLow]))
	for _, d := range diffs {
		lines = append(lines, fmt.Sprintf("- [%s] company %s: %d bucket(s) changed on %s",
			strings.ToUpper(string(d.Severity)), d.CompanyID, len(d.NormalizedDiff.Buckets), d.DetectedAt.Format(time.RFC3339)))
	}
	text := strings.Join(lines, "\n")

	var htmlLines []string
	htmlLines = append(htmlLines, "<p>"+lines[0]+"</p><ul>")
	for _, line := range lines[1:] {
		htmlLines = append(htmlLines, "<li>"+strings.TrimPrefix(line, "- ")+"</li>")
	}
	htmlLines = append(htmlLines, "</ul>")
	html := strings.Join(htmlLines, "")

	return mailer.Message{
		From:    from,
		To:      u.Email,
		Subject: subject,
		Text:    text,
		HTML:    html,
	}
}
