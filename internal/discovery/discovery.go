// Package discovery scores a company's homepage links to propose pricing
// page candidates. A single-page colly collector fetches the homepage,
// scores every anchor found, and hands back a ranked candidate list
// without following any further links: this is link scoring, not a
// crawl.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/urlnorm"
)

// defaultFetchTimeout and defaultMaxHTMLLength match the extractor's own
// defaults, so a homepage fetch for discovery is bounded the same way a
// pricing-page fetch is.
const (
	defaultFetchTimeout  = 15 * time.Second
	defaultMaxHTMLLength = 1_000_000
)

// limitedBodyTransport truncates every response body to maxBytes, the same
// truncation the pricing-page fetcher applies, so a homepage that streams
// an unbounded body can't stall or blow up memory during discovery.
type limitedBodyTransport struct {
	base     http.RoundTripper
	maxBytes int64
}

func (t *limitedBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}
	resp.Body = io.NopCloser(io.LimitReader(resp.Body, t.maxBytes))
	return resp, nil
}

// pathKeywords are scored by how strongly they indicate a pricing page,
// matched case-insensitively against the URL path.
var pathKeywords = []struct {
	pattern *regexp.Regexp
	weight  float64
}{
	{regexp.MustCompile(`(?i)/pricing\b`), 0.55},
	{regexp.MustCompile(`(?i)/plans\b`), 0.45},
	{regexp.MustCompile(`(?i)/price[s]?\b`), 0.4},
	{regexp.MustCompile(`(?i)/subscri(be|ption)`), 0.3},
	{regexp.MustCompile(`(?i)/buy\b`), 0.2},
	{regexp.MustCompile(`(?i)/upgrade\b`), 0.2},
}

// anchorTextKeywords score matches against the anchor's visible text.
var anchorTextKeywords = []struct {
	text   string
	weight float64
}{
	{"pricing", 0.3},
	{"plans", 0.25},
	{"plans & pricing", 0.3},
	{"free trial", 0.15},
	{"buy now", 0.1},
	{"get started", 0.08},
	{"upgrade", 0.1},
	{"subscribe", 0.1},
}

// negativePathPatterns and negativeTextPhrases veto a candidate outright:
// a blog post or login page never becomes a pricing candidate no matter
// what else matches.
var negativePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/blog\b`),
	regexp.MustCompile(`(?i)/docs?\b`),
	regexp.MustCompile(`(?i)/legal\b`),
	regexp.MustCompile(`(?i)/login\b`),
	regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|css|js|pdf|zip)$`),
}

var negativeTextPhrases = []string{"blog", "docs", "login"}

// disallowedSchemes are dropped before scoring.
var disallowedSchemes = []string{"mailto:", "tel:", "javascript:", "#"}

// bothHitBonus rewards a candidate whose path AND anchor text each carried
// positive signal, since that combination is rarely a false positive.
const bothHitBonus = 0.1

// Discoverer finds and scores pricing-page candidates from a homepage.
type Discoverer struct {
	fetchTimeout  time.Duration
	maxHTMLLength int
	logger        *slog.Logger
}

// NewDiscoverer creates a Discoverer. A non-positive fetchTimeout or
// maxHTMLLength falls back to the extractor's own defaults.
func NewDiscoverer(fetchTimeout time.Duration, maxHTMLLength int, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if maxHTMLLength <= 0 {
		maxHTMLLength = defaultMaxHTMLLength
	}
	return &Discoverer{fetchTimeout: fetchTimeout, maxHTMLLength: maxHTMLLength, logger: logger}
}

// Discover fetches homepageURL and returns scored pricing-page candidates,
// ordered by descending confidence then ascending URL: unique, deterministic
// ordering.
func (d *Discoverer) Discover(ctx context.Context, homepageURL string) ([]models.PricingURLCandidate, error) {
	parsedHome, err := url.Parse(homepageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid homepage url: %w", err)
	}
	allowedDomain := parsedHome.Host

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.AllowedDomains(allowedDomain, strings.TrimPrefix(allowedDomain, "www.")),
	)
	c.SetRequestTimeout(d.fetchTimeout)
	c.WithTransport(&limitedBodyTransport{base: http.DefaultTransport, maxBytes: int64(d.maxHTMLLength)})

	seen := make(map[string]float64)
	order := make(map[string]int)
	var fetchErr error

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		href := e.Attr("href")
		if href == "" || hasDisallowedScheme(href) {
			return
		}
		absoluteURL := e.Request.AbsoluteURL(href)
		if absoluteURL == "" {
			return
		}
		if !urlnorm.MatchesDomain(absoluteURL, allowedDomain) {
			return
		}

		score := scoreCandidate(absoluteURL, strings.TrimSpace(e.Text))
		if score <= 0 {
			return
		}

		normalized := urlnorm.Normalize(absoluteURL)
		if existing, ok := seen[normalized]; !ok || score > existing {
			if !ok {
				order[normalized] = len(order)
			}
			seen[normalized] = score
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("failed to fetch homepage %s: %w", homepageURL, err)
	})

	if err := c.Visit(homepageURL); err != nil {
		return nil, fmt.Errorf("failed to visit homepage: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}

	candidates := make([]models.PricingURLCandidate, 0, len(seen))
	for u, score := range seen {
		candidates = append(candidates, models.PricingURLCandidate{URL: u, Confidence: clampConfidence(score)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].URL < candidates[j].URL
	})

	d.logger.Debug("pricing url discovery complete", "homepage", homepageURL, "candidates", len(candidates))
	return candidates, nil
}

// scoreCandidate combines path and anchor-text signals into a 0-1 score. A
// link with no matching signal, or that trips a negative pattern, scores 0
// and is dropped.
func scoreCandidate(candidateURL, anchorText string) float64 {
	for _, p := range negativePathPatterns {
		if p.MatchString(candidateURL) {
			return 0
		}
	}
	lowerText := strings.ToLower(anchorText)
	for _, phrase := range negativeTextPhrases {
		if strings.Contains(lowerText, phrase) {
			return 0
		}
	}

	var pathHit, textHit bool
	var score float64

	for _, k := range pathKeywords {
		if k.pattern.MatchString(candidateURL) {
			score += k.weight
			pathHit = true
			break // strongest path match only; they're mutually exclusive in practice
		}
	}

	for _, k := range anchorTextKeywords {
		if strings.Contains(lowerText, k.text) {
			score += k.weight
			textHit = true
		}
	}

	if pathHit && textHit {
		score += bothHitBonus
	}

	return score
}

func hasDisallowedScheme(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, s := range disallowedSchemes {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// MergeCandidates unions candidate lists by normalized URL, keeping the
// maximum confidence seen for each and OR-reducing SelectedByUser. The
// result is re-sorted by (confidence desc, url asc), so
// MergeCandidates(A, B) == MergeCandidates(B, A).
func MergeCandidates(lists ...[]models.PricingURLCandidate) []models.PricingURLCandidate {
	byURL := make(map[string]models.PricingURLCandidate)
	order := make([]string, 0)

	for _, list := range lists {
		for _, c := range list {
			key := urlnorm.Normalize(c.URL)
			existing, ok := byURL[key]
			if !ok {
				order = append(order, key)
				byURL[key] = models.PricingURLCandidate{
					URL:            key,
					Confidence:     c.Confidence,
					SelectedByUser: c.SelectedByUser,
				}
				continue
			}
			if c.Confidence > existing.Confidence {
				existing.Confidence = c.Confidence
			}
			existing.SelectedByUser = existing.SelectedByUser || c.SelectedByUser
			byURL[key] = existing
		}
	}

	merged := make([]models.PricingURLCandidate, 0, len(order))
	for _, key := range order {
		merged = append(merged, byURL[key])
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].URL < merged[j].URL
	})
	return merged
}

func clampConfidence(score float64) float64 {
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// RecommendPrimary applies the promotion rule: the top candidate becomes
// the recommended primary pricing URL only if its confidence clears
// minConfidence and it leads the runner-up by at least minGap.
func RecommendPrimary(candidates []models.PricingURLCandidate, minConfidence, minGap float64) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	top := candidates[0]
	if top.Confidence < minConfidence {
		return "", false
	}
	if len(candidates) > 1 {
		runnerUp := candidates[1]
		if top.Confidence-runnerUp.Confidence < minGap {
			return "", false
		}
	}
	return top.URL, true
}
