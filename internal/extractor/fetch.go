package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
	"github.com/Rubayet19/price-tracker/internal/protection"
	"github.com/Rubayet19/price-tracker/internal/urlnorm"
)

// userAgent identifies the crawler to operators inspecting their access
// logs, with a URL they can visit to learn what it is and opt out.
const userAgent = "PriceWatchBot/1.0 (+https://pricewatch.example/bot)"

// botBlockPhrases is checked independently of the broader
// protection.Detector heuristics so a page that only trips this exact
// literal dictionary still classifies as blocked.
var botBlockPhrases = []string{
	"captcha", "cloudflare", "access denied", "attention required",
	"verify you are human", "bot detection", "temporarily blocked",
}

// Outcome is the result of one fetch-and-extract attempt.
type Outcome struct {
	Status        models.CrawlStatus // ok | blocked | manual_needed | error
	Error         string
	ContentHash   string
	Payload       models.PricingPayload
	Confidence    float64
	IsVerified    bool
	CaptureMethod models.CaptureMethod
	RawHTML       string
}

// FetchOptions carries the crawl tunables read from the process environment.
type FetchOptions struct {
	Timeout        time.Duration
	MaxHTMLLength  int
	HTTPClient     *http.Client
}

// FetchAndExtract performs the full pipeline for one pricing URL: normalize,
// GET with a bounded timeout, classify transport/HTTP failures, run the
// bot-block dictionary, then hand off to Extract for payload construction.
func FetchAndExtract(ctx context.Context, rawURL string, opts FetchOptions) Outcome {
	normalized := urlnorm.Normalize(rawURL)
	if normalized == "" || !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		return Outcome{Status: models.CrawlStatusManualNeeded, Error: "invalid pricing url", CaptureMethod: models.CaptureMethodStatic}
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxLen := opts.MaxHTMLLength
	if maxLen <= 0 {
		maxLen = 1_000_000
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, normalized, nil)
	if err != nil {
		return Outcome{Status: models.CrawlStatusManualNeeded, Error: err.Error(), CaptureMethod: models.CaptureMethodStatic}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Status: models.CrawlStatusError, Error: "Request timed out", CaptureMethod: models.CaptureMethodStatic}
		}
		return Outcome{Status: models.CrawlStatusError, Error: err.Error(), CaptureMethod: models.CaptureMethodStatic}
	}
	defer resp.Body.Close()

	if status, errMsg := classifyStatus(resp.StatusCode); status != "" {
		return Outcome{Status: status, Error: errMsg, CaptureMethod: models.CaptureMethodStatic}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "text/html") {
		return Outcome{Status: models.CrawlStatusManualNeeded, Error: fmt.Sprintf("unsupported content-type %q", contentType), CaptureMethod: models.CaptureMethodStatic}
	}

	limited := io.LimitReader(resp.Body, int64(maxLen)+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return Outcome{Status: models.CrawlStatusError, Error: err.Error(), CaptureMethod: models.CaptureMethodStatic}
	}
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	html := string(body)
	lowerText := strings.ToLower(urlnorm.StripHTMLToText(html))
	for _, phrase := range botBlockPhrases {
		if strings.Contains(lowerText, phrase) {
			return Outcome{Status: models.CrawlStatusBlocked, Error: "bot-protection challenge detected", CaptureMethod: models.CaptureMethodStatic}
		}
	}
	if det := protection.NewDetector().DetectFromResponse(resp.StatusCode, resp.Header, body); det.Blocked {
		return Outcome{Status: models.CrawlStatusBlocked, Error: det.Description, CaptureMethod: models.CaptureMethodStatic}
	}

	result, err := Extract(html, normalized)
	if err != nil {
		return Outcome{Status: models.CrawlStatusError, Error: err.Error(), CaptureMethod: models.CaptureMethodStatic}
	}
	if result.NoSignal {
		return Outcome{Status: models.CrawlStatusManualNeeded, Error: "no pricing signal found", CaptureMethod: models.CaptureMethodStatic}
	}

	canonical := Canonicalize(result.Payload)
	contentHash := urlnorm.ContentHash(html)
	isVerified := result.Confidence >= 0.75 && len(canonical.PriceMentions) > 0

	return Outcome{
		Status:        models.CrawlStatusOK,
		ContentHash:   contentHash,
		Payload:       canonical,
		Confidence:    result.Confidence,
		IsVerified:    isVerified,
		CaptureMethod: models.CaptureMethodStatic,
		RawHTML:       html,
	}
}

// classifyStatus applies the HTTP status taxonomy that separates
// bot-protection responses from ordinary client/server errors. An empty
// status means "not yet classified, keep reading the body".
func classifyStatus(code int) (models.CrawlStatus, string) {
	switch {
	case code == 401 || code == 403 || code == 429:
		return models.CrawlStatusBlocked, fmt.Sprintf("HTTP %d", code)
	case code >= 400 && code < 500:
		return models.CrawlStatusManualNeeded, fmt.Sprintf("HTTP %d", code)
	case code >= 500:
		return models.CrawlStatusError, fmt.Sprintf("HTTP %d", code)
	default:
		return "", ""
	}
}
