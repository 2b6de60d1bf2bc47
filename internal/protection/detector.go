// Package protection detects bot-protection challenge pages so the crawl
// pipeline can classify a fetch as blocked rather than silently extracting
// garbage from a challenge page.
package protection

import (
	"net/http"
	"regexp"
	"strings"
)

// Signal identifies the kind of protection a response exhibited.
type Signal string

const (
	SignalNone         Signal = ""
	SignalChallenge    Signal = "challenge"     // Cloudflare/WAF interstitial
	SignalCaptcha      Signal = "captcha"       // explicit captcha widget
	SignalAccessDenied Signal = "access_denied" // 403 / "access denied" copy
	SignalRateLimited  Signal = "rate_limited"  // 429
	SignalJSRequired   Signal = "js_required"   // empty SPA shell, no static content

)

// Result is the outcome of scanning one fetched page.
type Result struct {
	Blocked     bool
	Signal      Signal
	Confidence  int // 0-100
	Description string
}

// Detector scans HTTP responses for bot-protection signals.
type Detector struct {
	MinContentLength int
}

// NewDetector creates a Detector with the default content-length floor.
func NewDetector() *Detector {
	return &Detector{MinContentLength: 500}
}

// DetectFromResponse classifies a fetched page. It is the single decision
// point the fetch pipeline relies on to route a fetch to CrawlStatusBlocked
// instead of attempting extraction against challenge-page HTML.
func (d *Detector) DetectFromResponse(statusCode int, headers http.Header, body []byte) Result {
	if result := d.checkStatusCode(statusCode); result.Blocked {
		return result
	}
	if result := d.checkHeaders(headers); result.Blocked {
		return result
	}
	return d.checkBodyContent(body)
}

func (d *Detector) checkStatusCode(statusCode int) Result {
	switch statusCode {
	case http.StatusForbidden:
		return Result{Blocked: true, Signal: SignalAccessDenied, Confidence: 90,
			Description: "HTTP 403: site is refusing automated requests"}
	case http.StatusServiceUnavailable:
		return Result{Blocked: true, Signal: SignalChallenge, Confidence: 70,
			Description: "HTTP 503: likely a challenge page"}
	case http.StatusTooManyRequests:
		return Result{Blocked: true, Signal: SignalRateLimited, Confidence: 95,
			Description: "HTTP 429: rate limited"}
	}
	return Result{}
}

func (d *Detector) checkHeaders(headers http.Header) Result {
	if headers == nil {
		return Result{}
	}
	if headers.Get("cf-ray") != "" && headers.Get("cf-mitigated") == "challenge" {
		return Result{Blocked: true, Signal: SignalChallenge, Confidence: 95,
			Description: "Cloudflare challenge header present"}
	}
	return Result{}
}

var (
	challengePatterns = []string{
		"cf-browser-verification", "challenge-platform", "cf_chl_opt", "_cf_chl",
		"checking your browser", "just a moment...", "attention required! | cloudflare",
	}
	captchaPatterns = []string{
		"g-recaptcha", "grecaptcha", "h-captcha", "hcaptcha", "data-sitekey",
		"cf-turnstile", "captcha-container",
	}
	accessDeniedPatterns = []string{
		"access denied", "access to this page has been denied", "request blocked",
		"bot detected", "automated access", "please verify you are human", "are you a robot",
	}
	jsRequiredPatterns = []string{
		"enable javascript", "javascript is required", "requires javascript",
		"please enable javascript",
	}

	contentIndicatorRegex = regexp.MustCompile(`<(article|main|section)[^>]*>`)
	spaRootPatterns       = []*regexp.Regexp{
		regexp.MustCompile(`<div\s+id=["'](?:root|app|__next|__nuxt)["'][^>]*>\s*</div>`),
		regexp.MustCompile(`<app-root[^>]*>\s*</app-root>`),
	}
	htmlTagRegex    = regexp.MustCompile(`<[^>]+>`)
	scriptRegex     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRegex      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

func (d *Detector) checkBodyContent(body []byte) Result {
	if len(body) == 0 {
		return Result{Blocked: true, Signal: SignalChallenge, Confidence: 80,
			Description: "empty response body"}
	}

	contentLower := strings.ToLower(string(body))

	for _, p := range challengePatterns {
		if strings.Contains(contentLower, p) {
			return Result{Blocked: true, Signal: SignalChallenge, Confidence: 90,
				Description: "challenge page content matched"}
		}
	}
	for _, p := range captchaPatterns {
		if strings.Contains(contentLower, p) {
			return Result{Blocked: true, Signal: SignalCaptcha, Confidence: 95,
				Description: "captcha widget detected"}
		}
	}
	for _, p := range accessDeniedPatterns {
		if strings.Contains(contentLower, p) {
			return Result{Blocked: true, Signal: SignalAccessDenied, Confidence: 85,
				Description: "access-denied copy detected"}
		}
	}

	if d.looksLikeEmptySPA(contentLower) {
		return Result{Blocked: true, Signal: SignalJSRequired, Confidence: 80,
			Description: "page requires JavaScript to render pricing content"}
	}

	for _, p := range jsRequiredPatterns {
		if strings.Contains(contentLower, p) {
			return Result{Blocked: true, Signal: SignalJSRequired, Confidence: 75,
				Description: "page explicitly asks for JavaScript"}
		}
	}

	return Result{}
}

// looksLikeEmptySPA checks for an empty framework root element or a very
// low visible-text-to-markup ratio, both signs the real content is
// rendered client-side and unreachable to a static fetch.
func (d *Detector) looksLikeEmptySPA(content string) bool {
	for _, pattern := range spaRootPatterns {
		if pattern.MatchString(content) {
			return true
		}
	}

	cleaned := scriptRegex.ReplaceAllString(content, "")
	cleaned = styleRegex.ReplaceAllString(cleaned, "")
	visibleText := whitespaceRegex.ReplaceAllString(htmlTagRegex.ReplaceAllString(cleaned, " "), " ")
	visibleText = strings.TrimSpace(visibleText)

	if len(content) > 1000 && float64(len(visibleText))/float64(len(content)) < 0.02 {
		return !contentIndicatorRegex.MatchString(content)
	}
	return false
}
