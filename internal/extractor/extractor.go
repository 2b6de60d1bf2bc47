// Package extractor turns a fetched HTML page into a canonical
// PricingPayload using a static goquery/regex pass — no headless browser,
// no LLM call. Confidence reflects how much structural signal backed the
// extraction, not semantic correctness.
package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Rubayet19/price-tracker/internal/models"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)

	// priceRe matches a currency symbol or ISO code adjacent to a decimal
	// amount, e.g. "$29", "29.99 USD", "€49/mo". Deliberately permissive:
	// false positives are filtered by requiring a recognized currency token.
	priceRe = regexp.MustCompile(`(?i)(\$|€|£|usd|eur|gbp)\s?(\d{1,6}(?:[.,]\d{1,2})?)|(\d{1,6}(?:[.,]\d{1,2})?)\s?(usd|eur|gbp|\$|€|£)`)

	periodRe = regexp.MustCompile(`(?i)/\s?(mo|month|monthly|yr|year|yearly|annual|annually|wk|week|day|one[\s-]?time)\b`)

	planHeadingSelector = "h1, h2, h3, h4, h5"
	customPricingPhrases = []string{
		"contact sales", "custom pricing", "talk to sales",
		"enterprise pricing", "request a quote", "book a demo",
	}
	// pricingSignalPhrases are the "this really is a pricing page" tokens,
	// distinct from the custom-pricing hints above.
	pricingSignalPhrases = []string{
		"pricing", "plans", "per month", "monthly", "yearly", "annual",
		"billed", "free trial",
	}
)

var currencySymbolToISO = map[string]string{
	"$": "USD", "€": "EUR", "£": "GBP",
}

// Result is one static extraction pass over a page.
type Result struct {
	Payload    models.PricingPayload
	Confidence float64
	// NoSignal is true when confidence resolved to 0; the caller routes
	// this case to manual_needed rather than storing a snapshot.
	NoSignal bool
}

// Extract parses html for pricing signal: page title/description, heading
// text as plan-name candidates, and currency-adjacent numeric amounts as
// price mentions. sourceURL is recorded verbatim on the payload.
func Extract(html, sourceURL string) (Result, error) {
	cleaned := scriptRe.ReplaceAllString(html, " ")
	cleaned = styleRe.ReplaceAllString(cleaned, " ")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse html: %w", err)
	}

	payload := models.PricingPayload{
		SourceURL: sourceURL,
	}
	payload.PageTitle = strings.TrimSpace(doc.Find("title").First().Text())
	payload.PageDescription, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	payload.PageDescription = strings.TrimSpace(payload.PageDescription)

	payload.PlanNames = extractPlanNames(doc)
	payload.PriceMentions = extractPriceMentions(doc)
	payload.CustomPricingHints = extractCustomPricingHints(doc)

	bodyText := strings.ToLower(doc.Find("body").Text())
	confidence := scoreConfidence(payload, bodyText)

	return Result{Payload: payload, Confidence: confidence, NoSignal: confidence == 0}, nil
}

// extractPlanNames treats short heading text as a candidate plan name: real
// plan names ("Starter", "Pro", "Enterprise") are short, while section
// titles like "Frequently Asked Questions" are not, so a length cap filters
// most noise without an allowlist.
func extractPlanNames(doc *goquery.Document) []string {
	var names []string
	doc.Find(planHeadingSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" || len(text) > 40 {
			return
		}
		if len(strings.Fields(text)) > 4 {
			return
		}
		names = append(names, text)
	})
	return names
}

func extractPriceMentions(doc *goquery.Document) []models.PriceMention {
	var mentions []models.PriceMention
	body := doc.Find("body").Text()

	matches := priceRe.FindAllStringSubmatchIndex(body, -1)
	for _, m := range matches {
		matchText := body[m[0]:m[1]]
		amount, currency := parsePriceMatch(matchText)
		if currency == "" {
			continue
		}

		// Look at the trailing ~20 chars for a billing-period cue.
		windowEnd := m[1] + 20
		if windowEnd > len(body) {
			windowEnd = len(body)
		}
		period := models.PeriodUnknown
		if loc := periodRe.FindStringSubmatchIndex(body[m[1]:windowEnd]); loc != nil {
			period = normalizePeriod(body[m[1]+loc[2] : m[1]+loc[3]])
		}

		mentions = append(mentions, models.PriceMention{
			Amount:   amount,
			Currency: currency,
			Period:   period,
		})
	}
	return mentions
}

func parsePriceMatch(text string) (float64, string) {
	groups := priceRe.FindStringSubmatch(text)
	if groups == nil {
		return 0, ""
	}

	var rawAmount, rawCurrency string
	if groups[2] != "" {
		rawCurrency, rawAmount = groups[1], groups[2]
	} else {
		rawAmount, rawCurrency = groups[3], groups[4]
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(rawAmount, ",", ""), 64)
	if err != nil {
		return 0, ""
	}

	currency := strings.ToUpper(rawCurrency)
	if iso, ok := currencySymbolToISO[rawCurrency]; ok {
		currency = iso
	}
	return amount, currency
}

func normalizePeriod(text string) models.PricingPeriod {
	switch strings.ToLower(text) {
	case "mo", "month", "monthly":
		return models.PeriodMonth
	case "yr", "year", "yearly", "annual", "annually":
		return models.PeriodYear
	case "wk", "week":
		return models.PeriodWeek
	case "day":
		return models.PeriodDay
	case "one-time", "one time", "onetime":
		return models.PeriodOneTime
	default:
		return models.PeriodUnknown
	}
}

func extractCustomPricingHints(doc *goquery.Document) []string {
	var hints []string
	lowerBody := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range customPricingPhrases {
		if strings.Contains(lowerBody, phrase) {
			hints = append(hints, phrase)
		}
	}
	return hints
}

// scoreConfidence applies a fixed ladder: the number of price mentions
// found dominates, with pricing/custom-pricing signal tokens breaking
// ties when mentions are thin or absent. A page with no signal at all
// scores 0, which the caller must treat as manual_needed.
func scoreConfidence(p models.PricingPayload, bodyText string) float64 {
	hasPricingSignal := containsAny(bodyText, pricingSignalPhrases)
	hasCustomSignal := containsAny(bodyText, customPricingPhrases)

	switch {
	case len(p.PriceMentions) >= 3:
		return 0.90
	case len(p.PriceMentions) >= 1:
		if hasPricingSignal {
			return 0.78
		}
		return 0.72
	case hasCustomSignal:
		return 0.45
	case hasPricingSignal:
		return 0.40
	default:
		return 0
	}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
