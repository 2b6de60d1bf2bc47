package extractor

import (
	"sort"
	"strings"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// Canonicalize puts a PricingPayload into the deterministic, deduplicated
// form diffengine relies on for positional bucket pairing. Canonicalize is
// idempotent: Canonicalize(Canonicalize(p)) == Canonicalize(p).
func Canonicalize(p models.PricingPayload) models.PricingPayload {
	out := models.PricingPayload{
		SourceURL:       p.SourceURL,
		PageTitle:       strings.TrimSpace(p.PageTitle),
		PageDescription: strings.TrimSpace(p.PageDescription),
	}

	out.PlanNames = canonicalizeStrings(p.PlanNames)
	out.CustomPricingHints = canonicalizeStrings(p.CustomPricingHints)
	out.PriceMentions = canonicalizeMentions(p.PriceMentions)

	return out
}

// canonicalizeStrings trims, lowercases, drops empties, de-duplicates, and
// sorts for a deterministic order.
func canonicalizeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// canonicalizeMentions de-duplicates exact (amount, currency, period)
// triples and sorts by (currency, period, amount) so two extractions of the
// same page produce byte-identical payloads.
func canonicalizeMentions(in []models.PriceMention) []models.PriceMention {
	type key struct {
		amount   float64
		currency string
		period   models.PricingPeriod
	}
	seen := make(map[key]bool, len(in))
	var out []models.PriceMention

	for _, m := range in {
		currency := strings.ToUpper(strings.TrimSpace(m.Currency))
		if currency == "" {
			continue
		}
		k := key{amount: m.Amount, currency: currency, period: m.Period}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, models.PriceMention{Amount: m.Amount, Currency: currency, Period: m.Period})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency < out[j].Currency
		}
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].Amount < out[j].Amount
	})

	return out
}
