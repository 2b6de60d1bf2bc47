// Package diffengine computes a bucketed, severity-rated delta between two
// canonicalized pricing payloads. Buckets are keyed by (currency, period);
// within a bucket, amounts are paired positionally after sorting so small
// index-preserving restructurings of a pricing table don't look like a
// full replacement.
package diffengine

import (
	"sort"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

// Thresholds controls how much an amount must move before it counts as a
// real update rather than rounding noise, and how the worst bucket
// movement rolls up into an overall severity.
type Thresholds struct {
	// MinAbsDelta and MinPctDeltaForUpdate must both be cleared for a
	// paired amount to be recorded as an UpdatedAmount at all.
	MinAbsDelta         float64
	MinPctDeltaForUpdate float64
	// MinPctDeltaForMedium / MinPctDeltaForHigh are the percentage-change
	// cutoffs against the diff's single worst bucket movement.
	MinPctDeltaForMedium float64
	MinPctDeltaForHigh   float64
}

// DefaultThresholds is the low-noise gate: changes under $0.50 or under 1%
// movement are not reported at all.
var DefaultThresholds = Thresholds{
	MinAbsDelta:          0.50,
	MinPctDeltaForUpdate: 1.0,
	MinPctDeltaForMedium: 10.0,
	MinPctDeltaForHigh:   20.0,
}

type bucketKey struct {
	currency string
	period   models.PricingPeriod
}

// Compute builds the NormalizedDiff between previous and current
// canonicalized payloads. Both must already be canonicalized
// (internal/extractor.Canonicalize) for bucket pairing to be meaningful.
func Compute(previous, current models.PricingPayload, thresholds Thresholds, now time.Time) models.NormalizedDiff {
	prevBuckets := bucketAmounts(previous.PriceMentions)
	currBuckets := bucketAmounts(current.PriceMentions)

	keys := make(map[bucketKey]bool)
	for k := range prevBuckets {
		keys[k] = true
	}
	for k := range currBuckets {
		keys[k] = true
	}

	var buckets []models.BucketChange
	for k := range keys {
		change := diffBucket(k, prevBuckets[k], currBuckets[k], thresholds)
		if !change.IsEmpty() {
			buckets = append(buckets, change)
		}
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Currency != buckets[j].Currency {
			return buckets[i].Currency < buckets[j].Currency
		}
		return buckets[i].Period < buckets[j].Period
	})

	return models.NormalizedDiff{
		Buckets:            buckets,
		AddedHints:         stringDiff(previous.CustomPricingHints, current.CustomPricingHints),
		RemovedHints:       stringDiff(current.CustomPricingHints, previous.CustomPricingHints),
		PreviousPriceCount: len(previous.PriceMentions),
		CurrentPriceCount:  len(current.PriceMentions),
		PreviousPlanCount:  len(previous.PlanNames),
		CurrentPlanCount:   len(current.PlanNames),
		ChangedAt:          now,
	}
}

func bucketAmounts(mentions []models.PriceMention) map[bucketKey][]float64 {
	out := make(map[bucketKey][]float64)
	for _, m := range mentions {
		k := bucketKey{currency: m.Currency, period: m.Period}
		out[k] = append(out[k], m.Amount)
	}
	for k := range out {
		sort.Float64s(out[k])
	}
	return out
}

// diffBucket pairs previous[i] with current[i] for the overlapping prefix;
// any excess on either side is a pure add or remove.
func diffBucket(k bucketKey, previous, current []float64, thresholds Thresholds) models.BucketChange {
	change := models.BucketChange{Currency: k.currency, Period: k.period}

	overlap := len(previous)
	if len(current) < overlap {
		overlap = len(current)
	}

	for i := 0; i < overlap; i++ {
		prev, curr := previous[i], current[i]
		absDelta := curr - prev
		if absDelta < 0 {
			absDelta = -absDelta
		}

		pctDelta := 100.0
		if prev != 0 {
			pctDelta = (curr - prev) / prev * 100.0
			if pctDelta < 0 {
				pctDelta = -pctDelta
			}
		}

		if absDelta < thresholds.MinAbsDelta || pctDelta < thresholds.MinPctDeltaForUpdate {
			continue
		}

		change.Updated = append(change.Updated, models.UpdatedAmount{
			Previous: prev,
			Current:  curr,
			AbsDelta: absDelta,
			PctDelta: pctDelta,
		})
	}

	if len(current) > overlap {
		change.Added = append(change.Added, current[overlap:]...)
	}
	if len(previous) > overlap {
		change.Removed = append(change.Removed, previous[overlap:]...)
	}

	return change
}

// stringDiff returns entries present in b but not in a, case-insensitively.
func stringDiff(a, b []string) []string {
	present := make(map[string]bool, len(a))
	for _, s := range a {
		present[toLowerTrim(s)] = true
	}
	var out []string
	for _, s := range b {
		if !present[toLowerTrim(s)] {
			out = append(out, s)
		}
	}
	return out
}

func toLowerTrim(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != ' ' {
			out = append(out, c)
		}
	}
	return string(out)
}

// Severity assigns an overall severity to a non-empty NormalizedDiff: the
// worst percentage movement across every updated amount, combined with
// the total count of added/removed/updated entries, decides the rating.
// Any custom-pricing-hint churn is never scored below medium.
func Severity(d models.NormalizedDiff, thresholds Thresholds) models.Severity {
	var maxPctDelta float64
	var added, removed, updated int

	for _, b := range d.Buckets {
		added += len(b.Added)
		removed += len(b.Removed)
		updated += len(b.Updated)
		for _, u := range b.Updated {
			if u.PctDelta > maxPctDelta {
				maxPctDelta = u.PctDelta
			}
		}
	}

	total := added + removed + updated
	hintChange := len(d.AddedHints) > 0 || len(d.RemovedHints) > 0

	switch {
	case maxPctDelta >= thresholds.MinPctDeltaForHigh || (added >= 2 && removed >= 2):
		return models.SeverityHigh
	case maxPctDelta >= thresholds.MinPctDeltaForMedium || total >= 2 || hintChange:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// rank gives severities a total order for "at least" comparisons.
func rank(s models.Severity) int {
	switch s {
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	default:
		return 1
	}
}
