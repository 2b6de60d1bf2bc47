package diffengine

import (
	"testing"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

func TestCompute_NoChangeProducesEmptyDiff(t *testing.T) {
	payload := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 29, Currency: "USD", Period: models.PeriodMonth}},
	}
	diff := Compute(payload, payload, DefaultThresholds, time.Now())
	if !diff.IsEmpty() {
		t.Errorf("expected empty diff for identical payloads, got %+v", diff)
	}
}

func TestCompute_PriceIncreaseIsUpdated(t *testing.T) {
	previous := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 29, Currency: "USD", Period: models.PeriodMonth}},
	}
	current := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 39, Currency: "USD", Period: models.PeriodMonth}},
	}

	diff := Compute(previous, current, DefaultThresholds, time.Now())
	if diff.IsEmpty() {
		t.Fatal("expected a non-empty diff for a $10 increase")
	}
	if len(diff.Buckets) != 1 || len(diff.Buckets[0].Updated) != 1 {
		t.Fatalf("got %+v, want one updated amount", diff.Buckets)
	}
	u := diff.Buckets[0].Updated[0]
	if u.Previous != 29 || u.Current != 39 || u.AbsDelta != 10 {
		t.Errorf("got %+v, want previous=29 current=39 absDelta=10", u)
	}
}

func TestCompute_BelowNoiseThresholdIsIgnored(t *testing.T) {
	previous := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 29.00, Currency: "USD", Period: models.PeriodMonth}},
	}
	current := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 29.10, Currency: "USD", Period: models.PeriodMonth}},
	}

	diff := Compute(previous, current, DefaultThresholds, time.Now())
	if !diff.IsEmpty() {
		t.Errorf("expected a $0.10 wobble to be filtered as noise, got %+v", diff)
	}
}

func TestCompute_NewPlanIsAdded(t *testing.T) {
	previous := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 29, Currency: "USD", Period: models.PeriodMonth}},
	}
	current := models.PricingPayload{
		PriceMentions: []models.PriceMention{
			{Amount: 29, Currency: "USD", Period: models.PeriodMonth},
			{Amount: 99, Currency: "USD", Period: models.PeriodMonth},
		},
	}

	diff := Compute(previous, current, DefaultThresholds, time.Now())
	if len(diff.Buckets) != 1 || len(diff.Buckets[0].Added) != 1 || diff.Buckets[0].Added[0] != 99 {
		t.Fatalf("got %+v, want 99 added", diff.Buckets)
	}
}

func TestCompute_RemovedPlanIsRemoved(t *testing.T) {
	previous := models.PricingPayload{
		PriceMentions: []models.PriceMention{
			{Amount: 29, Currency: "USD", Period: models.PeriodMonth},
			{Amount: 99, Currency: "USD", Period: models.PeriodMonth},
		},
	}
	current := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 29, Currency: "USD", Period: models.PeriodMonth}},
	}

	diff := Compute(previous, current, DefaultThresholds, time.Now())
	if len(diff.Buckets) != 1 || len(diff.Buckets[0].Removed) != 1 || diff.Buckets[0].Removed[0] != 99 {
		t.Fatalf("got %+v, want 99 removed", diff.Buckets)
	}
}

func TestCompute_ZeroPriorPctDeltaConvention(t *testing.T) {
	previous := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 0, Currency: "USD", Period: models.PeriodMonth}},
	}
	current := models.PricingPayload{
		PriceMentions: []models.PriceMention{{Amount: 10, Currency: "USD", Period: models.PeriodMonth}},
	}

	diff := Compute(previous, current, DefaultThresholds, time.Now())
	if len(diff.Buckets) != 1 || len(diff.Buckets[0].Updated) != 1 {
		t.Fatalf("got %+v, want one updated amount moving off a zero prior", diff.Buckets)
	}
	if diff.Buckets[0].Updated[0].PctDelta != 100.0 {
		t.Errorf("PctDelta = %v, want 100 by the zero-prior convention", diff.Buckets[0].Updated[0].PctDelta)
	}
}

func TestSeverity_SingleAddedPlanIsLow(t *testing.T) {
	diff := models.NormalizedDiff{
		Buckets: []models.BucketChange{{Currency: "USD", Period: models.PeriodMonth, Added: []float64{49}}},
	}
	if got := Severity(diff, DefaultThresholds); got != models.SeverityLow {
		t.Errorf("Severity() = %s, want low for a single added plan with no other movement", got)
	}
}

func TestSeverity_TwoAddedIsAtLeastMedium(t *testing.T) {
	diff := models.NormalizedDiff{
		Buckets: []models.BucketChange{{Currency: "USD", Period: models.PeriodMonth, Added: []float64{49, 99}}},
	}
	if got := Severity(diff, DefaultThresholds); got != models.SeverityMedium {
		t.Errorf("Severity() = %s, want medium for two added plans (total count >= 2)", got)
	}
}

func TestSeverity_TwoAddedAndTwoRemovedIsHigh(t *testing.T) {
	diff := models.NormalizedDiff{
		Buckets: []models.BucketChange{{
			Currency: "USD", Period: models.PeriodMonth,
			Added:   []float64{49, 99},
			Removed: []float64{19, 39},
		}},
	}
	if got := Severity(diff, DefaultThresholds); got != models.SeverityHigh {
		t.Errorf("Severity() = %s, want high for >=2 added and >=2 removed", got)
	}
}

func TestSeverity_SmallUpdateIsLow(t *testing.T) {
	diff := models.NormalizedDiff{
		Buckets: []models.BucketChange{{
			Currency: "USD", Period: models.PeriodMonth,
			Updated: []models.UpdatedAmount{{Previous: 100, Current: 102, AbsDelta: 2, PctDelta: 2}},
		}},
	}
	if got := Severity(diff, DefaultThresholds); got != models.SeverityLow {
		t.Errorf("Severity() = %s, want low for a 2%% move", got)
	}
}

func TestSeverity_LargeUpdateIsHigh(t *testing.T) {
	diff := models.NormalizedDiff{
		Buckets: []models.BucketChange{{
			Currency: "USD", Period: models.PeriodMonth,
			Updated: []models.UpdatedAmount{{Previous: 100, Current: 130, AbsDelta: 30, PctDelta: 30}},
		}},
	}
	if got := Severity(diff, DefaultThresholds); got != models.SeverityHigh {
		t.Errorf("Severity() = %s, want high for a 30%% move", got)
	}
}

func TestSeverity_CustomPricingHintChangeIsAtLeastMedium(t *testing.T) {
	diff := models.NormalizedDiff{AddedHints: []string{"contact sales"}}
	if got := Severity(diff, DefaultThresholds); rank(got) < rank(models.SeverityMedium) {
		t.Errorf("Severity() = %s, want at least medium for a new custom-pricing hint", got)
	}
}
