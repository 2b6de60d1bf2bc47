package extractor

import (
	"strings"
	"testing"

	"github.com/Rubayet19/price-tracker/internal/models"
)

const samplePricingHTML = `
<html>
<head>
  <title>Pricing - Acme</title>
  <meta name="description" content="Simple plans for every team.">
</head>
<body>
  <h1>Pricing</h1>
  <h2>Starter</h2>
  <p>$29 per month for small teams.</p>
  <h2>Pro</h2>
  <p>$99/mo with everything unlocked.</p>
  <h2>Enterprise</h2>
  <p>Contact sales for custom pricing.</p>
</body>
</html>
`

func TestExtract_FindsTitleAndDescription(t *testing.T) {
	result, err := Extract(samplePricingHTML, "https://acme.example.com/pricing")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Payload.PageTitle != "Pricing - Acme" {
		t.Errorf("PageTitle = %q, want %q", result.Payload.PageTitle, "Pricing - Acme")
	}
	if result.Payload.PageDescription != "Simple plans for every team." {
		t.Errorf("PageDescription = %q", result.Payload.PageDescription)
	}
}

func TestExtract_FindsPriceMentions(t *testing.T) {
	result, err := Extract(samplePricingHTML, "https://acme.example.com/pricing")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Payload.PriceMentions) < 2 {
		t.Fatalf("PriceMentions = %+v, want at least 2", result.Payload.PriceMentions)
	}
	found29 := false
	for _, m := range result.Payload.PriceMentions {
		if m.Amount == 29 && m.Currency == "USD" {
			found29 = true
		}
	}
	if !found29 {
		t.Errorf("expected a $29 USD mention in %+v", result.Payload.PriceMentions)
	}
}

func TestExtract_FindsCustomPricingHint(t *testing.T) {
	result, err := Extract(samplePricingHTML, "https://acme.example.com/pricing")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Payload.CustomPricingHints) == 0 {
		t.Error("expected a custom pricing hint for 'contact sales'")
	}
}

func TestExtract_ConfidenceReflectsSignalStrength(t *testing.T) {
	rich, err := Extract(samplePricingHTML, "https://acme.example.com/pricing")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	sparse, err := Extract("<html><body><p>Welcome to our blog.</p></body></html>", "https://acme.example.com/blog")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rich.Confidence <= sparse.Confidence {
		t.Errorf("rich confidence %v should exceed sparse confidence %v", rich.Confidence, sparse.Confidence)
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	payload := models.PricingPayload{
		SourceURL:          "https://acme.example.com/pricing",
		PlanNames:          []string{"Pro", "pro", "Starter", "Starter"},
		CustomPricingHints: []string{"Contact Sales", "contact sales"},
		PriceMentions: []models.PriceMention{
			{Amount: 29, Currency: "usd", Period: models.PeriodMonth},
			{Amount: 29, Currency: "USD", Period: models.PeriodMonth},
			{Amount: 99, Currency: "USD", Period: models.PeriodMonth},
		},
	}

	once := Canonicalize(payload)
	twice := Canonicalize(once)

	if len(once.PlanNames) != 2 {
		t.Errorf("once.PlanNames = %v, want 2 deduplicated entries", once.PlanNames)
	}
	for _, name := range once.PlanNames {
		if name != strings.ToLower(name) {
			t.Errorf("once.PlanNames = %v, want every entry lowercased", once.PlanNames)
		}
	}
	for _, hint := range once.CustomPricingHints {
		if hint != strings.ToLower(hint) {
			t.Errorf("once.CustomPricingHints = %v, want every entry lowercased", once.CustomPricingHints)
		}
	}
	if len(once.PriceMentions) != 2 {
		t.Errorf("once.PriceMentions = %v, want 2 deduplicated entries", once.PriceMentions)
	}
	if len(once.PlanNames) != len(twice.PlanNames) || once.PlanNames[0] != twice.PlanNames[0] {
		t.Errorf("Canonicalize not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestCanonicalize_SortsDeterministically(t *testing.T) {
	payload := models.PricingPayload{
		PriceMentions: []models.PriceMention{
			{Amount: 99, Currency: "USD", Period: models.PeriodMonth},
			{Amount: 29, Currency: "USD", Period: models.PeriodMonth},
			{Amount: 10, Currency: "EUR", Period: models.PeriodYear},
		},
	}
	got := Canonicalize(payload)
	if got.PriceMentions[0].Currency != "EUR" {
		t.Fatalf("expected EUR to sort first, got %+v", got.PriceMentions)
	}
	if got.PriceMentions[1].Amount != 29 || got.PriceMentions[2].Amount != 99 {
		t.Errorf("expected ascending amount within USD bucket, got %+v", got.PriceMentions)
	}
}
