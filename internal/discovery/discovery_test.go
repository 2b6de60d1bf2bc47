package discovery

import (
	"testing"

	"github.com/Rubayet19/price-tracker/internal/models"
)

func TestScoreCandidate(t *testing.T) {
	tests := []struct {
		name string
		url  string
		text string
		want bool // want score > 0
	}{
		{"pricing path", "https://acme.example.com/pricing", "Pricing", true},
		{"plans path with plans text", "https://acme.example.com/plans", "Plans & Pricing", true},
		{"unrelated link", "https://acme.example.com/about", "About us", false},
		{"get started anchor only", "https://acme.example.com/signup", "Get Started", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := scoreCandidate(tt.url, tt.text)
			if got := score > 0; got != tt.want {
				t.Errorf("scoreCandidate(%q, %q) = %v, want score>0 = %v", tt.url, tt.text, score, tt.want)
			}
		})
	}
}

func TestRecommendPrimary_ClearWinner(t *testing.T) {
	candidates := []models.PricingURLCandidate{
		{URL: "https://acme.example.com/pricing", Confidence: 0.9},
		{URL: "https://acme.example.com/plans", Confidence: 0.5},
	}
	url, ok := RecommendPrimary(candidates, 0.86, 0.08)
	if !ok || url != candidates[0].URL {
		t.Errorf("RecommendPrimary() = (%q, %v), want (%q, true)", url, ok, candidates[0].URL)
	}
}

func TestRecommendPrimary_BelowMinConfidence(t *testing.T) {
	candidates := []models.PricingURLCandidate{
		{URL: "https://acme.example.com/pricing", Confidence: 0.5},
	}
	_, ok := RecommendPrimary(candidates, 0.86, 0.08)
	if ok {
		t.Error("RecommendPrimary() = ok, want false: below min confidence")
	}
}

func TestRecommendPrimary_GapTooNarrow(t *testing.T) {
	candidates := []models.PricingURLCandidate{
		{URL: "https://acme.example.com/pricing", Confidence: 0.9},
		{URL: "https://acme.example.com/plans", Confidence: 0.88},
	}
	_, ok := RecommendPrimary(candidates, 0.86, 0.08)
	if ok {
		t.Error("RecommendPrimary() = ok, want false: top two are too close to call")
	}
}

func TestRecommendPrimary_NoCandidates(t *testing.T) {
	_, ok := RecommendPrimary(nil, 0.86, 0.08)
	if ok {
		t.Error("RecommendPrimary() = ok, want false for an empty candidate list")
	}
}

func TestScoreCandidate_NegativePathIsVetoed(t *testing.T) {
	score := scoreCandidate("https://acme.example.com/blog/pricing-explained", "Pricing")
	if score != 0 {
		t.Errorf("scoreCandidate() = %v, want 0 for a /blog path", score)
	}
}

func TestScoreCandidate_NegativeTextIsVetoed(t *testing.T) {
	score := scoreCandidate("https://acme.example.com/pricing", "Login")
	if score != 0 {
		t.Errorf("scoreCandidate() = %v, want 0 for login anchor text", score)
	}
}

func TestMergeCandidates_KeepsMaxConfidenceAndOrsSelected(t *testing.T) {
	a := []models.PricingURLCandidate{{URL: "https://acme.example.com/pricing", Confidence: 0.5}}
	b := []models.PricingURLCandidate{{URL: "https://acme.example.com/pricing", Confidence: 0.9, SelectedByUser: true}}

	merged := MergeCandidates(a, b)
	if len(merged) != 1 {
		t.Fatalf("got %d candidates, want 1", len(merged))
	}
	if merged[0].Confidence != 0.9 {
		t.Errorf("Confidence = %v, want max 0.9", merged[0].Confidence)
	}
	if !merged[0].SelectedByUser {
		t.Error("expected SelectedByUser to be OR-reduced to true")
	}
}

func TestMergeCandidates_Commutative(t *testing.T) {
	a := []models.PricingURLCandidate{{URL: "https://acme.example.com/pricing", Confidence: 0.5}}
	b := []models.PricingURLCandidate{{URL: "https://acme.example.com/plans", Confidence: 0.9}}

	ab := MergeCandidates(a, b)
	ba := MergeCandidates(b, a)
	if len(ab) != len(ba) || ab[0].URL != ba[0].URL || ab[1].URL != ba[1].URL {
		t.Errorf("MergeCandidates(A,B) = %+v, MergeCandidates(B,A) = %+v, want equal", ab, ba)
	}
}
