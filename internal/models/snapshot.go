package models

import "time"

// CaptureMethod is the closed sum of ways a Snapshot's pricing payload was
// produced. Only "static" is implemented by the core; the others are
// reserved tags for a future pluggable extractor backend.
type CaptureMethod string

const (
	CaptureMethodStatic    CaptureMethod = "static"
	CaptureMethodPlaywright CaptureMethod = "playwright"
	CaptureMethodLLM       CaptureMethod = "llm"
	CaptureMethodManual    CaptureMethod = "manual"
)

// PricingPeriod is the normalized billing cadence of a price mention.
type PricingPeriod string

const (
	PeriodDay     PricingPeriod = "day"
	PeriodWeek    PricingPeriod = "week"
	PeriodMonth   PricingPeriod = "month"
	PeriodYear    PricingPeriod = "year"
	PeriodOneTime PricingPeriod = "one_time"
	PeriodUnknown PricingPeriod = "unknown"
)

// PriceMention is one (currency, period, amount) observed on a pricing page.
type PriceMention struct {
	Amount   float64       `json:"amount"`
	Currency string        `json:"currency"`
	Period   PricingPeriod `json:"period"`
}

// PricingPayload is the canonical-by-construction content of a Snapshot.
// Canonicalize (internal/extractor) is what makes the ordering and
// de-duplication guarantees hold.
type PricingPayload struct {
	SourceURL          string         `json:"source_url"`
	PageTitle          string         `json:"page_title,omitempty"`
	PageDescription    string         `json:"page_description,omitempty"`
	PlanNames          []string       `json:"plan_names"`
	PriceMentions      []PriceMention `json:"price_mentions"`
	CustomPricingHints []string       `json:"custom_pricing_hints"`
}

// Snapshot is one immutable observation of a competitor's pricing page.
type Snapshot struct {
	ID            string
	UserID        string
	CompanyID     string
	CapturedAt    time.Time
	CaptureMethod CaptureMethod
	Confidence    float64
	ContentHash   string
	Payload       PricingPayload
	IsVerified    bool

	// RawCaptureKey points at the archived raw HTML body, when object
	// storage archiving is enabled. Nil otherwise.
	RawCaptureKey *string
}
