package models

import "time"

// CompanyType distinguishes a user's own tracked pricing page from a
// competitor's.
type CompanyType string

const (
	CompanyTypeSelf       CompanyType = "self"
	CompanyTypeCompetitor CompanyType = "competitor"
)

// CrawlStatus is the closed sum of crawl outcomes a Company can observe.
type CrawlStatus string

const (
	CrawlStatusIdle         CrawlStatus = "idle"
	CrawlStatusOK           CrawlStatus = "ok"
	CrawlStatusBlocked      CrawlStatus = "blocked"
	CrawlStatusManualNeeded CrawlStatus = "manual_needed"
	CrawlStatusError        CrawlStatus = "error"
)

// PricingURLCandidate is one URL discovery proposed as a pricing page for a
// Company, with the confidence discovery assigned to it.
type PricingURLCandidate struct {
	URL            string  `json:"url"`
	Confidence     float64 `json:"confidence"`
	SelectedByUser bool    `json:"selected_by_user"`
}

// Company is a crawl target: either the user's own site (type=self) or a
// tracked competitor (type=competitor).
type Company struct {
	ID       string
	UserID   string
	Type     CompanyType
	Name     string
	Domain   string

	HomepageURL       *string
	PrimaryPricingURL *string

	// PricingURLCandidates is ordered by (confidence desc, url asc) with
	// unique URLs.
	PricingURLCandidates []PricingURLCandidate

	NextCrawlAt     *time.Time
	CrawlLeaseUntil *time.Time

	LastCrawlAt     *time.Time
	LastCrawlStatus CrawlStatus
	LastCrawlError  *string

	LatestContentHash *string
	LatestConfidence  *float64

	// RawCaptureKey points at the most recently archived raw HTML body in
	// object storage, when archiving is enabled.
	RawCaptureKey *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
