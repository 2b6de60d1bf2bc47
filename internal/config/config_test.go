package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CrawlBatchLimit != 3 {
		t.Errorf("CrawlBatchLimit = %d, want 3", cfg.CrawlBatchLimit)
	}
	if cfg.MaxCrawlBatchLimit != 20 {
		t.Errorf("MaxCrawlBatchLimit = %d, want 20", cfg.MaxCrawlBatchLimit)
	}
	if cfg.CrawlLeaseMS.Milliseconds() != 360_000 {
		t.Errorf("CrawlLeaseMS = %v, want 360000ms", cfg.CrawlLeaseMS)
	}
}

func TestClampBatchLimit(t *testing.T) {
	cfg := &Config{CrawlBatchLimit: 3, MaxCrawlBatchLimit: 20}

	tests := []struct {
		requested int
		want      int
	}{
		{0, 3},
		{-5, 3},
		{5, 5},
		{20, 20},
		{21, 20},
		{1000, 20},
	}
	for _, tt := range tests {
		if got := cfg.ClampBatchLimit(tt.requested); got != tt.want {
			t.Errorf("ClampBatchLimit(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
}
