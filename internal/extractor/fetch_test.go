package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rubayet19/price-tracker/internal/models"
)

func TestFetchAndExtract_OKPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Pricing</title></head><body>
			<h1>Pricing</h1>
			<h2>Starter</h2><p>$19 / month</p>
			<h2>Pro</h2><p>$49 per month</p>
			<h2>Enterprise</h2><p>Contact sales for custom pricing.</p>
		</body></html>`))
	}))
	defer srv.Close()

	out := FetchAndExtract(context.Background(), srv.URL, FetchOptions{Timeout: 5 * time.Second})
	if out.Status != models.CrawlStatusOK {
		t.Fatalf("Status = %v, error=%q", out.Status, out.Error)
	}
	if out.ContentHash == "" {
		t.Error("expected a non-empty content hash")
	}
	if len(out.Payload.PriceMentions) == 0 {
		t.Error("expected price mentions to be extracted")
	}
}

func TestFetchAndExtract_BlockedOn403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	out := FetchAndExtract(context.Background(), srv.URL, FetchOptions{})
	if out.Status != models.CrawlStatusBlocked {
		t.Errorf("Status = %v, want blocked", out.Status)
	}
}

func TestFetchAndExtract_ManualNeededOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	out := FetchAndExtract(context.Background(), srv.URL, FetchOptions{})
	if out.Status != models.CrawlStatusManualNeeded {
		t.Errorf("Status = %v, want manual_needed", out.Status)
	}
}

func TestFetchAndExtract_ErrorOn500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := FetchAndExtract(context.Background(), srv.URL, FetchOptions{})
	if out.Status != models.CrawlStatusError {
		t.Errorf("Status = %v, want error", out.Status)
	}
}

func TestFetchAndExtract_ManualNeededOnNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	out := FetchAndExtract(context.Background(), srv.URL, FetchOptions{})
	if out.Status != models.CrawlStatusManualNeeded {
		t.Errorf("Status = %v, want manual_needed", out.Status)
	}
}

func TestFetchAndExtract_BlockedOnBotDictionary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>Attention Required! | Cloudflare</body></html>`))
	}))
	defer srv.Close()

	out := FetchAndExtract(context.Background(), srv.URL, FetchOptions{})
	if out.Status != models.CrawlStatusBlocked {
		t.Errorf("Status = %v, want blocked", out.Status)
	}
}

func TestFetchAndExtract_ManualNeededOnNoSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Welcome</h1><p>We build great software.</p></body></html>`))
	}))
	defer srv.Close()

	out := FetchAndExtract(context.Background(), srv.URL, FetchOptions{})
	if out.Status != models.CrawlStatusManualNeeded {
		t.Errorf("Status = %v, want manual_needed", out.Status)
	}
}

func TestFetchAndExtract_InvalidURL(t *testing.T) {
	out := FetchAndExtract(context.Background(), "not a url", FetchOptions{})
	if out.Status != models.CrawlStatusManualNeeded {
		t.Errorf("Status = %v, want manual_needed", out.Status)
	}
}
