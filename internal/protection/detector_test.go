package protection

import (
	"net/http"
	"strings"
	"testing"
)

func TestDetectFromResponse_StatusCodes(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		status int
		signal Signal
	}{
		{http.StatusForbidden, SignalAccessDenied},
		{http.StatusServiceUnavailable, SignalChallenge},
		{http.StatusTooManyRequests, SignalRateLimited},
	}
	for _, tt := range tests {
		result := d.DetectFromResponse(tt.status, nil, []byte("irrelevant body that is long enough to pass length checks, padded out"))
		if !result.Blocked || result.Signal != tt.signal {
			t.Errorf("status %d: got %+v, want blocked with signal %s", tt.status, result, tt.signal)
		}
	}
}

func TestDetectFromResponse_CloudflareChallengeBody(t *testing.T) {
	d := NewDetector()
	body := []byte("<html><body>Checking your browser before accessing example.com.</body></html>")

	result := d.DetectFromResponse(http.StatusOK, nil, body)
	if !result.Blocked || result.Signal != SignalChallenge {
		t.Errorf("got %+v, want a blocked challenge signal", result)
	}
}

func TestDetectFromResponse_CaptchaWidget(t *testing.T) {
	d := NewDetector()
	body := []byte(`<html><body><div class="g-recaptcha" data-sitekey="abc"></div></body></html>`)

	result := d.DetectFromResponse(http.StatusOK, nil, body)
	if !result.Blocked || result.Signal != SignalCaptcha {
		t.Errorf("got %+v, want a blocked captcha signal", result)
	}
}

func TestDetectFromResponse_EmptySPARoot(t *testing.T) {
	d := NewDetector()
	body := []byte(`<html><body><div id="root"></div><script src="bundle.js"></script></body></html>`)

	result := d.DetectFromResponse(http.StatusOK, nil, body)
	if !result.Blocked || result.Signal != SignalJSRequired {
		t.Errorf("got %+v, want a blocked js_required signal for empty SPA root", result)
	}
}

func TestDetectFromResponse_NormalPageNotBlocked(t *testing.T) {
	d := NewDetector()
	body := []byte("<html><body><main><h1>Pricing</h1><p>" + strings.Repeat("Our Pro plan is $29 per month and includes everything you need to get started quickly. ", 10) + "</p></main></body></html>")

	result := d.DetectFromResponse(http.StatusOK, nil, body)
	if result.Blocked {
		t.Errorf("got %+v, want an ordinary pricing page to pass through unblocked", result)
	}
}
