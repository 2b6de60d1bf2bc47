// Package urlnorm implements the URL and HTML canonicalization rules the
// crawl pipeline needs for deduplication and content-hash gating.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// duplicateSlashPattern collapses runs of "/" in a path down to one, so
// "https://example.com//pricing///plans" and its single-slash form hash
// and compare identically.
var duplicateSlashPattern = regexp.MustCompile(`/+`)

// Normalize canonicalizes rawURL to the form used for deduplication and
// comparison: it accepts a bare hostname (defaulting the scheme to
// https) or a full URL, requires the resulting scheme to be http or
// https, lowercases the host and strips a leading "www.", discards the
// query string and fragment entirely, collapses duplicate slashes in the
// path, and defaults an empty path to "/". Input that can't be turned
// into a valid http(s) URL returns "".
func Normalize(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}

	candidate := raw
	defaulted := false
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
		defaulted = true
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return ""
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}
	// A bare hostname carries no userinfo; "mailto:x@y" would otherwise
	// parse as https with user "mailto:x" once the scheme is defaulted.
	if defaulted && parsed.User != nil {
		return ""
	}

	parsed.Scheme = scheme
	parsed.Fragment = ""
	parsed.RawQuery = ""
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")

	path := duplicateSlashPattern.ReplaceAllString(parsed.Path, "/")
	if path == "" {
		path = "/"
	}
	parsed.Path = path

	return parsed.String()
}

// MatchesDomain reports whether candidateURL's host is domain itself or a
// subdomain of it, ignoring a leading "www." on either side.
func MatchesDomain(candidateURL, domain string) bool {
	parsed, err := url.Parse(candidateURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))

	return host == domain || strings.HasSuffix(host, "."+domain)
}

var (
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// StripHTMLToText removes all tags from html and collapses runs of
// whitespace into single spaces, producing the plain-text form used for
// price-mention scanning.
func StripHTMLToText(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeHTMLForHash produces the whitespace-collapsed, lowercased,
// tag-stripped text ContentHash is computed over: two pages that differ
// only in markup, casing, or incidental whitespace must hash identically.
func NormalizeHTMLForHash(html string) string {
	return strings.ToLower(StripHTMLToText(html))
}

// ContentHash returns the hex-encoded SHA-256 digest of html's normalized
// text form.
func ContentHash(html string) string {
	sum := sha256.Sum256([]byte(NormalizeHTMLForHash(html)))
	return hex.EncodeToString(sum[:])
}
