// Package config handles application configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Cron auth
	CronSecret string

	// Batch scheduling
	CrawlBatchLimit       int
	MaxCrawlBatchLimit    int
	CrawlLeaseMS          time.Duration
	CrawlSuccessDelayMS   time.Duration
	CrawlErrorBackoffMS   time.Duration
	CrawlBlockedBackoffMS time.Duration
	CrawlManualBackoffMS  time.Duration
	CrawlFetchTimeoutMS   time.Duration
	CrawlMaxHTMLLength    int

	// Invocation lock TTLs
	CronCrawlLockTTL  time.Duration
	CronDigestLockTTL time.Duration

	// Discovery thresholds
	DiscoveryPrimaryMinConfidence float64
	DiscoveryPrimaryMinGap        float64

	// Digest
	DigestLookbackDays     int
	DigestMaxDiffsPerEmail int

	// Auth boundary standing in for the external session/auth layer
	JWTSecret string
	JWTIssuer string

	// Payment provider boundary (external collaborator)
	StripeSecretKey      string
	StripeWebhookSecret  string

	// Interactive rate limiting
	InteractiveRateLimitPerMinute int

	// CORS
	CORSOrigins []string

	// Object storage for raw capture archival, off by default.
	StorageEnabled   bool
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string

	// Encryption key material for at-rest secrets (derived via HKDF).
	EncryptionKeySeed string

	// Email digest dispatch (external collaborator)
	DigestFromAddress string
	MailerAPIKey      string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:pricewatch.db?_journal=WAL&_timeout=5000"),

		CronSecret: getEnv("CRON_SECRET", ""),

		CrawlBatchLimit:       getEnvInt("CRAWL_BATCH_LIMIT", 3),
		MaxCrawlBatchLimit:    getEnvInt("MAX_CRAWL_BATCH_LIMIT", 20),
		CrawlLeaseMS:          getEnvDuration("CRAWL_LEASE_MS", 360_000*time.Millisecond),
		CrawlSuccessDelayMS:   getEnvDuration("CRAWL_SUCCESS_DELAY_MS", 86_400_000*time.Millisecond),
		CrawlErrorBackoffMS:   getEnvDuration("CRAWL_ERROR_BACKOFF_MS", 21_600_000*time.Millisecond),
		CrawlBlockedBackoffMS: getEnvDuration("CRAWL_BLOCKED_BACKOFF_MS", 129_600_000*time.Millisecond),
		CrawlManualBackoffMS:  getEnvDuration("CRAWL_MANUAL_BACKOFF_MS", 172_800_000*time.Millisecond),
		CrawlFetchTimeoutMS:   getEnvDuration("CRAWL_FETCH_TIMEOUT_MS", 15_000*time.Millisecond),
		CrawlMaxHTMLLength:    getEnvInt("CRAWL_MAX_HTML_LENGTH", 1_000_000),

		CronCrawlLockTTL:  getEnvDuration("CRON_CRAWL_LOCK_TTL_MS", 8*time.Minute),
		CronDigestLockTTL: getEnvDuration("CRON_DIGEST_LOCK_TTL_MS", 45*time.Minute),

		DiscoveryPrimaryMinConfidence: getEnvFloat("DISCOVERY_PRIMARY_MIN_CONFIDENCE", 0.86),
		DiscoveryPrimaryMinGap:        getEnvFloat("DISCOVERY_PRIMARY_MIN_GAP", 0.08),

		DigestLookbackDays:     getEnvInt("DIGEST_LOOKBACK_DAYS", 7),
		DigestMaxDiffsPerEmail: getEnvInt("DIGEST_MAX_DIFFS", 30),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "pricewatch-auth"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		InteractiveRateLimitPerMinute: getEnvInt("INTERACTIVE_RATE_LIMIT_PER_MINUTE", 30),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		StorageEnabled:   getEnvBool("STORAGE_ENABLED", false),
		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", ""),
		StorageRegion:    getEnv("STORAGE_REGION", "auto"),

		EncryptionKeySeed: getEnv("ENCRYPTION_KEY", ""),

		DigestFromAddress: getEnv("DIGEST_FROM_ADDRESS", "alerts@pricewatch.example"),
		MailerAPIKey:      getEnv("RESEND_API_KEY", ""),
	}

	if cfg.CrawlBatchLimit <= 0 {
		cfg.CrawlBatchLimit = 3
	}
	if cfg.MaxCrawlBatchLimit <= 0 {
		cfg.MaxCrawlBatchLimit = 20
	}

	return cfg, nil
}

// ClampBatchLimit applies the standard boundary rule: a missing or
// non-positive requested limit falls back to the configured default;
// anything above MaxCrawlBatchLimit is clamped down to it.
func (c *Config) ClampBatchLimit(requested int) int {
	if requested <= 0 {
		return c.CrawlBatchLimit
	}
	if requested > c.MaxCrawlBatchLimit {
		return c.MaxCrawlBatchLimit
	}
	return requested
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
