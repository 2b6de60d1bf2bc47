// Package archive optionally stores the raw HTML body behind each
// Snapshot in S3-compatible object storage (Tigris, MinIO, or AWS S3
// itself), for audit and replay. It is additive: the crawl/diff/insight
// pipeline never depends on it being enabled.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Service archives raw captured HTML bodies.
type Service struct {
	client  *s3.Client
	bucket  string
	enabled bool
	logger  *slog.Logger
}

// Options configures a Service.
type Options struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// New builds a Service. When opts.Enabled is false, every method is a
// no-op so callers never need to branch on whether archiving is on.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Enabled {
		logger.Info("raw capture archive disabled")
		return &Service{enabled: false, logger: logger}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	logger.Info("raw capture archive enabled", "bucket", opts.Bucket, "endpoint", opts.Endpoint)

	return &Service{client: client, bucket: opts.Bucket, enabled: true, logger: logger}, nil
}

// IsEnabled reports whether archiving is configured.
func (s *Service) IsEnabled() bool {
	return s != nil && s.enabled
}

// StoreRawCapture uploads the raw HTML body for a snapshot and returns
// the object key to persist on the Snapshot/Company, or "" if archiving
// is disabled.
func (s *Service) StoreRawCapture(ctx context.Context, companyID, snapshotID string, rawHTML []byte) (string, error) {
	if !s.IsEnabled() {
		return "", nil
	}

	key := fmt.Sprintf("raw-captures/%s/%s.html", companyID, snapshotID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(rawHTML),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store raw capture: %w", err)
	}

	s.logger.Info("stored raw capture", "company_id", companyID, "snapshot_id", snapshotID, "key", key, "size_bytes", len(rawHTML))
	return key, nil
}

// GetRawCapture retrieves a previously archived raw HTML body by key.
func (s *Service) GetRawCapture(ctx context.Context, key string) ([]byte, error) {
	if !s.IsEnabled() {
		return nil, fmt.Errorf("archive is not enabled")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get raw capture %s: %w", key, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("failed to read raw capture %s: %w", key, err)
	}
	return buf.Bytes(), nil
}
