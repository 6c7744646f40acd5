package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// SiteDomainsLoaderConfig holds configuration for the S3-backed site
// domain table loader.
type SiteDomainsLoaderConfig struct {
	S3Client *s3.Client
	Bucket   string
	Key      string
	Logger   *slog.Logger
}

// SiteDomainsLoader fetches the site domain override document from
// object storage once at startup. The override is optional; a missing
// object means the built-in table stays in effect. The table is
// immutable after process start, so there is no refresh loop.
type SiteDomainsLoader struct {
	s3Client *s3.Client
	bucket   string
	key      string
	logger   *slog.Logger
}

// NewS3Client builds an S3 client for the configured storage endpoint.
// Returns nil when storage is not configured.
func NewS3Client(cfg *Config) *s3.Client {
	if !cfg.StorageEnabled {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.StorageRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey, cfg.StorageSecretKey, "",
		)),
	)
	if err != nil {
		return nil
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &cfg.StorageEndpoint
		o.UsePathStyle = true
	})
}

// NewSiteDomainsLoader creates a loader with the given config.
func NewSiteDomainsLoader(cfg SiteDomainsLoaderConfig) *SiteDomainsLoader {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &SiteDomainsLoader{
		s3Client: cfg.S3Client,
		bucket:   cfg.Bucket,
		key:      cfg.Key,
		logger:   cfg.Logger,
	}
}

// IsEnabled returns true if object storage is configured.
func (l *SiteDomainsLoader) IsEnabled() bool {
	return l.s3Client != nil
}

// Fetch retrieves the override document. Returns (data, nil) on success
// and (nil, nil) when storage is unconfigured or the object doesn't
// exist; only transport failures and malformed documents are errors.
func (l *SiteDomainsLoader) Fetch(ctx context.Context) ([]byte, error) {
	if l.s3Client == nil {
		return nil, nil
	}

	resp, err := l.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &l.bucket,
		Key:    &l.key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			l.logger.Debug("site domain override not found (using defaults)",
				"bucket", l.bucket,
				"key", l.key,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch site domain override: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read site domain override: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("site domain override is not valid JSON")
	}

	l.logger.Info("site domain override fetched",
		"bucket", l.bucket,
		"key", l.key,
		"size", len(data),
	)
	return data, nil
}
