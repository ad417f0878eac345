package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// SpacesConfig configures an S3-compatible bucket (DigitalOcean Spaces).
type SpacesConfig struct {
	// Endpoint is the regional endpoint, e.g. "https://nyc3.digitaloceanspaces.com".
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// PathStyle addresses the bucket as a path segment instead of a subdomain.
	PathStyle bool
	// PublicBaseURL overrides the URL prefix returned for uploads.
	PublicBaseURL  string
	RequestTimeout time.Duration
	MaxAttempts    int
	Logger         *slog.Logger
	HTTPClient     *http.Client
}

// Spaces uploads objects with public-read ACLs using SigV4-signed PUTs.
type Spaces struct {
	cfg        SpacesConfig
	endpoint   *url.URL
	publicBase string
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewSpaces creates a Spaces uploader.
func NewSpaces(cfg SpacesConfig) (*Spaces, error) {
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	if strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretAccessKey) == "" {
		return nil, errors.New("storage: access key and secret are required")
	}

	raw := strings.TrimSpace(cfg.Endpoint)
	if raw == "" {
		return nil, errors.New("storage: endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	endpoint, err := url.Parse(raw)
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("storage: invalid endpoint %q", cfg.Endpoint)
	}

	if cfg.Region == "" {
		cfg.Region = regionFromHost(endpoint.Hostname())
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("%s://%s.%s", endpoint.Scheme, cfg.Bucket, endpoint.Host)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Spaces{
		cfg:        cfg,
		endpoint:   endpoint,
		publicBase: publicBase,
		client:     client,
		logger:     logger.With("component", "storage"),
		now:        time.Now,
		sleep:      sleep,
	}, nil
}

// regionFromHost takes the first label of "nyc3.digitaloceanspaces.com".
func regionFromHost(host string) string {
	if first, _, ok := strings.Cut(host, "."); ok && first != "" {
		return first
	}
	return "us-east-1"
}

// Upload implements Uploader. Transient failures are retried with backoff.
func (s *Spaces) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := objectKey(s.now(), name)

	var lastErr error
	for attempt := 0; !IsExhausted(attempt, s.cfg.MaxAttempts); attempt++ {
		if attempt > 0 {
			delay := NextRetryDelay(attempt - 1)
			s.logger.WarnContext(ctx, "retrying upload",
				slog.String("key", key),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			if err := s.sleep(ctx, delay); err != nil {
				return "", fmt.Errorf("upload object %s: %w", key, err)
			}
		}

		retry, err := s.put(ctx, key, contentType, data)
		if err == nil {
			return s.publicBase + "/" + key, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return "", lastErr
}

// put performs one signed PUT and reports whether a failure is retryable.
func (s *Spaces) put(ctx context.Context, key, contentType string, data []byte) (bool, error) {
	target := s.objectURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("create upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("x-amz-acl", "public-read")

	signRequest(req, hashSHA256Hex(data), credentials{
		accessKey: s.cfg.AccessKeyID,
		secretKey: s.cfg.SecretAccessKey,
		region:    s.cfg.Region,
	}, s.now())

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("upload object %s: %w", key, err)
		}
		return true, fmt.Errorf("upload object %s: %w", key, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return isRetryableStatus(resp.StatusCode), fmt.Errorf("upload object %s: unexpected status %d", key, resp.StatusCode)
	}
	return false, nil
}

func (s *Spaces) objectURL(key string) *url.URL {
	u := *s.endpoint
	if s.cfg.PathStyle {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + s.cfg.Bucket + "/" + key
		return &u
	}
	u.Host = s.cfg.Bucket + "." + u.Host
	u.Path = "/" + key
	return &u
}
