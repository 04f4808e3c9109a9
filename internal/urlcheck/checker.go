// Package urlcheck probes business redirect URLs for reachability. Results
// are advisory: an unreachable URL is reported to the owner but never blocks
// saving the profile.
package urlcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/raterly/raterly/pkg/errors"
	"github.com/raterly/raterly/pkg/httpclient"
)

// Checker validates and probes external review URLs. Probes run behind a
// circuit breaker so a slow or dead target cannot stall profile updates.
type Checker struct {
	client *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// New creates a URL checker with a short probe timeout.
func New(logger *slog.Logger) *Checker {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 1

	cbCfg := httpclient.DefaultCircuitBreakerConfig("urlcheck")

	return &Checker{
		client: httpclient.NewCircuitBreakerClient(httpclient.New(cfg), cbCfg, logger),
		logger: logger,
	}
}

// Validate checks the URL shape without touching the network.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("invalid url: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.InvalidInput("url must use http or https")
	}
	if u.Host == "" {
		return apperrors.InvalidInput("url must include a host")
	}
	return nil
}

// Check validates the URL and issues a HEAD probe. A non-nil error means the
// target looks unreachable right now.
func (c *Checker) Check(ctx context.Context, rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("probe %s: status %d", rawURL, resp.StatusCode)
	}

	return nil
}
