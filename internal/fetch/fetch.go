// Package fetch is the shared HTTP layer for the marketplace fetchers: one
// browser user agent, a request timeout, and enforced spacing between
// requests so scrape passes stay polite.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	jitter     time.Duration
}

func New(cfg config.FetchConfig) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SleepMin > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.SleepMin), 1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		limiter:    limiter,
		jitter:     cfg.SleepMax - cfg.SleepMin,
	}
}

// Get fetches url after waiting out the inter-request interval plus a
// random jitter. Only a 200 response yields a body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := c.holdJitter(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

func (c *Client) holdJitter(ctx context.Context) error {
	if c.jitter <= 0 {
		return nil
	}
	timer := time.NewTimer(rand.N(c.jitter))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
