// Package fetcher retrieves raw article HTML with browser-like headers,
// retrying transient failures and detecting bot-block interstitials.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/httpclient"
	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/retry"
)

// Browser-like request headers. Many news sites refuse requests that do not
// look like a desktop browser.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.google.com/",
}

// blockSignatures are body markers of anti-bot interstitials. A page carrying
// one of these parsed fine at the HTTP level but holds no article.
var blockSignatures = []string{
	"access denied",
	"access to this page has been denied",
	"captcha-delivery.com",
	"cf-browser-verification",
	"checking your browser before accessing",
	"enable javascript and cookies to continue",
	"request unsuccessful. incapsula",
	"are you a robot",
}

// maxBodySize caps how much of a response body is read (some sites stream
// unbounded content on error pages).
const maxBodySize = 10 << 20

// Fetcher retrieves raw HTML for article URLs.
type Fetcher struct {
	client  *http.Client
	retries int
	delay   time.Duration
	log     logger.Logger
}

// Config holds fetcher settings.
type Config struct {
	// Timeout is the per-attempt timeout.
	Timeout time.Duration
	// Retries is the number of additional attempts after the first.
	Retries int
	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration
}

// New creates a Fetcher. Zero config values fall back to the contract
// defaults: 30s timeout, 2 retries, 2s delay.
func New(cfg Config, log logger.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Fetcher{
		client:  httpclient.New(&httpclient.Config{Timeout: cfg.Timeout}),
		retries: cfg.Retries,
		delay:   cfg.RetryDelay,
		log:     log,
	}
}

// Fetch retrieves the raw HTML for a URL. Network-level failures are retried
// with a fixed delay; the final attempt's error is surfaced if all fail.
// Bodies carrying a known bot-block signature produce a blocked error rather
// than being handed to the parser as article HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string

	attempt := 0
	err := retry.Retry(ctx, retry.FixedConfig(f.retries+1, f.delay), func() error {
		attempt++
		html, attemptErr := f.fetchOnce(ctx, url)
		if attemptErr != nil {
			f.log.Warn("Fetch attempt failed",
				logger.String("url", url),
				logger.Int("attempt", attempt),
				logger.Error(attemptErr),
			)
			return attemptErr
		}
		body = html
		return nil
	})
	if err != nil {
		return "", errors.Wrap(errors.KindUpstream, "fetch failed", err)
	}

	if sig := findBlockSignature(body); sig != "" {
		f.log.Warn("Fetch target blocked the request",
			logger.String("url", url),
			logger.String("signature", sig),
		)
		return "", errors.Newf(errors.KindBlocked, "target blocked the request (%s)", sig)
	}

	return body, nil
}

// fetchOnce performs a single GET attempt.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Statuses in [200,400) are accepted; some sites answer article GETs
	// with soft redirects.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(data), nil
}

// findBlockSignature returns the first bot-block marker present in the body,
// or the empty string.
func findBlockSignature(body string) string {
	lowered := strings.ToLower(body)
	for _, sig := range blockSignatures {
		if strings.Contains(lowered, sig) {
			return sig
		}
	}
	return ""
}
