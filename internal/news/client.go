// Package news wraps the upstream news-listing provider. Article records
// are passed through opaquely; the service only caches and serves them.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/httpclient"
	"github.com/jonesrussell/reader/internal/logger"
)

// Provider fetches region-specific news listings.
type Provider interface {
	Latest(ctx context.Context, country, language string) ([]json.RawMessage, string, error)
}

// Client calls a newsdata.io-style latest-news endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     logger.Logger
}

// NewClient creates a news provider client.
func NewClient(baseURL, apiKey string, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  httpclient.New(&httpclient.Config{Timeout: 15 * time.Second}),
		log:     log,
	}
}

// latestResponse mirrors the provider's envelope. Results stay raw so
// provider-defined article fields survive untouched.
type latestResponse struct {
	Status   string            `json:"status"`
	Results  []json.RawMessage `json:"results"`
	NextPage string            `json:"nextPage"`
}

// Latest fetches the current news listing for a country and language pair.
func (c *Client) Latest(ctx context.Context, country, language string) ([]json.RawMessage, string, error) {
	endpoint := fmt.Sprintf("%s/latest?%s", c.baseURL, url.Values{
		"apikey":   {c.apiKey},
		"country":  {country},
		"language": {language},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, "", errors.Wrap(errors.KindUpstream, "build news request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(errors.KindUpstream, "news provider unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Newf(errors.KindUpstream, "news provider returned status %d", resp.StatusCode)
	}

	var parsed latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, "", errors.Wrap(errors.KindUpstream, "decode news response", err)
	}

	if parsed.Status != "" && parsed.Status != "success" {
		return nil, "", errors.Newf(errors.KindUpstream, "news provider reported status %q", parsed.Status)
	}

	c.log.Debug("Fetched news listing",
		logger.String("country", country),
		logger.String("language", language),
		logger.Int("articles", len(parsed.Results)),
	)

	return parsed.Results, parsed.NextPage, nil
}
