// Package elasticsearch constructs the Elasticsearch client backing the
// content caches and verifies connectivity at startup.
package elasticsearch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/retry"
)

// Config holds Elasticsearch connection configuration.
type Config struct {
	URL         string
	Username    string
	Password    string
	MaxRetries  int
	PingTimeout time.Duration
}

// NewClient creates an Elasticsearch client and verifies the connection,
// retrying with backoff if the cluster is still coming up.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	url := normalizeURL(cfg.URL)

	clientConfig := es.Config{
		Addresses:  []string{url},
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	esClient, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	log.Info("Verifying Elasticsearch connection", logger.String("url", url))

	if err := retry.RetryWithDefaults(ctx, func() error {
		return ping(ctx, esClient, cfg.PingTimeout)
	}); err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}

	log.Info("Elasticsearch connection established", logger.String("url", url))

	return esClient, nil
}

// normalizeURL adds an http:// prefix if the scheme is missing.
func normalizeURL(url string) string {
	if url == "" {
		return "http://localhost:9200"
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

// ping verifies the connection with an optional timeout.
func ping(ctx context.Context, client *es.Client, timeout time.Duration) error {
	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), string(body))
	}

	return nil
}
