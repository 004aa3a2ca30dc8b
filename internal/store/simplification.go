package store

import (
	"context"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/logger"
)

// SimplificationMapping is the index mapping for simplified content.
const SimplificationMapping = `{
  "mappings": {
    "properties": {
      "sourceUrl":      {"type": "keyword"},
      "level":          {"type": "keyword"},
      "simplifiedHtml": {"type": "text", "index": false},
      "title":          {"type": "text"},
      "byline":         {"type": "keyword"},
      "siteName":       {"type": "keyword"},
      "leadImageUrl":   {"type": "keyword", "index": false},
      "images":         {"type": "keyword", "index": false},
      "tokensUsed":     {"type": "long"},
      "createdAt":      {"type": "date"}
    }
  }
}`

// ESSimplificationStore is the Elasticsearch-backed simplification cache.
type ESSimplificationStore struct {
	esStore
	index  string
	window time.Duration
}

// NewSimplificationStore creates a simplification cache over the given index
// with the given staleness window.
func NewSimplificationStore(client *es.Client, index string, window time.Duration, log logger.Logger) *ESSimplificationStore {
	return &ESSimplificationStore{
		esStore: esStore{client: client, log: log},
		index:   index,
		window:  window,
	}
}

// Latest returns the freshest non-stale record for the (url, level) pair,
// or (nil, nil) on a miss.
func (s *ESSimplificationStore) Latest(ctx context.Context, url string, level domain.Level) (*domain.SimplifiedContent, error) {
	var content domain.SimplifiedContent
	found, err := s.latest(ctx, s.index,
		[]map[string]any{term("sourceUrl", url), term("level", string(level))},
		s.window, &content)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &content, nil
}

// Insert appends a new record. CreatedAt is stamped here if unset.
func (s *ESSimplificationStore) Insert(ctx context.Context, content *domain.SimplifiedContent) error {
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now()
	}
	return s.insert(ctx, s.index, content)
}
