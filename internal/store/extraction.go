package store

import (
	"context"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/logger"
)

// ExtractionMapping is the index mapping for extracted content. The HTML and
// text payloads are stored but not indexed; lookups only filter on the
// source URL and timestamp.
const ExtractionMapping = `{
  "mappings": {
    "properties": {
      "sourceUrl":    {"type": "keyword"},
      "title":        {"type": "text"},
      "byline":       {"type": "keyword"},
      "siteName":     {"type": "keyword"},
      "displayHtml":  {"type": "text", "index": false},
      "modelHtml":    {"type": "text", "index": false},
      "plainText":    {"type": "text", "index": false},
      "leadImageUrl": {"type": "keyword", "index": false},
      "images":       {"type": "keyword", "index": false},
      "createdAt":    {"type": "date"}
    }
  }
}`

// ESExtractionStore is the Elasticsearch-backed extraction cache.
type ESExtractionStore struct {
	esStore
	index  string
	window time.Duration
}

// NewExtractionStore creates an extraction cache over the given index with
// the given staleness window.
func NewExtractionStore(client *es.Client, index string, window time.Duration, log logger.Logger) *ESExtractionStore {
	return &ESExtractionStore{
		esStore: esStore{client: client, log: log},
		index:   index,
		window:  window,
	}
}

// Latest returns the freshest non-stale record for the URL, or (nil, nil)
// on a miss.
func (s *ESExtractionStore) Latest(ctx context.Context, url string) (*domain.ExtractedContent, error) {
	var content domain.ExtractedContent
	found, err := s.latest(ctx, s.index,
		[]map[string]any{term("sourceUrl", url)},
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
func (s *ESExtractionStore) Insert(ctx context.Context, content *domain.ExtractedContent) error {
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now()
	}
	return s.insert(ctx, s.index, content)
}
