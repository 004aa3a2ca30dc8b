package store

import (
	"context"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/logger"
)

// NewsMapping is the index mapping for cached news listings. Article records
// come from the upstream provider and are stored opaquely.
const NewsMapping = `{
  "mappings": {
    "properties": {
      "country":   {"type": "keyword"},
      "language":  {"type": "keyword"},
      "articles":  {"type": "object", "enabled": false},
      "nextPage":  {"type": "keyword", "index": false},
      "createdAt": {"type": "date"}
    }
  }
}`

// ESNewsStore is the Elasticsearch-backed news listing cache.
type ESNewsStore struct {
	esStore
	index  string
	window time.Duration
}

// NewNewsStore creates a news cache over the given index with the given
// staleness window.
func NewNewsStore(client *es.Client, index string, window time.Duration, log logger.Logger) *ESNewsStore {
	return &ESNewsStore{
		esStore: esStore{client: client, log: log},
		index:   index,
		window:  window,
	}
}

// Latest returns the freshest non-stale listing for the (country, language)
// pair, or (nil, nil) on a miss.
func (s *ESNewsStore) Latest(ctx context.Context, country, language string) (*domain.NewsListing, error) {
	var listing domain.NewsListing
	found, err := s.latest(ctx, s.index,
		[]map[string]any{term("country", country), term("language", language)},
		s.window, &listing)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &listing, nil
}

// Insert appends a new listing. CreatedAt is stamped here if unset.
func (s *ESNewsStore) Insert(ctx context.Context, listing *domain.NewsListing) error {
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now()
	}
	return s.insert(ctx, s.index, listing)
}
