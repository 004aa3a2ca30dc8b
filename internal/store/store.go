// Package store implements the append-only content caches on top of
// Elasticsearch. Records are never mutated: a cache write is always an
// insert, and a cache hit is the most recent record inside the staleness
// window. Concurrent writers may insert duplicate rows for the same key;
// reads resolve the race by always taking the freshest.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/logger"
)

// ExtractionStore caches extractor output keyed by source URL.
// Latest returns (nil, nil) on a miss.
type ExtractionStore interface {
	Latest(ctx context.Context, url string) (*domain.ExtractedContent, error)
	Insert(ctx context.Context, content *domain.ExtractedContent) error
}

// SimplificationStore caches model output keyed by (source URL, level).
// Latest returns (nil, nil) on a miss.
type SimplificationStore interface {
	Latest(ctx context.Context, url string, level domain.Level) (*domain.SimplifiedContent, error)
	Insert(ctx context.Context, content *domain.SimplifiedContent) error
}

// NewsStore caches upstream news listings keyed by (country, language).
// Latest returns (nil, nil) on a miss.
type NewsStore interface {
	Latest(ctx context.Context, country, language string) (*domain.NewsListing, error)
	Insert(ctx context.Context, listing *domain.NewsListing) error
}

// esStore holds the shared Elasticsearch plumbing for the three caches.
type esStore struct {
	client *es.Client
	log    logger.Logger
}

// insert writes a new document. Documents get auto-generated IDs so
// concurrent inserts for the same key can never collide.
func (s *esStore) insert(ctx context.Context, index string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.KindStore, "marshal document", err)
	}

	res, err := s.client.Index(index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.Wrap(errors.KindStore, "index document", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return errors.Newf(errors.KindStore, "index document [%s]: %s", res.Status(), string(detail))
	}

	return nil
}

// latest finds the newest document matching the key filters whose createdAt
// is strictly newer than now-window. The boundary is exclusive: a record
// exactly at the threshold is stale. Returns false when there is no hit.
func (s *esStore) latest(
	ctx context.Context,
	index string,
	keyFilters []map[string]any,
	window time.Duration,
	out any,
) (bool, error) {
	cutoff := time.Now().Add(-window)

	filters := make([]map[string]any, 0, len(keyFilters)+1)
	filters = append(filters, keyFilters...)
	filters = append(filters, map[string]any{
		"range": map[string]any{
			"createdAt": map[string]any{"gt": cutoff.Format(time.RFC3339Nano)},
		},
	})

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": filters},
		},
		"sort": []map[string]any{
			{"createdAt": map[string]any{"order": "desc"}},
		},
		"size": 1,
	}

	body, err := json.Marshal(query)
	if err != nil {
		return false, errors.Wrap(errors.KindStore, "marshal query", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, errors.Wrap(errors.KindStore, "search failed", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		// A missing index means the cache is simply empty.
		if res.StatusCode == 404 {
			return false, nil
		}
		detail, _ := io.ReadAll(res.Body)
		return false, errors.Newf(errors.KindStore, "search [%s]: %s", res.Status(), string(detail))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return false, errors.Wrap(errors.KindStore, "decode search response", err)
	}

	if len(parsed.Hits.Hits) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(parsed.Hits.Hits[0].Source, out); err != nil {
		return false, errors.Wrap(errors.KindStore, "decode document", err)
	}

	return true, nil
}

// term builds a term filter on a keyword field.
func term(field, value string) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

// EnsureIndices creates the cache indices with their mappings if they do not
// exist yet. Existing indices are left untouched.
func EnsureIndices(ctx context.Context, client *es.Client, log logger.Logger, indices map[string]string) error {
	for name, mapping := range indices {
		exists, err := indexExists(ctx, client, name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", name, err)
		}
		if exists {
			continue
		}

		res, err := client.Indices.Create(name,
			client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
			client.Indices.Create.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		if res.IsError() {
			detail, _ := io.ReadAll(res.Body)
			_ = res.Body.Close()
			return fmt.Errorf("create index %s [%s]: %s", name, res.Status(), string(detail))
		}
		_ = res.Body.Close()

		log.Info("Created index", logger.String("index", name))
	}
	return nil
}

// indexExists checks whether an index exists.
func indexExists(ctx context.Context, client *es.Client, name string) (bool, error) {
	res, err := client.Indices.Exists([]string{name},
		client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return res.StatusCode == 200, nil
}
