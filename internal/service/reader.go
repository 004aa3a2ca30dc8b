// Package service orchestrates the extraction and simplification pipelines:
// cache-first lookups, fallback to the expensive work on a miss, and
// write-through of fresh results. Handlers stay thin; all fallback ordering
// lives here.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/metrics"
	"github.com/jonesrussell/reader/internal/news"
	"github.com/jonesrussell/reader/internal/store"
)

// Cache names used in metrics.
const (
	cacheExtraction = "extraction"
	cacheSimplify   = "simplification"
	cacheNews       = "news"
)

// Fetcher retrieves raw HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor turns raw HTML into cleaned content.
type Extractor interface {
	Extract(rawHTML, pageURL string) (*domain.ExtractedContent, error)
}

// Simplifier produces leveled rewrites, in batch or streaming form.
type Simplifier interface {
	Simplify(ctx context.Context, modelHTML string, level domain.Level) (string, int64, error)
	SimplifyStream(ctx context.Context, modelHTML string, level domain.Level, fn func(delta string) error) (string, int64, error)
}

// Reader is the gateway service behind the HTTP API.
type Reader struct {
	fetcher    Fetcher
	extractor  Extractor
	simplifier Simplifier
	provider   news.Provider

	extractions     store.ExtractionStore
	simplifications store.SimplificationStore
	listings        store.NewsStore

	metrics *metrics.Metrics
	log     logger.Logger
}

// New creates the gateway service. All collaborators are injected; there is
// no ambient global state.
func New(
	fetcher Fetcher,
	extractor Extractor,
	simplifier Simplifier,
	provider news.Provider,
	extractions store.ExtractionStore,
	simplifications store.SimplificationStore,
	listings store.NewsStore,
	m *metrics.Metrics,
	log logger.Logger,
) *Reader {
	return &Reader{
		fetcher:         fetcher,
		extractor:       extractor,
		simplifier:      simplifier,
		provider:        provider,
		extractions:     extractions,
		simplifications: simplifications,
		listings:        listings,
		metrics:         m,
		log:             log,
	}
}

// Extract serves extracted content for a URL: cache first, then
// fetch-and-parse on a miss with a write-through. A failed cache write is
// logged but does not fail the request; the computed result is returned
// regardless.
func (r *Reader) Extract(ctx context.Context, url string) (*domain.ExtractedContent, error) {
	cached, err := r.extractions.Latest(ctx, url)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		r.metrics.CacheHit(cacheExtraction)
		r.log.Debug("Extraction cache hit", logger.String("url", url))
		return cached, nil
	}
	r.metrics.CacheMiss(cacheExtraction)

	rawHTML, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	content, err := r.extractor.Extract(rawHTML, url)
	if err != nil {
		return nil, err
	}
	content.CreatedAt = time.Now()

	if err := r.extractions.Insert(ctx, content); err != nil {
		r.log.Error("Extraction cache write failed",
			logger.String("url", url),
			logger.Error(err),
		)
	}

	r.log.Info("Extracted content",
		logger.String("url", url),
		logger.String("title", content.Title),
		logger.Int("images", len(content.Images)),
	)

	return content, nil
}

// Simplify serves a leveled rewrite: simplification cache, then extraction
// cache, then the model. A URL that was never extracted is a not-found
// error; by contract the client calls extract first. (Auto-extracting here
// would be the obvious fix, but the observed behavior is preserved for
// client compatibility.)
func (r *Reader) Simplify(ctx context.Context, url string, level domain.Level) (*domain.SimplifiedContent, error) {
	cached, extracted, err := r.simplifyLookup(ctx, url, level)
	if err != nil || cached != nil {
		return cached, err
	}

	html, tokens, err := r.simplifier.Simplify(ctx, extracted.ModelHTML, level)
	if err != nil {
		return nil, err
	}

	return r.finishSimplification(ctx, extracted, level, html, tokens), nil
}

// SimplifyStream is the streaming variant of Simplify. On a cache hit the
// stored HTML is delivered to fn as a single chunk. On a miss, deltas are
// forwarded as the model produces them; the model call and the cache write
// run on a detached context so a client disconnect mid-stream does not
// abandon the work the cache can benefit from.
func (r *Reader) SimplifyStream(
	ctx context.Context,
	url string,
	level domain.Level,
	fn func(delta string) error,
) (*domain.SimplifiedContent, error) {
	cached, extracted, err := r.simplifyLookup(ctx, url, level)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		if fnErr := fn(cached.SimplifiedHTML); fnErr != nil {
			return nil, fnErr
		}
		return cached, nil
	}

	detached := context.WithoutCancel(ctx)
	html, tokens, err := r.simplifier.SimplifyStream(detached, extracted.ModelHTML, level, fn)
	if err != nil {
		return nil, err
	}

	return r.finishSimplification(detached, extracted, level, html, tokens), nil
}

// simplifyLookup runs the shared front half of the simplify flow: level
// check, simplification cache, then the extraction prerequisite.
func (r *Reader) simplifyLookup(
	ctx context.Context,
	url string,
	level domain.Level,
) (*domain.SimplifiedContent, *domain.ExtractedContent, error) {
	if !level.Valid() {
		return nil, nil, errors.Newf(errors.KindValidation, "unsupported level %q", level)
	}

	cached, err := r.simplifications.Latest(ctx, url, level)
	if err != nil {
		return nil, nil, err
	}
	if cached != nil {
		r.metrics.CacheHit(cacheSimplify)
		r.log.Debug("Simplification cache hit",
			logger.String("url", url),
			logger.String("level", string(level)),
		)
		return cached, nil, nil
	}
	r.metrics.CacheMiss(cacheSimplify)

	extracted, err := r.extractions.Latest(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if extracted == nil {
		return nil, nil, errors.New(errors.KindNotFound, "source not extracted yet").
			WithDetail("call extract for this url first")
	}

	return nil, extracted, nil
}

// finishSimplification assembles the record, writes it through to the cache
// (logged-not-fatal on failure) and accounts the token spend.
func (r *Reader) finishSimplification(
	ctx context.Context,
	extracted *domain.ExtractedContent,
	level domain.Level,
	html string,
	tokens int64,
) *domain.SimplifiedContent {
	content := &domain.SimplifiedContent{
		SourceURL:      extracted.SourceURL,
		Level:          level,
		SimplifiedHTML: html,
		Title:          extracted.Title,
		Byline:         extracted.Byline,
		SiteName:       extracted.SiteName,
		LeadImage:      extracted.LeadImage,
		Images:         extracted.Images,
		TokensUsed:     tokens,
		CreatedAt:      time.Now(),
	}

	r.metrics.AddTokens(tokens)

	if err := r.simplifications.Insert(ctx, content); err != nil {
		r.log.Error("Simplification cache write failed",
			logger.String("url", content.SourceURL),
			logger.String("level", string(level)),
			logger.Error(err),
		)
	}

	return content
}

// News serves the cached news listing for a region, calling the upstream
// provider on a miss.
func (r *Reader) News(ctx context.Context, country, language string) (*domain.NewsListing, error) {
	cached, err := r.listings.Latest(ctx, country, language)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		r.metrics.CacheHit(cacheNews)
		return cached, nil
	}
	r.metrics.CacheMiss(cacheNews)

	articles, nextPage, err := r.provider.Latest(ctx, country, language)
	if err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []json.RawMessage{}
	}

	listing := &domain.NewsListing{
		Country:   country,
		Language:  language,
		Articles:  articles,
		NextPage:  nextPage,
		CreatedAt: time.Now(),
	}

	if err := r.listings.Insert(ctx, listing); err != nil {
		r.log.Error("News cache write failed",
			logger.String("country", country),
			logger.String("language", language),
			logger.Error(err),
		)
	}

	return listing, nil
}
