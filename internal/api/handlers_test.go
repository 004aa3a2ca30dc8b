package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/reader/internal/api"
	"github.com/jonesrussell/reader/internal/domain"
	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/logger"
	"github.com/jonesrussell/reader/internal/metrics"
	"github.com/jonesrussell/reader/internal/service"
)

// Canned collaborators backing the handler tests. The stores are in-memory
// maps so cache behavior is real; fetch, extraction and the model are faked.

type stubFetcher struct {
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "<html>raw</html>", nil
}

type stubExtractor struct {
	err error
}

func (s *stubExtractor) Extract(_, pageURL string) (*domain.ExtractedContent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ExtractedContent{
		SourceURL:   pageURL,
		Title:       "A Story",
		DisplayHTML: "<p>display</p>",
		ModelHTML:   "<p>model</p>",
		PlainText:   "display",
		Images:      []string{"https://example.com/pic.jpg"},
	}, nil
}

type stubSimplifier struct {
	streamed []string
	calls    int
}

func (s *stubSimplifier) Simplify(_ context.Context, _ string, _ domain.Level) (string, int64, error) {
	s.calls++
	return "<p>simple</p>", 77, nil
}

func (s *stubSimplifier) SimplifyStream(
	_ context.Context, _ string, _ domain.Level, fn func(delta string) error,
) (string, int64, error) {
	s.calls++
	for _, chunk := range s.streamed {
		if err := fn(chunk); err != nil {
			return "", 0, err
		}
	}
	return strings.Join(s.streamed, ""), 77, nil
}

type stubProvider struct{}

func (s *stubProvider) Latest(_ context.Context, _, _ string) ([]json.RawMessage, string, error) {
	return []json.RawMessage{json.RawMessage(`{"title":"hello"}`)}, "tok-2", nil
}

type mapExtractionStore struct {
	records map[string]*domain.ExtractedContent
}

func (s *mapExtractionStore) Latest(_ context.Context, url string) (*domain.ExtractedContent, error) {
	return s.records[url], nil
}

func (s *mapExtractionStore) Insert(_ context.Context, c *domain.ExtractedContent) error {
	s.records[c.SourceURL] = c
	return nil
}

type mapSimplificationStore struct {
	records map[string]*domain.SimplifiedContent
}

func (s *mapSimplificationStore) Latest(_ context.Context, url string, level domain.Level) (*domain.SimplifiedContent, error) {
	return s.records[url+"|"+string(level)], nil
}

func (s *mapSimplificationStore) Insert(_ context.Context, c *domain.SimplifiedContent) error {
	s.records[c.SourceURL+"|"+string(c.Level)] = c
	return nil
}

type mapNewsStore struct {
	records map[string]*domain.NewsListing
}

func (s *mapNewsStore) Latest(_ context.Context, country, language string) (*domain.NewsListing, error) {
	return s.records[country+"|"+language], nil
}

func (s *mapNewsStore) Insert(_ context.Context, l *domain.NewsListing) error {
	s.records[l.Country+"|"+l.Language] = l
	return nil
}

type handlerFixture struct {
	router     *gin.Engine
	fetcher    *stubFetcher
	simplifier *stubSimplifier
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &handlerFixture{
		fetcher:    &stubFetcher{},
		simplifier: &stubSimplifier{streamed: []string{"<p>sim", "ple</p>"}},
	}

	reader := service.New(
		f.fetcher, &stubExtractor{}, f.simplifier, &stubProvider{},
		&mapExtractionStore{records: make(map[string]*domain.ExtractedContent)},
		&mapSimplificationStore{records: make(map[string]*domain.SimplifiedContent)},
		&mapNewsStore{records: make(map[string]*domain.NewsListing)},
		metrics.New("test"), logger.NewNop(),
	)

	handler := api.NewHandler(reader, logger.NewNop())
	router := gin.New()
	router.GET("/extract", handler.Extract)
	router.POST("/extract", handler.Extract)
	router.GET("/simplify", handler.Simplify)
	router.POST("/simplify", handler.Simplify)
	router.GET("/news", handler.News)
	f.router = router
	return f
}

func (f *handlerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestExtractMissingURL(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/extract", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "url")
}

func TestExtractReturnsContent(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/extract?url=https://example.com/story", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://example.com/story", body["url"])
	assert.Equal(t, "A Story", body["title"])
	assert.Equal(t, "<p>display</p>", body["contentHtml"])
	assert.Equal(t, "<p>model</p>", body["llmHtml"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestExtractAcceptsJSONBody(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPost, "/extract", `{"url": "https://example.com/posted"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://example.com/posted", body["url"])
}

func TestExtractBlockedSourceMapsTo403(t *testing.T) {
	f := newHandlerFixture(t)
	f.fetcher.err = errors.New(errors.KindBlocked, "target blocked the request")

	w := f.do(t, http.MethodGet, "/extract?url=https://example.com/story", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSimplifyInvalidLevelRejectedBeforeModel(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/simplify?url=https://example.com/story&level=Z9", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.simplifier.calls)
}

func TestSimplifyBeforeExtractIs404(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/simplify?url=https://example.com/story&level=B1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "source not extracted yet", body["error"])
	assert.Contains(t, body["details"], "extract")
}

func TestSimplifyAfterExtract(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/extract?url=https://example.com/story", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/simplify?url=https://example.com/story&level=A2", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://example.com/story", body["originalUrl"])
	assert.Equal(t, "A2", body["cefrLevel"])
	assert.Equal(t, "<p>simple</p>", body["simplifiedHtml"])
	assert.EqualValues(t, 77, body["tokensUsed"])
}

func TestSimplifyDefaultsToB1(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/extract?url=https://example.com/story", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/simplify?url=https://example.com/story", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "B1", body["cefrLevel"])
}

func TestSimplifyStreamEmitsEventChunks(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/extract?url=https://example.com/story", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/simplify?url=https://example.com/story&level=B1&stream=true", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n\n")
	require.Len(t, lines, 3)

	var first, last api.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[0], "data: ")), &first))
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &last))

	assert.Equal(t, "<p>sim", first.Content)
	assert.False(t, first.Done)
	assert.True(t, last.Done)
	assert.EqualValues(t, 77, last.TotalTokens)
}

func TestSimplifyStreamErrorBeforeFirstChunkIsJSON(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/simplify?url=https://example.com/unseen&level=B1&stream=true", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestNewsMissingParams(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/news?country=ca", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewsReturnsListing(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/news?country=ca&language=en", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body api.NewsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.JSONEq(t, `{"title":"hello"}`, string(body.Results[0]))
	assert.Equal(t, "tok-2", body.NextPage)
}
