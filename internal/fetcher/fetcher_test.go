package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/reader/internal/errors"
	"github.com/jonesrussell/reader/internal/fetcher"
	"github.com/jonesrussell/reader/internal/logger"
)

func newTestFetcher() *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{
		Timeout:    5 * time.Second,
		Retries:    2,
		RetryDelay: time.Millisecond,
	}, logger.NewNop())
}

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>article text</body></html>"))
	}))
	defer server.Close()

	body, err := newTestFetcher().Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, body, "article text")
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var userAgent, referer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		referer = r.Header.Get("Referer")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, userAgent, "Mozilla/5.0")
	assert.Contains(t, userAgent, "Chrome")
	assert.Equal(t, "https://www.google.com/", referer)
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	body, err := newTestFetcher().Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindUpstream))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDetectsBlockSignature(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"access denied page", "<html><body><h1>Access Denied</h1></body></html>"},
		{"datadome captcha", `<html><script src="https://captcha-delivery.com/c.js"></script></html>`},
		{"cloudflare challenge", `<html><div id="cf-browser-verification"></div></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestFetcher().Fetch(context.Background(), server.URL)

			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.KindBlocked), "expected blocked error, got %v", err)
		})
	}
}

func TestFetchAcceptsRedirectRangeStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		w.Write([]byte("soft response"))
	}))
	defer server.Close()

	body, err := newTestFetcher().Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "soft response", body)
}
