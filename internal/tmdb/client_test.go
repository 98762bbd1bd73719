// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	return data, ok, nil
}

func (m *memoryCache) Store(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = data
	return nil
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"page":1,"results":[]}`))
	}))
	defer srv.Close()

	client := NewClient(nil, time.Hour, WithBaseURL(srv.URL))

	var page Page
	err := client.FetchJSON(context.Background(), "discover/movie", "key", nil, &page)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, page.Page)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(nil, time.Hour, WithBaseURL(srv.URL))

	var out map[string]any
	err := client.FetchJSON(context.Background(), "discover/movie", "bad-key", nil, &out)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx responses must not be retried")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestClientCredentialOverridesCallerParam(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		require.Len(t, r.URL.Query()["api_key"], 1, "credential parameter must appear exactly once")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(nil, time.Hour, WithBaseURL(srv.URL))

	params := map[string][]string{"api_key": {"attacker-key"}, "page": {"1"}}
	var out map[string]any
	require.NoError(t, client.FetchJSON(context.Background(), "discover/movie", "real-key", params, &out))
	assert.Equal(t, "real-key", gotKey)
}

func TestClientRejectsAbsoluteEndpoints(t *testing.T) {
	client := NewClient(nil, time.Hour)

	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "absolute_url", endpoint: "https://evil.example/steal"},
		{name: "protocol_relative", endpoint: "//evil.example/steal"},
		{name: "parent_traversal", endpoint: "../internal"},
		{name: "empty", endpoint: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			err := client.FetchJSON(context.Background(), tt.endpoint, "key", nil, &out)
			assert.ErrorIs(t, err, ErrInvalidEndpoint)
		})
	}
}

func TestClientCacheShortCircuitsNetwork(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"page":2,"results":[]}`))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	client := NewClient(cache, time.Hour, WithBaseURL(srv.URL))

	var first, second Page
	require.NoError(t, client.FetchJSON(context.Background(), "discover/movie", "key", nil, &first))
	require.NoError(t, client.FetchJSON(context.Background(), "discover/movie", "key", nil, &second))

	assert.Equal(t, 1, calls, "second request must be served from cache")
	assert.Equal(t, first, second)
}

func TestClientCacheKeysNeverContainCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	client := NewClient(cache, time.Hour, WithBaseURL(srv.URL))

	var out map[string]any
	require.NoError(t, client.FetchJSON(context.Background(), "discover/movie", "super-secret-key", nil, &out))

	require.NotEmpty(t, cache.entries)
	for key := range cache.entries {
		assert.NotContains(t, key, "super-secret-key")
	}
}

func TestClientCacheSeparatesCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	client := NewClient(cache, time.Hour, WithBaseURL(srv.URL))

	var out map[string]any
	require.NoError(t, client.FetchJSON(context.Background(), "discover/movie", "key-one", nil, &out))
	require.NoError(t, client.FetchJSON(context.Background(), "discover/movie", "key-two", nil, &out))

	assert.Len(t, cache.entries, 2, "distinct credentials must not share cache entries")
}

func TestWebsiteSearchRejectsUnknownHosts(t *testing.T) {
	client := NewClient(nil, time.Hour)

	_, err := client.WebsiteSearch(context.Background(), "https://evil.example/search/movie?query=x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")

	_, err = client.WebsiteSearch(context.Background(), "http://www.themoviedb.org/search/movie?query=x")
	require.Error(t, err, "plain http must be rejected")
}

func TestBuildWebsiteSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://www.themoviedb.org/search/movie?query=the+matrix",
		BuildWebsiteSearchURL("movie", "the matrix"),
	)
	assert.True(t, strings.HasPrefix(BuildWebsiteSearchURL("series", "lost"), "https://www.themoviedb.org/search/tv?"))
}
