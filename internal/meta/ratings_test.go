// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package meta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type memoryCache struct {
	entries map[string][]byte
}

func (m *memoryCache) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := m.entries[key]
	return data, ok, nil
}

func (m *memoryCache) Store(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.entries[key] = data
	return nil
}

func TestCinemetaRatingsRatingFor(t *testing.T) {
	var requests int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch r.URL.Path {
		case "/meta/movie/tt0133093.json":
			w.Write([]byte(`{"meta":{"imdbRating":"8.7"}}`))
		case "/meta/series/tt0903747.json":
			w.Write([]byte(`{"meta":{"imdbRating":"9.5"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	ratings := NewCinemetaRatings(nil, WithRatingsBaseURL(upstream.URL))

	rating, ok := ratings.RatingFor(context.Background(), "tt0133093", "movie")
	assert.True(t, ok)
	assert.Equal(t, "8.7", rating)

	rating, ok = ratings.RatingFor(context.Background(), "tt0903747", "series")
	assert.True(t, ok)
	assert.Equal(t, "9.5", rating)

	_, ok = ratings.RatingFor(context.Background(), "tt404", "movie")
	assert.False(t, ok, "upstream miss reports no rating")

	assert.Equal(t, 3, requests)
}

func TestCinemetaRatingsUsesCache(t *testing.T) {
	var requests int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"meta":{"imdbRating":"8.7"}}`))
	}))
	defer upstream.Close()

	cache := &memoryCache{entries: map[string][]byte{}}
	ratings := NewCinemetaRatings(cache, WithRatingsBaseURL(upstream.URL))

	for i := 0; i < 3; i++ {
		rating, ok := ratings.RatingFor(context.Background(), "tt0133093", "movie")
		assert.True(t, ok)
		assert.Equal(t, "8.7", rating)
	}

	assert.Equal(t, 1, requests, "repeat lookups are served from cache")
}

func TestRatingFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{name: "rating_present", body: `{"meta":{"imdbRating":"7.9"}}`, want: "7.9", ok: true},
		{name: "rating_missing", body: `{"meta":{}}`, ok: false},
		{name: "malformed", body: `not json`, ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rating, ok := ratingFromBody([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, rating)
		})
	}
}
