// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/buildinfo"
	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

const (
	cinemetaBaseURL = "https://v3-cinemeta.strem.io"

	maxRatingBody = 1 << 20
)

// CinemetaRatings resolves IMDb-sourced ratings from the public Cinemeta
// catalog. Lookups are best-effort: any failure reports a miss and the
// caller falls back to the upstream average.
type CinemetaRatings struct {
	httpClient *http.Client
	baseURL    string
	cache      tmdb.ResponseCache
	log        zerolog.Logger
}

// RatingsOption customizes a CinemetaRatings provider.
type RatingsOption func(*CinemetaRatings)

// WithRatingsBaseURL points the provider at a different host, used in tests.
func WithRatingsBaseURL(baseURL string) RatingsOption {
	return func(c *CinemetaRatings) {
		c.baseURL = baseURL
	}
}

func NewCinemetaRatings(cache tmdb.ResponseCache, opts ...RatingsOption) *CinemetaRatings {
	c := &CinemetaRatings{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    cinemetaBaseURL,
		cache:      cache,
		log:        log.Logger.With().Str("module", "ratings").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cinemetaResponse struct {
	Meta struct {
		IMDBRating string `json:"imdbRating"`
	} `json:"meta"`
}

// RatingFor looks up the IMDb rating for a cross-reference id.
func (c *CinemetaRatings) RatingFor(ctx context.Context, imdbID, contentType string) (string, bool) {
	section := "movie"
	if contentType == catalog.ContentTypeSeries {
		section = "series"
	}
	fullURL := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, section, imdbID)
	cacheKey := "rating#" + section + "#" + imdbID

	if c.cache != nil {
		if data, ok, err := c.cache.Fetch(ctx, cacheKey); err == nil && ok {
			return ratingFromBody(data)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("imdbId", imdbID).Msg("rating lookup failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRatingBody))
	if err != nil {
		return "", false
	}

	if c.cache != nil {
		if err := c.cache.Store(ctx, cacheKey, body, tmdb.ExternalIDsCacheTTL); err != nil {
			c.log.Debug().Err(err).Str("imdbId", imdbID).Msg("rating cache store failed")
		}
	}

	return ratingFromBody(body)
}

func ratingFromBody(body []byte) (string, bool) {
	var parsed cinemetaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if parsed.Meta.IMDBRating == "" {
		return "", false
	}
	return parsed.Meta.IMDBRating, true
}
