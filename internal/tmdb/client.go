// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package tmdb is the upstream metadata client. Every request goes through
// FetchJSON, which validates the endpoint, injects the caller credential,
// consults the response cache and retries transient failures.
package tmdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/buildinfo"
	"github.com/catalogarr/catalogarr/internal/domain"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"

	maxAttempts = 3
	retryDelay  = 300 * time.Millisecond

	// DefaultCacheTTL covers discover/list/detail responses.
	DefaultCacheTTL = time.Hour
	// ExternalIDsCacheTTL covers cross-reference id lookups, which change rarely.
	ExternalIDsCacheTTL = 24 * time.Hour
	// ReferenceCacheTTL covers genre tables, languages, countries and
	// certification tables, which are effectively static.
	ReferenceCacheTTL = 7 * 24 * time.Hour
)

// ResponseCache is the persistence surface the client memoizes through.
type ResponseCache interface {
	Fetch(ctx context.Context, cacheKey string) ([]byte, bool, error)
	Store(ctx context.Context, cacheKey string, data []byte, ttl time.Duration) error
}

// Client talks to the TMDB API on behalf of per-user credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      ResponseCache
	cacheTTL   time.Duration
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout overrides the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates an upstream client. A nil cache disables memoization.
func NewClient(cache ResponseCache, cacheTTL time.Duration, opts ...Option) *Client {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log.Logger.With().Str("module", "tmdb").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// validateEndpoint rejects anything that is not a plain relative API path.
func validateEndpoint(endpoint string) error {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return ErrInvalidEndpoint
	}
	if strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "//") {
		return ErrInvalidEndpoint
	}
	if strings.Contains(trimmed, "..") {
		return ErrInvalidEndpoint
	}
	return nil
}

// buildURL composes the full request URL. The credential always wins over
// any caller-supplied parameter of the same name.
func (c *Client) buildURL(endpoint, apiKey string, params url.Values) string {
	query := url.Values{}
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	query.Set("api_key", apiKey)

	return fmt.Sprintf("%s/%s?%s", c.baseURL, strings.TrimPrefix(endpoint, "/"), query.Encode())
}

// cacheKey derives the memoization key for a request. The plaintext
// credential never lands in the cache table; a digest prefix keeps entries
// separated per credential instead.
func cacheKey(fullURL, apiKey string) string {
	digest := sha256.Sum256([]byte(strings.TrimSpace(apiKey)))
	return domain.RedactURLString(fullURL) + "#" + hex.EncodeToString(digest[:])[:12]
}

// FetchJSON performs a GET against a relative TMDB endpoint and decodes the
// response into out, using the default cache TTL.
func (c *Client) FetchJSON(ctx context.Context, endpoint, apiKey string, params url.Values, out any) error {
	return c.FetchJSONTTL(ctx, endpoint, apiKey, params, out, c.cacheTTL)
}

// FetchJSONTTL is FetchJSON with an explicit cache TTL for the response.
func (c *Client) FetchJSONTTL(ctx context.Context, endpoint, apiKey string, params url.Values, out any, ttl time.Duration) error {
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("api key is required")
	}

	fullURL := c.buildURL(endpoint, apiKey, params)
	key := cacheKey(fullURL, apiKey)

	if c.cache != nil {
		if data, ok, err := c.cache.Fetch(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("url", domain.RedactURLString(fullURL)).Msg("cache lookup failed")
		} else if ok {
			c.log.Trace().Str("url", domain.RedactURLString(fullURL)).Msg("cache hit")
			return json.Unmarshal(data, out)
		}
	}

	body, err := c.fetchWithRetry(ctx, fullURL, endpoint)
	if err != nil {
		return err
	}

	if c.cache != nil && ttl > 0 {
		if err := c.cache.Store(ctx, key, body, ttl); err != nil {
			c.log.Warn().Err(err).Str("url", domain.RedactURLString(fullURL)).Msg("cache store failed")
		}
	}

	return json.Unmarshal(body, out)
}

// fetchWithRetry issues the GET, retrying only transient failures with
// exponential backoff. 4xx responses other than 429 fail immediately.
func (c *Client) fetchWithRetry(ctx context.Context, fullURL, endpoint string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			data, err := c.doRequest(ctx, fullURL, endpoint)
			if err != nil {
				return err
			}
			body = data
			return nil
		},
		retry.Attempts(maxAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			return isTransient(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().
				Err(err).
				Uint("attempt", n+1).
				Str("url", domain.RedactURLString(fullURL)).
				Msg("retrying upstream request")
		}),
	)
	if err != nil {
		c.log.Debug().Err(err).Str("url", domain.RedactURLString(fullURL)).Msg("upstream request failed")
		return nil, err
	}

	return body, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
