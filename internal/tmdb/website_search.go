// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// hosts the website search path may talk to
var allowedWebsiteHosts = map[string]bool{
	"www.themoviedb.org": true,
}

// WebsiteSearch fetches a public website search page as raw bytes. It is a
// secondary lookup path for data the API does not expose. Unlike FetchJSON
// it never retries; a miss here is always recoverable by the caller.
func (c *Client) WebsiteSearch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid website url: %w", err)
	}
	if u.Scheme != "https" || !allowedWebsiteHosts[u.Host] {
		return nil, fmt.Errorf("website host %q is not allowed", u.Host)
	}

	key := "website#" + u.String()
	if c.cache != nil {
		if data, ok, err := c.cache.Fetch(ctx, key); err == nil && ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", websiteUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("website request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: u.Path}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebsiteBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read website response: %w", err)
	}

	if c.cache != nil && len(body) > 0 {
		if err := c.cache.Store(ctx, key, body, ReferenceCacheTTL); err != nil {
			c.log.Warn().Err(err).Str("url", u.String()).Msg("website cache store failed")
		}
	}

	return body, nil
}

const (
	maxWebsiteBody = 2 << 20

	// browsers get the full page, plain API agents often get bot-walled
	websiteUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// BuildWebsiteSearchURL composes an allow-listed website search URL for a
// query and content type.
func BuildWebsiteSearchURL(contentType, query string) string {
	section := "movie"
	if contentType == "series" {
		section = "tv"
	}
	return fmt.Sprintf("https://www.themoviedb.org/search/%s?query=%s", section, url.QueryEscape(strings.TrimSpace(query)))
}
