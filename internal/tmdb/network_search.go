// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tmdb

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Network is a TV network scraped from the public website search. The API
// exposes network details by id but has no search endpoint for them.
type Network struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BuildNetworkSearchURL composes the allow-listed website search URL for
// networks.
func BuildNetworkSearchURL(query string) string {
	return fmt.Sprintf("https://www.themoviedb.org/search/network?query=%s", url.QueryEscape(strings.TrimSpace(query)))
}

// SearchNetworks searches TV networks by name through the website search
// page. Results come back in page order, deduplicated by id.
func (c *Client) SearchNetworks(ctx context.Context, query string) ([]Network, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Network{}, nil
	}

	body, err := c.WebsiteSearch(ctx, BuildNetworkSearchURL(query))
	if err != nil {
		return nil, err
	}

	return ParseNetworkSearch(body)
}

// ParseNetworkSearch extracts networks from a website search result page.
// Network results render as anchors whose href is "/network/{id}" or
// "/network/{id}-{slug}"; the anchor text carries the display name.
func ParseNetworkSearch(body []byte) ([]Network, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	seen := make(map[int]bool)
	networks := []Network{}

	doc.Find(`a[href^="/network/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		slug := strings.TrimPrefix(href, "/network/")
		idPart, _, _ := strings.Cut(slug, "-")
		id, err := strconv.Atoi(idPart)
		if err != nil || id <= 0 || seen[id] {
			return
		}
		name := strings.TrimSpace(sel.Text())
		if name == "" {
			return
		}
		seen[id] = true
		networks = append(networks, Network{ID: id, Name: name})
	})

	return networks, nil
}
