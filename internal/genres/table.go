// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package genres maintains genre id and name tables per content type and
// language, with a static fallback when live tables are unavailable.
package genres

import (
	"context"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

// FetchFunc loads a live genre table for a content type and language.
// The table injects it so it never depends on a concrete client.
type FetchFunc func(ctx context.Context, contentType, language string) ([]tmdb.Genre, error)

type tableKey struct {
	contentType string
	language    string
}

// Table caches genre lists keyed by content type and language.
// Lookups fall back to the static English table when nothing live is loaded.
type Table struct {
	mu     sync.RWMutex
	tables map[tableKey][]tmdb.Genre
	fetch  FetchFunc
	log    zerolog.Logger
}

// NewTable creates a genre table. fetch may be nil; the table then serves
// only the static fallback.
func NewTable(fetch FetchFunc) *Table {
	return &Table{
		tables: map[tableKey][]tmdb.Genre{},
		fetch:  fetch,
		log:    log.Logger.With().Str("module", "genres").Logger(),
	}
}

// Get returns the genre list for a content type and language, lazily
// populating from the live source on first use.
func (t *Table) Get(ctx context.Context, contentType, language string) []tmdb.Genre {
	key := tableKey{contentType: contentType, language: normalizeLanguage(language)}

	t.mu.RLock()
	cached, ok := t.tables[key]
	t.mu.RUnlock()
	if ok {
		return cached
	}

	if t.fetch != nil {
		if live, err := t.fetch(ctx, contentType, key.language); err == nil && len(live) > 0 {
			t.mu.Lock()
			t.tables[key] = live
			t.mu.Unlock()
			return live
		} else if err != nil {
			t.log.Debug().Err(err).Str("contentType", contentType).Str("language", key.language).Msg("live genre fetch failed, using static table")
		}
	}

	return staticGenres(contentType)
}

// Refresh forces a live reload for a content type and language.
func (t *Table) Refresh(ctx context.Context, contentType, language string) ([]tmdb.Genre, error) {
	if t.fetch == nil {
		return staticGenres(contentType), nil
	}

	live, err := t.fetch(ctx, contentType, normalizeLanguage(language))
	if err != nil {
		return nil, err
	}
	if len(live) == 0 {
		return staticGenres(contentType), nil
	}

	t.mu.Lock()
	t.tables[tableKey{contentType: contentType, language: normalizeLanguage(language)}] = live
	t.mu.Unlock()

	return live, nil
}

// Resolve maps a genre id to its display name. The second return reports
// whether the id was known.
func (t *Table) Resolve(ctx context.Context, contentType, language string, id int) (string, bool) {
	for _, g := range t.Get(ctx, contentType, language) {
		if g.ID == id {
			return g.Name, true
		}
	}
	// static table as a second chance when a localized table misses an id
	for _, g := range staticGenres(contentType) {
		if g.ID == id {
			return g.Name, true
		}
	}
	return "", false
}

// ResolveNames maps display names back to genre ids. Exact matches
// (case-insensitive) win; otherwise a fuzzy match against the table is
// attempted. Names that cannot be mapped are dropped and reported.
func (t *Table) ResolveNames(ctx context.Context, contentType, language string, names []string) (ids []int, unmapped []string) {
	table := t.Get(ctx, contentType, language)

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if id, ok := matchName(table, name); ok {
			ids = append(ids, id)
			continue
		}
		if id, ok := matchName(staticGenres(contentType), name); ok {
			ids = append(ids, id)
			continue
		}
		unmapped = append(unmapped, name)
	}

	return ids, unmapped
}

func matchName(table []tmdb.Genre, name string) (int, bool) {
	for _, g := range table {
		if strings.EqualFold(g.Name, name) {
			return g.ID, true
		}
	}

	// fuzzy fallback tolerates spelling variants like "Science-Fiction";
	// punctuation in the query would break the subsequence match
	query := sanitizeName(name)
	if query == "" {
		return 0, false
	}
	candidates := make([]string, len(table))
	for i, g := range table {
		candidates[i] = g.Name
	}
	matches := fuzzy.RankFindNormalizedFold(query, candidates)
	if len(matches) == 0 {
		return 0, false
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Distance < best.Distance {
			best = m
		}
	}
	return table[best.OriginalIndex].ID, true
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeLanguage(language string) string {
	if strings.TrimSpace(language) == "" {
		return "en-US"
	}
	return language
}

func staticGenres(contentType string) []tmdb.Genre {
	if contentType == catalog.ContentTypeSeries {
		return staticSeriesGenres
	}
	return staticMovieGenres
}

// Static fallback tables matching the upstream English defaults.
var staticMovieGenres = []tmdb.Genre{
	{ID: 28, Name: "Action"},
	{ID: 12, Name: "Adventure"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedy"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentary"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Family"},
	{ID: 14, Name: "Fantasy"},
	{ID: 36, Name: "History"},
	{ID: 27, Name: "Horror"},
	{ID: 10402, Name: "Music"},
	{ID: 9648, Name: "Mystery"},
	{ID: 10749, Name: "Romance"},
	{ID: 878, Name: "Science Fiction"},
	{ID: 10770, Name: "TV Movie"},
	{ID: 53, Name: "Thriller"},
	{ID: 10752, Name: "War"},
	{ID: 37, Name: "Western"},
}

var staticSeriesGenres = []tmdb.Genre{
	{ID: 10759, Name: "Action & Adventure"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedy"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentary"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Family"},
	{ID: 10762, Name: "Kids"},
	{ID: 9648, Name: "Mystery"},
	{ID: 10763, Name: "News"},
	{ID: 10764, Name: "Reality"},
	{ID: 10765, Name: "Sci-Fi & Fantasy"},
	{ID: 10766, Name: "Soap"},
	{ID: 10767, Name: "Talk"},
	{ID: 10768, Name: "War & Politics"},
	{ID: 37, Name: "Western"},
}
