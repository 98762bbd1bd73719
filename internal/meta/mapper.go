// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package meta maps upstream TMDB payloads into addon meta objects.
package meta

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/genres"
	"github.com/catalogarr/catalogarr/internal/stremio"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

const (
	posterBaseURL   = "https://image.tmdb.org/t/p/w500"
	backdropBaseURL = "https://image.tmdb.org/t/p/original"

	// referenceLanguage anchors fallbacks when viewer-language data is missing.
	referenceLanguage = "en"
	referenceCountry  = "US"

	maxCastEntries = 5
)

// RatingProvider supplies an external rating for a cross-reference id.
// A miss falls through to the upstream vote average.
type RatingProvider interface {
	RatingFor(ctx context.Context, imdbID, contentType string) (string, bool)
}

// PosterProvider substitutes artwork from a poster service. Backdrops are
// never substituted; only posters go through this.
type PosterProvider interface {
	PosterURL(ctx context.Context, imdbID string, tmdbID int, contentType string) (string, bool)
}

// Options carries per-request localization and the viewer's configured
// poster service into the mapper.
type Options struct {
	// Language is the viewer's full locale, e.g. "pt-BR".
	Language string
	// Country scopes certification lookups. Empty derives from Language.
	Country string
	// Posters overrides the mapper's poster provider for this request.
	Posters PosterProvider
}

func (o Options) country() string {
	if o.Country != "" {
		return strings.ToUpper(o.Country)
	}
	if _, region, ok := strings.Cut(o.Language, "-"); ok && len(region) == 2 {
		return strings.ToUpper(region)
	}
	return referenceCountry
}

func (o Options) languageTag() string {
	lang, _, _ := strings.Cut(o.Language, "-")
	if lang == "" {
		return referenceLanguage
	}
	return strings.ToLower(lang)
}

// Mapper converts upstream payloads to addon metas.
type Mapper struct {
	genres  *genres.Table
	ratings RatingProvider
	posters PosterProvider
	log     zerolog.Logger
}

// NewMapper creates a mapper. ratings and posters may be nil; the mapper
// then uses upstream data only.
func NewMapper(genreTable *genres.Table, ratings RatingProvider, posters PosterProvider) *Mapper {
	return &Mapper{
		genres:  genreTable,
		ratings: ratings,
		posters: posters,
		log:     log.Logger.With().Str("module", "meta").Logger(),
	}
}

// ToPreview maps a discover/search result to a catalog row. creditedID is
// the item's cross-reference id when enrichment found one; it takes over
// as the meta id so other addons can join on it. The projection is pure
// for fixed inputs; the same item, credited id and options always yield
// the same preview.
func (m *Mapper) ToPreview(ctx context.Context, item *tmdb.Item, contentType, creditedID string, opts Options) stremio.Meta {
	preview := stremio.Meta{
		ID:          fmt.Sprintf("tmdb:%d", item.ID),
		Type:        contentType,
		Name:        item.DisplayTitle(),
		Description: item.Overview,
		Genres:      m.resolveGenreIDs(ctx, item.GenreIDs, contentType, opts.Language),
	}
	if creditedID != "" {
		preview.ID = creditedID
	}

	if item.PosterPath != "" {
		preview.Poster = posterBaseURL + item.PosterPath
	}
	if year := yearOf(item.Date()); year != "" {
		preview.ReleaseInfo = year
	}
	if item.VoteAverage > 0 {
		preview.IMDBRating = formatRating(item.VoteAverage)
	}

	m.substitutePoster(ctx, &preview, creditedID, item.ID, contentType, opts)

	return preview
}

// FullMovie maps a movie detail response to a full meta.
func (m *Mapper) FullMovie(ctx context.Context, details *tmdb.MovieDetails, opts Options) *stremio.Meta {
	meta := &stremio.Meta{
		ID:          movieID(details),
		Type:        catalog.ContentTypeMovie,
		Name:        details.Title,
		Description: details.Overview,
		Genres:      genreNames(details.Genres),
		Released:    details.ReleaseDate,
	}

	if details.PosterPath != "" {
		meta.Poster = posterBaseURL + details.PosterPath
	}
	if details.BackdropPath != "" {
		meta.Background = backdropBaseURL + details.BackdropPath
	}
	if year := yearOf(details.ReleaseDate); year != "" {
		meta.ReleaseInfo = year
	}
	if details.Runtime > 0 {
		meta.Runtime = fmt.Sprintf("%d min", details.Runtime)
	}

	meta.IMDBRating = m.resolveRating(ctx, details.IMDBID, catalog.ContentTypeMovie, details.VoteAverage)
	meta.Cast, meta.Director, meta.Writer = extractCredits(details.Credits)

	if cert := movieCertification(details.ReleaseDates, opts.country()); cert != "" {
		meta.Certification = TranslateCertification(cert, opts.country())
	}
	if trailer := selectTrailer(details.Videos.Results, opts.languageTag()); trailer != "" {
		meta.Trailers = []stremio.Trailer{{Source: trailer, Type: "Trailer"}}
	}

	m.substitutePoster(ctx, meta, details.IMDBID, details.ID, catalog.ContentTypeMovie, opts)

	return meta
}

// FullSeries maps a TV detail response to a full meta. Episode videos are
// attached separately by the episode extractor.
func (m *Mapper) FullSeries(ctx context.Context, details *tmdb.TVDetails, opts Options) *stremio.Meta {
	meta := &stremio.Meta{
		ID:          seriesID(details),
		Type:        catalog.ContentTypeSeries,
		Name:        details.Name,
		Description: details.Overview,
		Genres:      genreNames(details.Genres),
		Released:    details.FirstAirDate,
		ReleaseInfo: seriesReleaseInfo(details),
	}

	if details.PosterPath != "" {
		meta.Poster = posterBaseURL + details.PosterPath
	}
	if details.BackdropPath != "" {
		meta.Background = backdropBaseURL + details.BackdropPath
	}
	if len(details.EpisodeRunTime) > 0 && details.EpisodeRunTime[0] > 0 {
		meta.Runtime = fmt.Sprintf("%d min", details.EpisodeRunTime[0])
	}

	meta.IMDBRating = m.resolveRating(ctx, details.ExternalIDs.IMDBID, catalog.ContentTypeSeries, details.VoteAverage)
	meta.Cast, meta.Director, meta.Writer = extractCredits(details.Credits)

	if cert := seriesCertification(details.ContentRatings, opts.country()); cert != "" {
		meta.Certification = TranslateCertification(cert, opts.country())
	}
	if trailer := selectTrailer(details.Videos.Results, opts.languageTag()); trailer != "" {
		meta.Trailers = []stremio.Trailer{{Source: trailer, Type: "Trailer"}}
	}

	m.substitutePoster(ctx, meta, details.ExternalIDs.IMDBID, details.ID, catalog.ContentTypeSeries, opts)

	return meta
}

// movieID prefers the cross-reference id when the upstream knows it.
func movieID(details *tmdb.MovieDetails) string {
	if details.IMDBID != "" {
		return details.IMDBID
	}
	return fmt.Sprintf("tmdb:%d", details.ID)
}

func seriesID(details *tmdb.TVDetails) string {
	if details.ExternalIDs.IMDBID != "" {
		return details.ExternalIDs.IMDBID
	}
	return fmt.Sprintf("tmdb:%d", details.ID)
}

// seriesReleaseInfo composes the year span: "2019-" while airing,
// "2019-2023" when ended across years, "2019" when it ended in its
// first year.
func seriesReleaseInfo(details *tmdb.TVDetails) string {
	first := yearOf(details.FirstAirDate)
	if first == "" {
		return ""
	}

	airing := details.InProduction || strings.EqualFold(details.Status, "Returning Series")
	if airing {
		return first + "-"
	}

	last := yearOf(details.LastAirDate)
	if last == "" || last == first {
		return first
	}
	return first + "-" + last
}

// resolveRating applies the rating chain: external provider first, then the
// upstream vote average formatted to one decimal.
func (m *Mapper) resolveRating(ctx context.Context, imdbID, contentType string, voteAverage float64) string {
	if m.ratings != nil && imdbID != "" {
		if rating, ok := m.ratings.RatingFor(ctx, imdbID, contentType); ok && rating != "" {
			return rating
		}
	}
	if voteAverage > 0 {
		return formatRating(voteAverage)
	}
	return ""
}

func formatRating(voteAverage float64) string {
	return strconv.FormatFloat(voteAverage, 'f', 1, 64)
}

// substitutePoster replaces the poster through the poster service when one
// is configured, preferring the cross-reference id. The backdrop always
// stays native. A per-request provider from Options wins over the
// mapper-wide one.
func (m *Mapper) substitutePoster(ctx context.Context, meta *stremio.Meta, imdbID string, tmdbID int, contentType string, opts Options) {
	provider := m.posters
	if opts.Posters != nil {
		provider = opts.Posters
	}
	if provider == nil {
		return
	}
	if url, ok := provider.PosterURL(ctx, imdbID, tmdbID, contentType); ok && url != "" {
		meta.Poster = url
	}
}

func (m *Mapper) resolveGenreIDs(ctx context.Context, ids []int, contentType, language string) []string {
	if len(ids) == 0 || m.genres == nil {
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := m.genres.Resolve(ctx, contentType, language, id); ok {
			names = append(names, name)
		}
	}
	return names
}

func genreNames(list []tmdb.Genre) []string {
	if len(list) == 0 {
		return nil
	}
	names := make([]string, len(list))
	for i, g := range list {
		names[i] = g.Name
	}
	return names
}

func extractCredits(credits tmdb.Credits) (cast, director, writer []string) {
	sorted := append([]tmdb.CastMember(nil), credits.Cast...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	for i, member := range sorted {
		if i >= maxCastEntries {
			break
		}
		cast = append(cast, member.Name)
	}

	for _, member := range credits.Crew {
		switch member.Job {
		case "Director":
			director = append(director, member.Name)
		case "Writer", "Screenplay", "Novel", "Story":
			writer = append(writer, member.Name)
		}
	}
	return cast, director, writer
}

// selectTrailer picks a YouTube trailer deterministically: viewer language
// first, then the reference language, then anything. Within a group,
// official uploads win, then the earliest publication, then the key.
func selectTrailer(videos []tmdb.VideoEntry, languageTag string) string {
	var viewer, reference, any []tmdb.VideoEntry
	for _, v := range videos {
		if v.Site != "YouTube" || v.Type != "Trailer" || v.Key == "" {
			continue
		}
		switch strings.ToLower(v.Language) {
		case languageTag:
			viewer = append(viewer, v)
		case referenceLanguage:
			reference = append(reference, v)
		}
		any = append(any, v)
	}

	for _, group := range [][]tmdb.VideoEntry{viewer, reference, any} {
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Official != group[j].Official {
				return group[i].Official
			}
			if group[i].PublishedAt != group[j].PublishedAt {
				return group[i].PublishedAt < group[j].PublishedAt
			}
			return group[i].Key < group[j].Key
		})
		return group[0].Key
	}
	return ""
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
