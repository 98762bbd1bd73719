// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query is a compiled upstream request plan. ExcludedGenres must be applied
// to the results as a post-filter regardless of what the upstream honored,
// and RequireIMDB drops items without a cross-reference id after mapping;
// neither constraint has an upstream parameter.
type Query struct {
	Endpoint       string
	Params         url.Values
	Randomized     bool
	UsesDiscover   bool
	RequireIMDB    bool
	ExcludedGenres []int
}

// AllowsGenres reports whether an item with the given genre ids survives
// the excluded-genre post-filter.
func (q *Query) AllowsGenres(ids []int) bool {
	for _, excluded := range q.ExcludedGenres {
		for _, id := range ids {
			if id == excluded {
				return false
			}
		}
	}
	return true
}

// CompileOptions carries per-request inputs into the compiler.
type CompileOptions struct {
	// Page is the upstream page to request, starting at 1.
	Page int
	// Language overrides the spec's display language for this request.
	Language string
	// Region scopes region-dependent date fields and dedicated lists.
	Region string
	// ExtraGenre is the raw genre value from the request extra, holding
	// comma-separated display names.
	ExtraGenre string
	// ResolveGenres maps display names to genre ids. Required when
	// ExtraGenre is set; names it cannot map are returned as unmapped.
	ResolveGenres func(names []string) (ids []int, unmapped []string)
	// Now anchors dynamic date presets. Zero means time.Now.
	Now time.Time
}

func (o *CompileOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now
}

func (o *CompileOptions) page() int {
	if o.Page < 1 {
		return 1
	}
	return o.Page
}

// Compile translates a stored filter spec into an upstream query for one
// content type. The stored spec is never mutated; dynamic fields resolve
// against the request clock.
func Compile(spec *FilterSpec, contentType string, opts CompileOptions) (*Query, error) {
	if !ValidContentType(contentType) {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = spec.DisplayLanguage
	}
	if language == "" {
		language = "en-US"
	}

	// Dedicated list feeds accept only paging, language and region.
	if spec.UsesDedicatedList() {
		return compileListQuery(spec, contentType, language, opts)
	}

	q := &Query{
		Endpoint:       "discover/" + apiContentType(contentType),
		Params:         url.Values{},
		Randomized:     spec.IsRandomized(),
		UsesDiscover:   true,
		RequireIMDB:    spec.IMDBOnly,
		ExcludedGenres: append([]int(nil), spec.ExcludeGenres...),
	}

	q.Params.Set("page", strconv.Itoa(opts.page()))
	q.Params.Set("language", language)
	q.Params.Set("include_adult", "false")

	applyGenres(q, spec, opts)
	applyDates(q, spec, contentType, opts)
	applyRatings(q, spec)
	applySort(q, spec)
	applyPeopleAndKeywords(q, spec)
	applyProviders(q, spec)
	applyContentTypeSpecific(q, spec, contentType)

	return q, nil
}

func apiContentType(contentType string) string {
	if contentType == ContentTypeSeries {
		return "tv"
	}
	return "movie"
}

// compileListQuery handles popular/top-rated/trending style feeds which
// ignore discover filters entirely.
func compileListQuery(spec *FilterSpec, contentType, language string, opts CompileOptions) (*Query, error) {
	api := apiContentType(contentType)

	var endpoint string
	switch spec.ListType {
	case ListTypeTrending:
		endpoint = "trending/" + api + "/week"
	case ListTypePopular:
		endpoint = api + "/popular"
	case ListTypeTopRated:
		endpoint = api + "/top_rated"
	case ListTypeNowPlaying:
		if contentType != ContentTypeMovie {
			return nil, fmt.Errorf("list type %q is movie-only", spec.ListType)
		}
		endpoint = "movie/now_playing"
	case ListTypeUpcoming:
		if contentType != ContentTypeMovie {
			return nil, fmt.Errorf("list type %q is movie-only", spec.ListType)
		}
		endpoint = "movie/upcoming"
	case ListTypeAiringToday:
		if contentType != ContentTypeSeries {
			return nil, fmt.Errorf("list type %q is series-only", spec.ListType)
		}
		endpoint = "tv/airing_today"
	case ListTypeOnTheAir:
		if contentType != ContentTypeSeries {
			return nil, fmt.Errorf("list type %q is series-only", spec.ListType)
		}
		endpoint = "tv/on_the_air"
	default:
		return nil, fmt.Errorf("unsupported list type %q", spec.ListType)
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(opts.page()))
	params.Set("language", language)
	if region := strings.TrimSpace(opts.Region); region != "" {
		params.Set("region", region)
	}

	return &Query{
		Endpoint:       endpoint,
		Params:         params,
		Randomized:     spec.IsRandomized(),
		RequireIMDB:    spec.IMDBOnly,
		ExcludedGenres: append([]int(nil), spec.ExcludeGenres...),
	}, nil
}

// applyGenres assembles the genre constraints. A request-time genre extra
// overrides the stored genres when every name can be mapped to an id;
// otherwise the stored ids stay in effect. Excluded genres are sent
// upstream and still enforced locally via the post-filter.
func applyGenres(q *Query, spec *FilterSpec, opts CompileOptions) {
	genreIDs := spec.Genres

	if extra := strings.TrimSpace(opts.ExtraGenre); extra != "" && opts.ResolveGenres != nil {
		names := splitTrimmed(extra)
		if ids, unmapped := opts.ResolveGenres(names); len(unmapped) == 0 && len(ids) > 0 {
			genreIDs = ids
		}
	}

	if len(genreIDs) > 0 {
		sep := "|"
		if spec.GenreMatchMode == GenreMatchAll {
			sep = ","
		}
		q.Params.Set("with_genres", joinInts(genreIDs, sep))
	}

	if len(spec.ExcludeGenres) > 0 {
		q.Params.Set("without_genres", joinInts(spec.ExcludeGenres, ","))
	}
}

// applyDates resolves the date window. Precedence: symbolic preset, then
// explicit release dates, then year bounds. Movie windows switch to the
// region-scoped release date field when a region is in play.
func applyDates(q *Query, spec *FilterSpec, contentType string, opts CompileOptions) {
	from, to := spec.ReleaseDateFrom, spec.ReleaseDateTo

	if pf, pt, ok := resolveDatePreset(spec.DatePreset, contentType, opts.now()); ok {
		from, to = pf, pt
	} else if from == "" && to == "" {
		if spec.YearFrom > 0 {
			from = fmt.Sprintf("%04d-01-01", spec.YearFrom)
		}
		if spec.YearTo > 0 {
			to = fmt.Sprintf("%04d-12-31", spec.YearTo)
		}
	}

	region := strings.TrimSpace(opts.Region)

	if contentType == ContentTypeMovie {
		field := "primary_release_date"
		if region != "" {
			// region-scoped releases use the plain release date field
			field = "release_date"
			q.Params.Set("region", region)
		}
		if from != "" {
			q.Params.Set(field+".gte", from)
		}
		if to != "" {
			q.Params.Set(field+".lte", to)
		}
		if len(spec.ReleaseTypes) > 0 {
			q.Params.Set("with_release_type", joinInts(spec.ReleaseTypes, "|"))
		}
		return
	}

	if from != "" {
		q.Params.Set("first_air_date.gte", from)
	}
	if to != "" {
		q.Params.Set("first_air_date.lte", to)
	}
	if spec.AirDateFrom != "" {
		q.Params.Set("air_date.gte", spec.AirDateFrom)
	}
	if spec.AirDateTo != "" {
		q.Params.Set("air_date.lte", spec.AirDateTo)
	}
}

// resolveDatePreset turns a symbolic preset into a concrete window
// anchored at now. The stored spec keeps the symbolic value. The upcoming
// preset only exists for movies; for series it reports no window.
func resolveDatePreset(preset, contentType string, now time.Time) (from, to string, ok bool) {
	const layout = "2006-01-02"
	switch preset {
	case DatePresetLast30Days:
		return now.AddDate(0, 0, -30).Format(layout), now.Format(layout), true
	case DatePresetThisYear:
		return fmt.Sprintf("%04d-01-01", now.Year()), now.Format(layout), true
	case DatePresetLastYear:
		return fmt.Sprintf("%04d-01-01", now.Year()-1), fmt.Sprintf("%04d-12-31", now.Year()-1), true
	case DatePresetUpcoming:
		if contentType != ContentTypeMovie {
			return "", "", false
		}
		return now.Format(layout), now.AddDate(0, 6, 0).Format(layout), true
	default:
		return "", "", false
	}
}

func applyRatings(q *Query, spec *FilterSpec) {
	if spec.RatingMin > 0 {
		q.Params.Set("vote_average.gte", formatFloat(spec.RatingMin))
	}
	if spec.RatingMax > 0 {
		q.Params.Set("vote_average.lte", formatFloat(spec.RatingMax))
	}
	if spec.VoteCountMin > 0 {
		q.Params.Set("vote_count.gte", strconv.Itoa(spec.VoteCountMin))
	}
}

// applySort maps the sort key. The "random" pseudo-sort has no upstream
// equivalent; the query falls back to popularity and the orchestrator
// shuffles the page.
func applySort(q *Query, spec *FilterSpec) {
	sortBy := spec.SortBy
	if sortBy == "" || sortBy == "random" {
		sortBy = "popularity.desc"
	}
	q.Params.Set("sort_by", sortBy)
}

// applyPeopleAndKeywords translates comma-separated id lists to the pipe
// separator the upstream expects for OR semantics.
func applyPeopleAndKeywords(q *Query, spec *FilterSpec) {
	setPiped := func(param, value string) {
		if v := commasToPipes(value); v != "" {
			q.Params.Set(param, v)
		}
	}

	setPiped("with_cast", spec.WithCast)
	setPiped("with_crew", spec.WithCrew)
	setPiped("with_people", spec.WithPeople)
	setPiped("with_companies", spec.WithCompanies)
	setPiped("with_keywords", spec.WithKeywords)
	setPiped("without_keywords", spec.ExcludeKeywords)

	if spec.OriginCountry != "" {
		q.Params.Set("with_origin_country", spec.OriginCountry)
	}
	if spec.Language != "" {
		q.Params.Set("with_original_language", spec.Language)
	}
}

func applyProviders(q *Query, spec *FilterSpec) {
	if spec.WatchRegion == "" {
		return
	}
	q.Params.Set("watch_region", spec.WatchRegion)
	if v := commasToPipes(spec.WatchProviders); v != "" {
		q.Params.Set("with_watch_providers", v)
	}
	if v := commasToPipes(spec.WatchMonetizationTypes); v != "" {
		q.Params.Set("with_watch_monetization_types", v)
	}
}

func applyContentTypeSpecific(q *Query, spec *FilterSpec, contentType string) {
	if spec.RuntimeMin > 0 {
		q.Params.Set("with_runtime.gte", strconv.Itoa(spec.RuntimeMin))
	}
	if spec.RuntimeMax > 0 {
		q.Params.Set("with_runtime.lte", strconv.Itoa(spec.RuntimeMax))
	}

	if contentType == ContentTypeMovie {
		if len(spec.Certifications) > 0 {
			country := spec.CertificationCountry
			if country == "" {
				country = "US"
			}
			q.Params.Set("certification_country", country)
			q.Params.Set("certification", strings.Join(spec.Certifications, "|"))
		}
		return
	}

	if v := commasToPipes(spec.WithNetworks); v != "" {
		q.Params.Set("with_networks", v)
	}
	if spec.TVStatus != "" {
		q.Params.Set("with_status", spec.TVStatus)
	}
	if spec.TVType != "" {
		q.Params.Set("with_type", spec.TVType)
	}
}

func splitTrimmed(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func commasToPipes(value string) string {
	parts := splitTrimmed(value)
	return strings.Join(parts, "|")
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
