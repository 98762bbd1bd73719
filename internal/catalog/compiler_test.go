// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileGenreAssembly(t *testing.T) {
	tests := []struct {
		name       string
		spec       FilterSpec
		wantGenres string
	}{
		{
			name:       "any_mode_joins_with_pipe",
			spec:       FilterSpec{Genres: []int{28, 35}, GenreMatchMode: GenreMatchAny},
			wantGenres: "28|35",
		},
		{
			name:       "all_mode_joins_with_comma",
			spec:       FilterSpec{Genres: []int{28, 35}, GenreMatchMode: GenreMatchAll},
			wantGenres: "28,35",
		},
		{
			name:       "default_mode_is_any",
			spec:       FilterSpec{Genres: []int{18}},
			wantGenres: "18",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compile(&tt.spec, ContentTypeMovie, CompileOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantGenres, q.Params.Get("with_genres"))
		})
	}
}

func TestCompileExcludedGenresAlwaysPostFiltered(t *testing.T) {
	spec := FilterSpec{Genres: []int{28}, ExcludeGenres: []int{16, 99}}

	q, err := Compile(&spec, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)

	assert.Equal(t, "16,99", q.Params.Get("without_genres"))
	assert.Equal(t, []int{16, 99}, q.ExcludedGenres)

	// The post-filter holds even when the upstream ignores without_genres
	assert.False(t, q.AllowsGenres([]int{28, 16}))
	assert.False(t, q.AllowsGenres([]int{99}))
	assert.True(t, q.AllowsGenres([]int{28, 35}))
	assert.True(t, q.AllowsGenres(nil))
}

func TestCompileListTypeRestrictsParams(t *testing.T) {
	spec := FilterSpec{
		ListType:     ListTypePopular,
		Genres:       []int{28},
		RatingMin:    7.5,
		VoteCountMin: 500,
		WithKeywords: "1,2,3",
	}

	q, err := Compile(&spec, ContentTypeMovie, CompileOptions{Page: 2, Region: "DE"})
	require.NoError(t, err)

	assert.Equal(t, "movie/popular", q.Endpoint)
	assert.False(t, q.UsesDiscover)

	// Only paging, language and region survive
	assert.Len(t, q.Params, 3)
	assert.Equal(t, "2", q.Params.Get("page"))
	assert.Equal(t, "en-US", q.Params.Get("language"))
	assert.Equal(t, "DE", q.Params.Get("region"))
}

func TestCompileListTypeEndpoints(t *testing.T) {
	tests := []struct {
		name         string
		listType     string
		contentType  string
		wantEndpoint string
		wantErr      bool
	}{
		{name: "trending_movie", listType: ListTypeTrending, contentType: ContentTypeMovie, wantEndpoint: "trending/movie/week"},
		{name: "trending_series", listType: ListTypeTrending, contentType: ContentTypeSeries, wantEndpoint: "trending/tv/week"},
		{name: "top_rated_series", listType: ListTypeTopRated, contentType: ContentTypeSeries, wantEndpoint: "tv/top_rated"},
		{name: "now_playing_movie", listType: ListTypeNowPlaying, contentType: ContentTypeMovie, wantEndpoint: "movie/now_playing"},
		{name: "now_playing_series_invalid", listType: ListTypeNowPlaying, contentType: ContentTypeSeries, wantErr: true},
		{name: "airing_today_movie_invalid", listType: ListTypeAiringToday, contentType: ContentTypeMovie, wantErr: true},
		{name: "on_the_air_series", listType: ListTypeOnTheAir, contentType: ContentTypeSeries, wantEndpoint: "tv/on_the_air"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compile(&FilterSpec{ListType: tt.listType}, tt.contentType, CompileOptions{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEndpoint, q.Endpoint)
		})
	}
}

func TestCompileDatePresets(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		preset   string
		wantFrom string
		wantTo   string
	}{
		{name: "last_30_days", preset: DatePresetLast30Days, wantFrom: "2025-05-16", wantTo: "2025-06-15"},
		{name: "this_year", preset: DatePresetThisYear, wantFrom: "2025-01-01", wantTo: "2025-06-15"},
		{name: "last_year", preset: DatePresetLastYear, wantFrom: "2024-01-01", wantTo: "2024-12-31"},
		{name: "upcoming", preset: DatePresetUpcoming, wantFrom: "2025-06-15", wantTo: "2025-12-15"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			spec := FilterSpec{DatePreset: tt.preset}

			q, err := Compile(&spec, ContentTypeMovie, CompileOptions{Now: now})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, q.Params.Get("primary_release_date.gte"))
			assert.Equal(t, tt.wantTo, q.Params.Get("primary_release_date.lte"))

			// The stored spec keeps its symbolic value
			assert.Equal(t, tt.preset, spec.DatePreset)
			assert.Empty(t, spec.ReleaseDateFrom)
			assert.Empty(t, spec.ReleaseDateTo)
		})
	}
}

func TestCompileUpcomingPresetIsMovieOnly(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	spec := FilterSpec{DatePreset: DatePresetUpcoming, YearFrom: 2020}

	q, err := Compile(&spec, ContentTypeSeries, CompileOptions{Now: now})
	require.NoError(t, err)

	// Series ignore the movie-only preset and fall back to the year bounds
	assert.Equal(t, "2020-01-01", q.Params.Get("first_air_date.gte"))
	assert.Empty(t, q.Params.Get("first_air_date.lte"))
}

func TestCompileDateFieldsPerContentTypeAndRegion(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	spec := FilterSpec{DatePreset: DatePresetThisYear}

	q, err := Compile(&spec, ContentTypeSeries, CompileOptions{Now: now})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", q.Params.Get("first_air_date.gte"))
	assert.Empty(t, q.Params.Get("primary_release_date.gte"))

	// Movies with a region switch to the region-scoped date field
	q, err = Compile(&spec, ContentTypeMovie, CompileOptions{Now: now, Region: "FR"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", q.Params.Get("release_date.gte"))
	assert.Empty(t, q.Params.Get("primary_release_date.gte"))
	assert.Equal(t, "FR", q.Params.Get("region"))
}

func TestCompileYearBoundsYieldToExplicitDatesAndPresets(t *testing.T) {
	q, err := Compile(&FilterSpec{YearFrom: 1990, YearTo: 1999}, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1990-01-01", q.Params.Get("primary_release_date.gte"))
	assert.Equal(t, "1999-12-31", q.Params.Get("primary_release_date.lte"))

	q, err = Compile(&FilterSpec{YearFrom: 1990, ReleaseDateFrom: "2001-05-01"}, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2001-05-01", q.Params.Get("primary_release_date.gte"))
}

func TestCompileCommaToPipeTranslation(t *testing.T) {
	spec := FilterSpec{
		WithPeople:      "500, 287",
		WithCompanies:   "420",
		WithKeywords:    "9715,180547",
		ExcludeKeywords: "155477",
	}

	q, err := Compile(&spec, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)

	assert.Equal(t, "500|287", q.Params.Get("with_people"))
	assert.Equal(t, "420", q.Params.Get("with_companies"))
	assert.Equal(t, "9715|180547", q.Params.Get("with_keywords"))
	assert.Equal(t, "155477", q.Params.Get("without_keywords"))
}

func TestCompileExtraGenreOverride(t *testing.T) {
	resolve := func(names []string) ([]int, []string) {
		table := map[string]int{"Action": 28, "Comedy": 35}
		var ids []int
		var unmapped []string
		for _, n := range names {
			if id, ok := table[n]; ok {
				ids = append(ids, id)
			} else {
				unmapped = append(unmapped, n)
			}
		}
		return ids, unmapped
	}

	spec := FilterSpec{Genres: []int{18}}

	q, err := Compile(&spec, ContentTypeMovie, CompileOptions{
		ExtraGenre:    "Action,Comedy",
		ResolveGenres: resolve,
	})
	require.NoError(t, err)
	assert.Equal(t, "28|35", q.Params.Get("with_genres"))

	// Any unmappable name falls back to the stored ids
	q, err = Compile(&spec, ContentTypeMovie, CompileOptions{
		ExtraGenre:    "Action,Nonexistent",
		ResolveGenres: resolve,
	})
	require.NoError(t, err)
	assert.Equal(t, "18", q.Params.Get("with_genres"))

	// The stored spec is untouched either way
	assert.Equal(t, []int{18}, spec.Genres)
}

func TestCompileRandomSortFallsBackToPopularity(t *testing.T) {
	q, err := Compile(&FilterSpec{SortBy: "random"}, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.True(t, q.Randomized)
	assert.Equal(t, "popularity.desc", q.Params.Get("sort_by"))

	q, err = Compile(&FilterSpec{Randomize: true, SortBy: "vote_average.desc"}, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.True(t, q.Randomized)
	assert.Equal(t, "vote_average.desc", q.Params.Get("sort_by"))
}

func TestCompileWatchProvidersRequireRegion(t *testing.T) {
	spec := FilterSpec{WatchProviders: "8,337"}

	q, err := Compile(&spec, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.Empty(t, q.Params.Get("with_watch_providers"), "providers without a region are dropped")

	spec.WatchRegion = "US"
	q, err = Compile(&spec, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "US", q.Params.Get("watch_region"))
	assert.Equal(t, "8|337", q.Params.Get("with_watch_providers"))
}

func TestCompileSeriesSpecificParams(t *testing.T) {
	spec := FilterSpec{
		WithNetworks: "213,1024",
		TVStatus:     "0",
		TVType:       "2",
		AirDateFrom:  "2025-01-01",
	}

	q, err := Compile(&spec, ContentTypeSeries, CompileOptions{})
	require.NoError(t, err)

	assert.Equal(t, "213|1024", q.Params.Get("with_networks"))
	assert.Equal(t, "0", q.Params.Get("with_status"))
	assert.Equal(t, "2", q.Params.Get("with_type"))
	assert.Equal(t, "2025-01-01", q.Params.Get("air_date.gte"))
}

func TestCompileRejectsUnknownContentType(t *testing.T) {
	_, err := Compile(&FilterSpec{}, "music", CompileOptions{})
	assert.Error(t, err)
}

func TestCompileDiscoverOnlyOverridesListType(t *testing.T) {
	spec := FilterSpec{ListType: ListTypePopular, DiscoverOnly: true, Genres: []int{28}}

	q, err := Compile(&spec, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)

	assert.Equal(t, "discover/movie", q.Endpoint)
	assert.Equal(t, "28", q.Params.Get("with_genres"))
}

func TestCompileCarriesIMDBOnlyConstraint(t *testing.T) {
	q, err := Compile(&FilterSpec{IMDBOnly: true}, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.True(t, q.RequireIMDB)

	q, err = Compile(&FilterSpec{ListType: ListTypeTrending, IMDBOnly: true}, ContentTypeSeries, CompileOptions{})
	require.NoError(t, err)
	assert.True(t, q.RequireIMDB)

	q, err = Compile(&FilterSpec{}, ContentTypeMovie, CompileOptions{})
	require.NoError(t, err)
	assert.False(t, q.RequireIMDB)
}

func TestClampPages(t *testing.T) {
	assert.Equal(t, 1, ClampPages(0))
	assert.Equal(t, 42, ClampPages(42))
	assert.Equal(t, 500, ClampPages(9001))
}

func TestRandomPageStaysInClampedRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		page := RandomPage(9001)
		assert.GreaterOrEqual(t, page, 1)
		assert.LessOrEqual(t, page, 500)
	}
}

func TestShufflePreservesElements(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	Shuffle(items)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, items)
}
