// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package catalog translates user filter specifications into upstream
// TMDB query parameters.
package catalog

import "strings"

// Content types supported by catalog definitions.
const (
	ContentTypeMovie  = "movie"
	ContentTypeSeries = "series"
)

// Genre match modes.
const (
	GenreMatchAny = "any"
	GenreMatchAll = "all"
)

// Dynamic date presets resolved relative to request time.
const (
	DatePresetLast30Days = "last_30_days"
	DatePresetThisYear   = "this_year"
	DatePresetLastYear   = "last_year"
	DatePresetUpcoming   = "upcoming"
)

// Dedicated list feeds bypassing the discover compiler.
const (
	ListTypeDiscover    = "discover"
	ListTypeTrending    = "trending"
	ListTypePopular     = "popular"
	ListTypeTopRated    = "top_rated"
	ListTypeNowPlaying  = "now_playing"
	ListTypeUpcoming    = "upcoming"
	ListTypeAiringToday = "airing_today"
	ListTypeOnTheAir    = "on_the_air"
)

// FilterSpec is a user-defined, persisted filter over TMDB discover.
// Every field is optional; the zero value means "do not constrain".
// Dynamic fields (DatePreset) stay symbolic in storage and are resolved
// per request.
type FilterSpec struct {
	Genres         []int  `json:"genres,omitempty"`
	ExcludeGenres  []int  `json:"excludeGenres,omitempty"`
	GenreMatchMode string `json:"genreMatchMode,omitempty"`

	YearFrom int `json:"yearFrom,omitempty"`
	YearTo   int `json:"yearTo,omitempty"`

	RatingMin    float64 `json:"ratingMin,omitempty"`
	RatingMax    float64 `json:"ratingMax,omitempty"`
	VoteCountMin int     `json:"voteCountMin,omitempty"`

	SortBy          string `json:"sortBy,omitempty"`
	Language        string `json:"language,omitempty"`
	DisplayLanguage string `json:"displayLanguage,omitempty"`
	OriginCountry   string `json:"originCountry,omitempty"`

	ReleaseDateFrom string `json:"releaseDateFrom,omitempty"`
	ReleaseDateTo   string `json:"releaseDateTo,omitempty"`
	ReleaseTypes    []int  `json:"releaseTypes,omitempty"`

	Certifications       []string `json:"certifications,omitempty"`
	CertificationCountry string   `json:"certificationCountry,omitempty"`

	RuntimeMin int `json:"runtimeMin,omitempty"`
	RuntimeMax int `json:"runtimeMax,omitempty"`

	WithCast        string `json:"withCast,omitempty"`
	WithCrew        string `json:"withCrew,omitempty"`
	WithPeople      string `json:"withPeople,omitempty"`
	WithCompanies   string `json:"withCompanies,omitempty"`
	WithKeywords    string `json:"withKeywords,omitempty"`
	ExcludeKeywords string `json:"excludeKeywords,omitempty"`

	WatchRegion            string `json:"watchRegion,omitempty"`
	WatchProviders         string `json:"watchProviders,omitempty"`
	WatchMonetizationTypes string `json:"watchMonetizationTypes,omitempty"`

	AirDateFrom  string `json:"airDateFrom,omitempty"`
	AirDateTo    string `json:"airDateTo,omitempty"`
	WithNetworks string `json:"withNetworks,omitempty"`
	TVStatus     string `json:"tvStatus,omitempty"`
	TVType       string `json:"tvType,omitempty"`

	DatePreset   string `json:"datePreset,omitempty"`
	ListType     string `json:"listType,omitempty"`
	Randomize    bool   `json:"randomize,omitempty"`
	DiscoverOnly bool   `json:"discoverOnly,omitempty"`
	IMDBOnly     bool   `json:"imdbOnly,omitempty"`
}

// IsRandomized reports whether results must be re-randomized per request.
func (f *FilterSpec) IsRandomized() bool {
	return f.Randomize || f.SortBy == "random"
}

// UsesDedicatedList reports whether a non-discover list feed is selected.
// DiscoverOnly pins the spec to the discover compiler even when a list
// type is stored.
func (f *FilterSpec) UsesDedicatedList() bool {
	if f.DiscoverOnly {
		return false
	}
	lt := strings.TrimSpace(f.ListType)
	return lt != "" && lt != ListTypeDiscover
}

// ValidContentType reports whether a content type is supported.
func ValidContentType(contentType string) bool {
	return contentType == ContentTypeMovie || contentType == ContentTypeSeries
}
