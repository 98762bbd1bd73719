// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package stremio holds the addon protocol JSON shapes served to Stremio hosts.
package stremio

// Manifest describes the addon to a Stremio host.
type Manifest struct {
	ID            string        `json:"id"`
	Version       string        `json:"version"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Types         []string      `json:"types"`
	Resources     []string      `json:"resources"`
	Catalogs      []Catalog     `json:"catalogs"`
	IDPrefixes    []string      `json:"idPrefixes,omitempty"`
	BehaviorHints BehaviorHints `json:"behaviorHints"`
}

type BehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired,omitempty"`
}

type Catalog struct {
	Type  string       `json:"type"`
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Extra []ExtraField `json:"extra,omitempty"`
}

type ExtraField struct {
	Name       string   `json:"name"`
	Options    []string `json:"options,omitempty"`
	IsRequired bool     `json:"isRequired,omitempty"`
}

// Meta represents a media item in catalog and meta responses.
// Catalog previews populate a subset; full meta fills everything available.
type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	Poster        string    `json:"poster,omitempty"`
	Background    string    `json:"background,omitempty"`
	Logo          string    `json:"logo,omitempty"`
	Description   string    `json:"description,omitempty"`
	ReleaseInfo   string    `json:"releaseInfo,omitempty"`
	IMDBRating    string    `json:"imdbRating,omitempty"`
	Runtime       string    `json:"runtime,omitempty"`
	Genres        []string  `json:"genres,omitempty"`
	Cast          []string  `json:"cast,omitempty"`
	Director      []string  `json:"director,omitempty"`
	Writer        []string  `json:"writer,omitempty"`
	Country       string    `json:"country,omitempty"`
	Language      string    `json:"language,omitempty"`
	Certification string    `json:"certification,omitempty"`
	Released      string    `json:"released,omitempty"`
	Trailers      []Trailer `json:"trailers,omitempty"`
	Videos        []Video   `json:"videos,omitempty"`
}

// Trailer references a YouTube video by source id.
type Trailer struct {
	Source string `json:"source"`
	Type   string `json:"type"`
}

// Video represents an episode in a series meta.
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Released  string `json:"released,omitempty"`
	Overview  string `json:"overview,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// CatalogResponse is the catalog endpoint payload.
type CatalogResponse struct {
	Metas           []Meta `json:"metas"`
	CacheMaxAge     int    `json:"cacheMaxAge,omitempty"`
	StaleRevalidate int    `json:"staleRevalidate,omitempty"`
}

// MetaResponse is the meta endpoint payload.
type MetaResponse struct {
	Meta *Meta `json:"meta"`
}
