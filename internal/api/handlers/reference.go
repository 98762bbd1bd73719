// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/genres"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

// ReferenceHandler serves lookup data for the configuration UI: genre
// tables, languages, countries, certification systems and entity searches.
// Callers present their own TMDB key in the X-API-Key header.
type ReferenceHandler struct {
	client *tmdb.Client
	genres *genres.Table
}

func NewReferenceHandler(client *tmdb.Client, genreTable *genres.Table) *ReferenceHandler {
	return &ReferenceHandler{
		client: client,
		genres: genreTable,
	}
}

func (h *ReferenceHandler) Routes(r chi.Router) {
	r.Get("/genres", h.GetGenres)
	r.Get("/languages", h.GetLanguages)
	r.Get("/countries", h.GetCountries)
	r.Get("/certifications", h.GetCertifications)
	r.Get("/watch-providers", h.GetWatchProviders)
	r.Get("/search/person", h.SearchPerson)
	r.Get("/search/company", h.SearchCompany)
	r.Get("/search/keyword", h.SearchKeyword)
	r.Get("/search/network", h.SearchNetwork)
}

func (h *ReferenceHandler) apiKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	if key == "" {
		RespondError(w, http.StatusUnauthorized, "X-API-Key header is required")
		return "", false
	}
	return key, true
}

func contentTypeParam(r *http.Request) string {
	if r.URL.Query().Get("type") == catalog.ContentTypeSeries {
		return catalog.ContentTypeSeries
	}
	return catalog.ContentTypeMovie
}

// GetGenres serves the genre table. It goes through the shared table so
// responses survive upstream outages via the static fallback.
func (h *ReferenceHandler) GetGenres(w http.ResponseWriter, r *http.Request) {
	contentType := contentTypeParam(r)
	language := r.URL.Query().Get("language")

	RespondJSON(w, http.StatusOK, tmdb.GenreList{
		Genres: h.genres.Get(r.Context(), contentType, language),
	})
}

func (h *ReferenceHandler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	key, ok := h.apiKey(w, r)
	if !ok {
		return
	}

	var languages []tmdb.Language
	if err := h.client.FetchJSONTTL(r.Context(), "configuration/languages", key, nil, &languages, tmdb.ReferenceCacheTTL); err != nil {
		log.Warn().Err(err).Msg("language list fetch failed")
		RespondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	RespondJSON(w, http.StatusOK, languages)
}

func (h *ReferenceHandler) GetCountries(w http.ResponseWriter, r *http.Request) {
	key, ok := h.apiKey(w, r)
	if !ok {
		return
	}

	var countries []tmdb.Country
	if err := h.client.FetchJSONTTL(r.Context(), "configuration/countries", key, nil, &countries, tmdb.ReferenceCacheTTL); err != nil {
		log.Warn().Err(err).Msg("country list fetch failed")
		RespondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	RespondJSON(w, http.StatusOK, countries)
}

func (h *ReferenceHandler) GetCertifications(w http.ResponseWriter, r *http.Request) {
	key, ok := h.apiKey(w, r)
	if !ok {
		return
	}

	endpoint := "certification/movie/list"
	if contentTypeParam(r) == catalog.ContentTypeSeries {
		endpoint = "certification/tv/list"
	}

	var certifications tmdb.CertificationsResponse
	if err := h.client.FetchJSONTTL(r.Context(), endpoint, key, nil, &certifications, tmdb.ReferenceCacheTTL); err != nil {
		log.Warn().Err(err).Msg("certification list fetch failed")
		RespondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	RespondJSON(w, http.StatusOK, certifications)
}

func (h *ReferenceHandler) GetWatchProviders(w http.ResponseWriter, r *http.Request) {
	key, ok := h.apiKey(w, r)
	if !ok {
		return
	}

	endpoint := "watch/providers/movie"
	if contentTypeParam(r) == catalog.ContentTypeSeries {
		endpoint = "watch/providers/tv"
	}

	params := url.Values{}
	if region := r.URL.Query().Get("region"); region != "" {
		params.Set("watch_region", region)
	}

	var providers tmdb.ProvidersResponse
	if err := h.client.FetchJSONTTL(r.Context(), endpoint, key, params, &providers, tmdb.ReferenceCacheTTL); err != nil {
		log.Warn().Err(err).Msg("watch provider fetch failed")
		RespondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	RespondJSON(w, http.StatusOK, providers)
}

func (h *ReferenceHandler) SearchPerson(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "search/person")
}

func (h *ReferenceHandler) SearchCompany(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "search/company")
}

func (h *ReferenceHandler) SearchKeyword(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "search/keyword")
}

// SearchNetwork searches TV networks by name. The upstream API has no
// network search endpoint, so this goes through the public website search
// and needs no API key.
func (h *ReferenceHandler) SearchNetwork(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		RespondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	networks, err := h.client.SearchNetworks(r.Context(), query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("network search failed")
		RespondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	RespondJSON(w, http.StatusOK, networks)
}

func (h *ReferenceHandler) search(w http.ResponseWriter, r *http.Request, endpoint string) {
	key, ok := h.apiKey(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		RespondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	params := url.Values{}
	params.Set("query", query)

	var page tmdb.NamedPage
	if err := h.client.FetchJSON(r.Context(), endpoint, key, params, &page); err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("entity search failed")
		RespondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	RespondJSON(w, http.StatusOK, page)
}
