// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package addon orchestrates manifest, catalog and meta responses for
// Stremio hosts. Addon-facing paths never surface errors; failures collapse
// to empty but valid payloads so hosts keep the addon installed.
package addon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/genres"
	"github.com/catalogarr/catalogarr/internal/meta"
	"github.com/catalogarr/catalogarr/internal/models"
	"github.com/catalogarr/catalogarr/internal/stremio"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

const (
	// upstreamPageSize is the fixed result count per upstream page.
	upstreamPageSize = 20

	searchMovieCatalogID  = "catalogarr-search-movie"
	searchSeriesCatalogID = "catalogarr-search-series"
)

// Settings carries addon identity from the configuration.
type Settings struct {
	ID          string
	Name        string
	Version     string
	Description string
}

// Service answers addon protocol requests for a user's configuration.
type Service struct {
	configs  *models.UserConfigStore
	client   *tmdb.Client
	genres   *genres.Table
	mapper   *meta.Mapper
	settings Settings
	log      zerolog.Logger
}

func NewService(configs *models.UserConfigStore, client *tmdb.Client, genreTable *genres.Table, mapper *meta.Mapper, settings Settings) *Service {
	return &Service{
		configs:  configs,
		client:   client,
		genres:   genreTable,
		mapper:   mapper,
		settings: settings,
		log:      log.Logger.With().Str("module", "addon").Logger(),
	}
}

// Manifest builds the per-user manifest. Unknown users get an install-time
// valid manifest that demands configuration instead of an error.
func (s *Service) Manifest(ctx context.Context, userID string) (*stremio.Manifest, CacheDirective) {
	manifest := &stremio.Manifest{
		ID:          s.settings.ID,
		Version:     s.settings.Version,
		Name:        s.settings.Name,
		Description: s.settings.Description,
		Types:       []string{catalog.ContentTypeMovie, catalog.ContentTypeSeries},
		Resources:   []string{"catalog", "meta"},
		Catalogs:    []stremio.Catalog{},
		IDPrefixes:  []string{"tt", "tmdb:"},
		BehaviorHints: stremio.BehaviorHints{
			Configurable: true,
		},
	}

	cfg, err := s.configs.Get(ctx, userID)
	if err != nil {
		s.log.Debug().Err(err).Str("userId", userID).Msg("manifest for unknown user")
		manifest.BehaviorHints.ConfigurationRequired = true
		return manifest, noStoreDirective()
	}

	language := cfg.Preferences.Language
	healed := false
	refreshed := false

	for i := range cfg.Catalogs {
		def := &cfg.Catalogs[i]
		if !def.Enabled {
			continue
		}
		manifest.Catalogs = append(manifest.Catalogs, stremio.Catalog{
			Type:  def.ContentType,
			ID:    def.ID,
			Name:  def.Name,
			Extra: s.catalogExtra(ctx, def, language, &refreshed, &healed),
		})
	}

	if cfg.Preferences.SearchEnabled {
		manifest.Catalogs = append(manifest.Catalogs,
			stremio.Catalog{
				Type: catalog.ContentTypeMovie,
				ID:   searchMovieCatalogID,
				Name: s.settings.Name + " Search",
				Extra: []stremio.ExtraField{
					{Name: "search", IsRequired: true},
				},
			},
			stremio.Catalog{
				Type: catalog.ContentTypeSeries,
				ID:   searchSeriesCatalogID,
				Name: s.settings.Name + " Search",
				Extra: []stremio.ExtraField{
					{Name: "search", IsRequired: true},
				},
			},
		)
	}

	if healed {
		// Persist the repaired definitions outside the request path; the
		// manifest already reflects them either way.
		go s.persistRepairedCatalogs(cfg)
	}

	if cfg.Preferences.ShuffleCatalogs {
		return manifest, noStoreDirective()
	}
	return manifest, manifestDirective()
}

// catalogExtra describes the optional request parameters for one catalog.
// Genre options are the names of the catalog's own stored genre ids. An id
// the live table cannot resolve triggers at most one table refresh per
// manifest; if resolution still fails the stored association supplies the
// label. Ids are never dropped, only their name associations are repaired.
func (s *Service) catalogExtra(ctx context.Context, def *models.CatalogDefinition, language string, refreshed, healed *bool) []stremio.ExtraField {
	extra := []stremio.ExtraField{
		{Name: "skip"},
	}

	if def.Filters.UsesDedicatedList() {
		return extra
	}

	options := make([]string, 0, len(def.Filters.Genres))
	for _, id := range def.Filters.Genres {
		name, ok := s.genres.Resolve(ctx, def.ContentType, language, id)
		if !ok && !*refreshed {
			*refreshed = true
			if _, err := s.genres.Refresh(ctx, def.ContentType, language); err != nil {
				s.log.Debug().Err(err).Msg("genre refresh during manifest failed")
			}
			name, ok = s.genres.Resolve(ctx, def.ContentType, language, id)
		}

		if ok {
			if def.GenreNames[id] != name {
				if def.GenreNames == nil {
					def.GenreNames = make(map[int]string)
				}
				def.GenreNames[id] = name
				*healed = true
			}
			options = append(options, name)
			continue
		}

		if stored, found := def.GenreNames[id]; found {
			options = append(options, stored)
		} else {
			s.log.Warn().Int("genreId", id).Str("catalog", def.ID).Msg("genre id has no resolvable name")
		}
	}
	if len(options) > 0 {
		extra = append(extra, stremio.ExtraField{Name: "genre", Options: options})
	}

	return extra
}

func (s *Service) persistRepairedCatalogs(cfg *models.UserConfiguration) {
	_, err := s.configs.Save(context.Background(), cfg.UserID, cfg.ConfigName, cfg.Catalogs, cfg.Preferences)
	if err != nil {
		s.log.Warn().Err(err).Str("userId", cfg.UserID).Msg("failed to persist repaired catalogs")
	}
}

// Catalog serves one catalog page. Every failure path returns an empty
// valid response; the directive switches to no-store for randomized
// catalogs and shuffle-everything users.
func (s *Service) Catalog(ctx context.Context, userID, contentType, catalogID string, extra stremio.Extra) (*stremio.CatalogResponse, CacheDirective) {
	empty := &stremio.CatalogResponse{Metas: []stremio.Meta{}}

	if !catalog.ValidContentType(contentType) {
		return empty, noStoreDirective()
	}

	cfg, err := s.configs.Get(ctx, userID)
	if err != nil {
		s.log.Debug().Err(err).Str("userId", userID).Msg("catalog for unknown user")
		return empty, noStoreDirective()
	}

	apiKey, err := s.configs.GetDecryptedAPIKey(cfg)
	if err != nil {
		s.log.Error().Err(err).Str("userId", userID).Msg("failed to decrypt api key")
		return empty, noStoreDirective()
	}

	opts := meta.Options{
		Language: cfg.Preferences.Language,
		Posters:  meta.PosterServiceFor(cfg.Preferences.PosterService, cfg.Preferences.PosterServiceKey),
	}

	if catalogID == searchMovieCatalogID || catalogID == searchSeriesCatalogID {
		directive := catalogDirective()
		resp := s.searchCatalog(ctx, apiKey, contentType, extra, opts)
		resp.CacheMaxAge = directive.MaxAgeSeconds
		resp.StaleRevalidate = directive.StaleRevalidate
		return resp, directive
	}

	def := findCatalog(cfg, catalogID, contentType)
	if def == nil {
		s.log.Debug().Str("catalogId", catalogID).Str("userId", userID).Msg("unknown catalog requested")
		return empty, noStoreDirective()
	}

	shuffle := cfg.Preferences.ShuffleCatalogs || def.Filters.IsRandomized()
	directive := catalogDirective()
	if shuffle {
		directive = noStoreDirective()
	}

	page := extra.Skip/upstreamPageSize + 1
	compileOpts := catalog.CompileOptions{
		Page:       page,
		Language:   cfg.Preferences.Language,
		ExtraGenre: extra.Genre,
		ResolveGenres: func(names []string) ([]int, []string) {
			return s.genres.ResolveNames(ctx, def.ContentType, cfg.Preferences.Language, names)
		},
	}

	q, err := catalog.Compile(&def.Filters, contentType, compileOpts)
	if err != nil {
		s.log.Warn().Err(err).Str("catalogId", catalogID).Msg("catalog compilation failed")
		return empty, directive
	}

	result, err := s.fetchPage(ctx, apiKey, q, shuffle)
	if err != nil {
		s.log.Warn().Err(err).Str("catalogId", catalogID).Msg("catalog fetch failed")
		return empty, directive
	}

	kept := make([]*tmdb.Item, 0, len(result.Results))
	for i := range result.Results {
		item := &result.Results[i]
		if !q.AllowsGenres(item.GenreIDs) {
			continue
		}
		kept = append(kept, item)
	}

	creditedIDs := s.creditedIDs(ctx, apiKey, contentType, kept)

	metas := make([]stremio.Meta, 0, len(kept))
	for i, item := range kept {
		if q.RequireIMDB && creditedIDs[i] == "" {
			continue
		}
		metas = append(metas, s.mapper.ToPreview(ctx, item, contentType, creditedIDs[i], opts))
	}

	resp := &stremio.CatalogResponse{
		Metas:           metas,
		CacheMaxAge:     directive.MaxAgeSeconds,
		StaleRevalidate: directive.StaleRevalidate,
	}
	return resp, directive
}

// creditedIDs resolves cross-reference ids for one page of items. The
// fan-out width is bounded by the upstream page size, so the group runs
// unthrottled. Lookups fail open: an item whose lookup errors keeps its
// native id.
func (s *Service) creditedIDs(ctx context.Context, apiKey, contentType string, items []*tmdb.Item) []string {
	ids := make([]string, len(items))
	if len(items) == 0 {
		return ids
	}

	section := "movie"
	if contentType == catalog.ContentTypeSeries {
		section = "tv"
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			var external tmdb.ExternalIDs
			endpoint := fmt.Sprintf("%s/%d/external_ids", section, item.ID)
			if err := s.client.FetchJSONTTL(gctx, endpoint, apiKey, url.Values{}, &external, tmdb.ExternalIDsCacheTTL); err != nil {
				s.log.Debug().Err(err).Int("tmdbId", item.ID).Msg("external id lookup failed")
				return nil
			}
			ids[i] = external.IMDBID
			return nil
		})
	}
	_ = g.Wait()
	return ids
}

// fetchPage executes a compiled query. Randomized catalogs probe page 1 for
// the page count, clamp it to what the upstream serves, then fetch a random
// page and shuffle it. Random pages are never cached.
func (s *Service) fetchPage(ctx context.Context, apiKey string, q *catalog.Query, shuffle bool) (*tmdb.Page, error) {
	var page tmdb.Page

	if !shuffle {
		if err := s.client.FetchJSON(ctx, q.Endpoint, apiKey, q.Params, &page); err != nil {
			return nil, err
		}
		return &page, nil
	}

	probeParams := cloneValues(q.Params)
	probeParams.Set("page", "1")

	var probe tmdb.Page
	if err := s.client.FetchJSON(ctx, q.Endpoint, apiKey, probeParams, &probe); err != nil {
		return nil, err
	}

	randomPage := catalog.RandomPage(probe.TotalPages)
	if randomPage == 1 {
		page = probe
	} else {
		params := cloneValues(q.Params)
		params.Set("page", strconv.Itoa(randomPage))
		if err := s.client.FetchJSONTTL(ctx, q.Endpoint, apiKey, params, &page, 0); err != nil {
			return nil, err
		}
	}

	catalog.Shuffle(page.Results)
	return &page, nil
}

// searchCatalog serves the synthetic search catalogs. Searches hit the
// plain search endpoints; filters do not apply.
func (s *Service) searchCatalog(ctx context.Context, apiKey, contentType string, extra stremio.Extra, opts meta.Options) *stremio.CatalogResponse {
	empty := &stremio.CatalogResponse{Metas: []stremio.Meta{}}

	query := strings.TrimSpace(extra.Search)
	if query == "" {
		return empty
	}

	endpoint := "search/movie"
	if contentType == catalog.ContentTypeSeries {
		endpoint = "search/tv"
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(extra.Skip/upstreamPageSize+1))
	params.Set("include_adult", "false")
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	var page tmdb.Page
	if err := s.client.FetchJSON(ctx, endpoint, apiKey, params, &page); err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("search failed")
		return empty
	}

	items := make([]*tmdb.Item, len(page.Results))
	for i := range page.Results {
		items[i] = &page.Results[i]
	}
	creditedIDs := s.creditedIDs(ctx, apiKey, contentType, items)

	metas := make([]stremio.Meta, 0, len(items))
	for i, item := range items {
		metas = append(metas, s.mapper.ToPreview(ctx, item, contentType, creditedIDs[i], opts))
	}
	return &stremio.CatalogResponse{Metas: metas}
}

// Meta serves a full meta for a movie or series id. Failures yield an
// empty response body rather than an error status.
func (s *Service) Meta(ctx context.Context, userID, contentType, id string) (*stremio.MetaResponse, CacheDirective) {
	empty := &stremio.MetaResponse{}

	if !catalog.ValidContentType(contentType) {
		return empty, noStoreDirective()
	}

	cfg, err := s.configs.Get(ctx, userID)
	if err != nil {
		return empty, noStoreDirective()
	}
	apiKey, err := s.configs.GetDecryptedAPIKey(cfg)
	if err != nil {
		s.log.Error().Err(err).Str("userId", userID).Msg("failed to decrypt api key")
		return empty, noStoreDirective()
	}

	nativeID, err := s.resolveNativeID(ctx, apiKey, contentType, id)
	if err != nil {
		s.log.Debug().Err(err).Str("id", id).Msg("could not resolve meta id")
		return empty, noStoreDirective()
	}

	opts := meta.Options{
		Language: cfg.Preferences.Language,
		Posters:  meta.PosterServiceFor(cfg.Preferences.PosterService, cfg.Preferences.PosterServiceKey),
	}
	params := url.Values{}
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	if contentType == catalog.ContentTypeMovie {
		params.Set("append_to_response", "credits,videos,release_dates")
		var details tmdb.MovieDetails
		if err := s.client.FetchJSON(ctx, fmt.Sprintf("movie/%d", nativeID), apiKey, params, &details); err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("movie detail fetch failed")
			return empty, noStoreDirective()
		}
		return &stremio.MetaResponse{Meta: s.mapper.FullMovie(ctx, &details, opts)}, metaDirective()
	}

	params.Set("append_to_response", "credits,videos,content_ratings,external_ids")
	var details tmdb.TVDetails
	if err := s.client.FetchJSON(ctx, fmt.Sprintf("tv/%d", nativeID), apiKey, params, &details); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("series detail fetch failed")
		return empty, noStoreDirective()
	}

	full := s.mapper.FullSeries(ctx, &details, opts)
	full.Videos = s.mapper.ExtractEpisodes(ctx, &details, func(ctx context.Context, tvID, seasonNumber int) (*tmdb.SeasonDetails, error) {
		var season tmdb.SeasonDetails
		seasonParams := url.Values{}
		if opts.Language != "" {
			seasonParams.Set("language", opts.Language)
		}
		err := s.client.FetchJSON(ctx, fmt.Sprintf("tv/%d/season/%d", tvID, seasonNumber), apiKey, seasonParams, &season)
		return &season, err
	})

	return &stremio.MetaResponse{Meta: full}, metaDirective()
}

// resolveNativeID maps an addon id to the upstream numeric id. The
// cross-reference form ("tt123"), the native form ("tmdb:123") and the bare
// numeric form ("123") are all accepted.
func (s *Service) resolveNativeID(ctx context.Context, apiKey, contentType, id string) (int, error) {
	if native, ok := strings.CutPrefix(id, "tmdb:"); ok {
		parsed, err := strconv.Atoi(native)
		if err != nil {
			return 0, fmt.Errorf("malformed native id %q", id)
		}
		return parsed, nil
	}

	if parsed, err := strconv.Atoi(id); err == nil && parsed > 0 {
		return parsed, nil
	}

	if !strings.HasPrefix(id, "tt") {
		return 0, fmt.Errorf("unsupported id %q", id)
	}

	params := url.Values{}
	params.Set("external_source", "imdb_id")

	var found tmdb.FindResponse
	if err := s.client.FetchJSONTTL(ctx, "find/"+url.PathEscape(id), apiKey, params, &found, tmdb.ExternalIDsCacheTTL); err != nil {
		return 0, err
	}

	if contentType == catalog.ContentTypeMovie {
		if len(found.MovieResults) > 0 {
			return found.MovieResults[0].ID, nil
		}
	} else if len(found.TVResults) > 0 {
		return found.TVResults[0].ID, nil
	}

	return 0, fmt.Errorf("no %s match for %q", contentType, id)
}

func findCatalog(cfg *models.UserConfiguration, catalogID, contentType string) *models.CatalogDefinition {
	for i := range cfg.Catalogs {
		def := &cfg.Catalogs[i]
		if def.ID == catalogID && def.ContentType == contentType && def.Enabled {
			return def
		}
	}
	return nil
}

func cloneValues(src url.Values) url.Values {
	dst := url.Values{}
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	return dst
}
