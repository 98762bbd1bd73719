// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/meta"
	"github.com/catalogarr/catalogarr/internal/models"
	"github.com/catalogarr/catalogarr/internal/stremio"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

const apiKeyHeader = "X-API-Key"

// ConfigsHandler manages user configurations. Unlike the addon endpoints,
// these return real error payloads and status codes.
type ConfigsHandler struct {
	store   *models.UserConfigStore
	client  *tmdb.Client
	mapper  *meta.Mapper
	baseURL string
}

func NewConfigsHandler(store *models.UserConfigStore, client *tmdb.Client, mapper *meta.Mapper, baseURL string) *ConfigsHandler {
	return &ConfigsHandler{
		store:   store,
		client:  client,
		mapper:  mapper,
		baseURL: baseURL,
	}
}

func (h *ConfigsHandler) Routes(r chi.Router) {
	r.Post("/validate-key", h.ValidateKey)
	r.Post("/configs", h.Create)

	r.Route("/configs/{userID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Put("/api-key", h.UpdateAPIKey)
		r.Post("/preview", h.Preview)
	})
}

type validateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type configRequest struct {
	ConfigName  string                     `json:"configName"`
	APIKey      string                     `json:"apiKey"`
	Catalogs    []models.CatalogDefinition `json:"catalogs"`
	Preferences models.Preferences         `json:"preferences"`
}

type configResponse struct {
	Config      *models.UserConfiguration `json:"config"`
	ManifestURL string                    `json:"manifestUrl"`
}

// validateUpstreamKey checks a credential against the upstream without
// caching the probe.
func (h *ConfigsHandler) validateUpstreamKey(ctx context.Context, apiKey string) error {
	var out map[string]any
	return h.client.FetchJSONTTL(ctx, "configuration", apiKey, nil, &out, 0)
}

func (h *ConfigsHandler) manifestURL(userID string) string {
	base := strings.TrimSuffix(h.baseURL, "/")
	return fmt.Sprintf("%s/%s/manifest.json", base, userID)
}

// ValidateKey checks a TMDB API key before the user commits to it.
func (h *ConfigsHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		RespondError(w, http.StatusBadRequest, "API key is required")
		return
	}

	if err := h.validateUpstreamKey(r.Context(), req.APIKey); err != nil {
		var statusErr *tmdb.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			RespondError(w, http.StatusUnauthorized, "API key was rejected by TMDB")
			return
		}
		log.Error().Err(err).Msg("api key validation failed")
		RespondError(w, http.StatusBadGateway, "Could not reach TMDB to validate the key")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *ConfigsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		RespondError(w, http.StatusBadRequest, "API key is required")
		return
	}
	if err := validateCatalogs(req.Catalogs); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validateUpstreamKey(r.Context(), req.APIKey); err != nil {
		var statusErr *tmdb.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			RespondError(w, http.StatusUnauthorized, "API key was rejected by TMDB")
			return
		}
		log.Error().Err(err).Msg("api key validation failed during create")
		RespondError(w, http.StatusBadGateway, "Could not reach TMDB to validate the key")
		return
	}

	cfg, err := h.store.Create(r.Context(), req.ConfigName, req.APIKey, req.Catalogs, req.Preferences)
	if err != nil {
		log.Error().Err(err).Msg("failed to create user config")
		RespondError(w, http.StatusInternalServerError, "Failed to create configuration")
		return
	}

	RespondJSON(w, http.StatusCreated, configResponse{Config: cfg, ManifestURL: h.manifestURL(cfg.UserID)})
}

// authorize loads a config and checks the presented credential against it.
func (h *ConfigsHandler) authorize(r *http.Request) (*models.UserConfiguration, int, string) {
	userID := chi.URLParam(r, "userID")

	cfg, err := h.store.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrConfigNotFound) {
			return nil, http.StatusNotFound, "Configuration not found"
		}
		log.Error().Err(err).Str("userId", userID).Msg("failed to load user config")
		return nil, http.StatusInternalServerError, "Failed to load configuration"
	}

	presented := r.Header.Get(apiKeyHeader)
	if presented == "" || !models.VerifyOwnership(cfg, presented) {
		return nil, http.StatusForbidden, "API key does not own this configuration"
	}

	return cfg, 0, ""
}

func (h *ConfigsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, status, msg := h.authorize(r)
	if cfg == nil {
		RespondError(w, status, msg)
		return
	}

	RespondJSON(w, http.StatusOK, configResponse{Config: cfg, ManifestURL: h.manifestURL(cfg.UserID)})
}

func (h *ConfigsHandler) Update(w http.ResponseWriter, r *http.Request) {
	cfg, status, msg := h.authorize(r)
	if cfg == nil {
		RespondError(w, status, msg)
		return
	}

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := validateCatalogs(req.Catalogs); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.store.Save(r.Context(), cfg.UserID, req.ConfigName, req.Catalogs, req.Preferences)
	if err != nil {
		log.Error().Err(err).Str("userId", cfg.UserID).Msg("failed to update user config")
		RespondError(w, http.StatusInternalServerError, "Failed to update configuration")
		return
	}

	RespondJSON(w, http.StatusOK, configResponse{Config: updated, ManifestURL: h.manifestURL(updated.UserID)})
}

func (h *ConfigsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cfg, status, msg := h.authorize(r)
	if cfg == nil {
		RespondError(w, status, msg)
		return
	}

	if err := h.store.Delete(r.Context(), cfg.UserID); err != nil {
		log.Error().Err(err).Str("userId", cfg.UserID).Msg("failed to delete user config")
		RespondError(w, http.StatusInternalServerError, "Failed to delete configuration")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "Configuration deleted"})
}

func (h *ConfigsHandler) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	cfg, status, msg := h.authorize(r)
	if cfg == nil {
		RespondError(w, status, msg)
		return
	}

	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		RespondError(w, http.StatusBadRequest, "API key is required")
		return
	}

	if err := h.validateUpstreamKey(r.Context(), req.APIKey); err != nil {
		RespondError(w, http.StatusUnauthorized, "New API key was rejected by TMDB")
		return
	}

	if err := h.store.UpdateAPIKey(r.Context(), cfg.UserID, req.APIKey); err != nil {
		log.Error().Err(err).Str("userId", cfg.UserID).Msg("failed to rotate api key")
		RespondError(w, http.StatusInternalServerError, "Failed to update API key")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "API key updated"})
}

type previewRequest struct {
	ContentType string             `json:"contentType"`
	Filters     catalog.FilterSpec `json:"filters"`
}

// Preview compiles a filter spec and returns the first page of results
// without persisting anything. Used by the configuration UI.
func (h *ConfigsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	cfg, status, msg := h.authorize(r)
	if cfg == nil {
		RespondError(w, status, msg)
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !catalog.ValidContentType(req.ContentType) {
		RespondError(w, http.StatusBadRequest, "Unsupported content type")
		return
	}

	q, err := catalog.Compile(&req.Filters, req.ContentType, catalog.CompileOptions{
		Language: cfg.Preferences.Language,
	})
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	apiKey, err := h.store.GetDecryptedAPIKey(cfg)
	if err != nil {
		log.Error().Err(err).Str("userId", cfg.UserID).Msg("failed to decrypt api key")
		RespondError(w, http.StatusInternalServerError, "Failed to read stored API key")
		return
	}

	var page tmdb.Page
	if err := h.client.FetchJSON(r.Context(), q.Endpoint, apiKey, q.Params, &page); err != nil {
		log.Warn().Err(err).Msg("preview fetch failed")
		RespondError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	opts := meta.Options{Language: cfg.Preferences.Language}
	metas := make([]stremio.Meta, 0, len(page.Results))
	for i := range page.Results {
		item := &page.Results[i]
		if !q.AllowsGenres(item.GenreIDs) {
			continue
		}
		metas = append(metas, h.mapper.ToPreview(r.Context(), item, req.ContentType, "", opts))
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"metas":        metas,
		"totalResults": page.TotalResults,
	})
}

func validateCatalogs(catalogs []models.CatalogDefinition) error {
	seen := make(map[string]struct{}, len(catalogs))
	for _, def := range catalogs {
		if strings.TrimSpace(def.ID) == "" {
			return errors.New("catalog id cannot be empty")
		}
		if strings.TrimSpace(def.Name) == "" {
			return fmt.Errorf("catalog %q needs a name", def.ID)
		}
		if !catalog.ValidContentType(def.ContentType) {
			return fmt.Errorf("catalog %q has unsupported content type %q", def.ID, def.ContentType)
		}
		if _, dup := seen[def.ID]; dup {
			return fmt.Errorf("catalog id %q is duplicated", def.ID)
		}
		seen[def.ID] = struct{}{}
	}
	return nil
}
