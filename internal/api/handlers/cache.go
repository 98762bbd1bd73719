// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/models"
)

// CacheHandler exposes response cache maintenance operations.
type CacheHandler struct {
	cache *models.ResponseCacheStore
}

func NewCacheHandler(cache *models.ResponseCacheStore) *CacheHandler {
	return &CacheHandler{
		cache: cache,
	}
}

func (h *CacheHandler) Routes(r chi.Router) {
	r.Get("/stats", h.GetStats)
	r.Delete("/", h.Flush)
}

func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to read cache stats")
		RespondError(w, http.StatusInternalServerError, "Failed to read cache stats")
		return
	}

	RespondJSON(w, http.StatusOK, stats)
}

func (h *CacheHandler) Flush(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.cache.Flush(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to flush response cache")
		RespondError(w, http.StatusInternalServerError, "Failed to flush cache")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
