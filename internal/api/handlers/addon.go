// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/catalogarr/catalogarr/internal/addon"
	"github.com/catalogarr/catalogarr/internal/stremio"
)

// AddonHandler serves the Stremio addon protocol. These endpoints always
// answer 200 with a valid payload; hosts uninstall addons that error.
type AddonHandler struct {
	service *addon.Service
}

func NewAddonHandler(service *addon.Service) *AddonHandler {
	return &AddonHandler{
		service: service,
	}
}

func (h *AddonHandler) Routes(r chi.Router) {
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/manifest.json", h.GetManifest)
		r.Get("/catalog/{contentType}/{catalogID}", h.GetCatalog)
		r.Get("/catalog/{contentType}/{catalogID}/{extra}", h.GetCatalog)
		r.Get("/meta/{contentType}/{metaID}", h.GetMeta)
		// some hosts append an extra segment to meta URLs; it carries
		// nothing we use but must not 404
		r.Get("/meta/{contentType}/{metaID}/{extra}", h.GetMeta)
	})
}

func (h *AddonHandler) GetManifest(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	manifest, directive := h.service.Manifest(r.Context(), userID)

	w.Header().Set("Cache-Control", directive.Header())
	RespondJSON(w, http.StatusOK, manifest)
}

func (h *AddonHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	contentType := chi.URLParam(r, "contentType")
	catalogID := trimJSONSuffix(chi.URLParam(r, "catalogID"))
	extra := stremio.DecodeExtra(chi.URLParam(r, "extra"))

	resp, directive := h.service.Catalog(r.Context(), userID, contentType, catalogID, extra)

	w.Header().Set("Cache-Control", directive.Header())
	RespondJSON(w, http.StatusOK, resp)
}

func (h *AddonHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	contentType := chi.URLParam(r, "contentType")
	metaID := trimJSONSuffix(chi.URLParam(r, "metaID"))

	resp, directive := h.service.Meta(r.Context(), userID, contentType, metaID)

	w.Header().Set("Cache-Control", directive.Header())
	RespondJSON(w, http.StatusOK, resp)
}

func trimJSONSuffix(segment string) string {
	return strings.TrimSuffix(segment, ".json")
}
