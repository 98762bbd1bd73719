// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalogarr/catalogarr/internal/catalog"
)

const rpdbBaseURL = "https://api.ratingposterdb.com"

// rpdbPosters generates RatingPosterDB artwork URLs. The service renders
// the item's rating onto the poster; backdrops are out of scope here by
// policy, only posters are substituted.
type rpdbPosters struct {
	key string
}

func (p *rpdbPosters) PosterURL(_ context.Context, imdbID string, tmdbID int, contentType string) (string, bool) {
	if imdbID != "" {
		return fmt.Sprintf("%s/%s/imdb/poster-default/%s.jpg", rpdbBaseURL, p.key, imdbID), true
	}
	if tmdbID > 0 {
		section := "movie"
		if contentType == catalog.ContentTypeSeries {
			section = "series"
		}
		return fmt.Sprintf("%s/%s/tmdb/poster-default/%s-%d.jpg", rpdbBaseURL, p.key, section, tmdbID), true
	}
	return "", false
}

// PosterServiceFor builds the poster provider a user selected in their
// preferences. Unknown services and missing keys disable substitution.
func PosterServiceFor(service, key string) PosterProvider {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(service)) {
	case "rpdb", "ratingposterdb":
		return &rpdbPosters{key: strings.TrimSpace(key)}
	default:
		return nil
	}
}
