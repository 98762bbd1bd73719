// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package meta

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/catalogarr/catalogarr/internal/stremio"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

const (
	// maxSeasons bounds how many seasons are fetched for one series.
	maxSeasons = 50
	// seasonFetchConcurrency bounds parallel season detail requests.
	seasonFetchConcurrency = 8
)

// SeasonFetcher loads one season's episode list.
type SeasonFetcher func(ctx context.Context, tvID, seasonNumber int) (*tmdb.SeasonDetails, error)

// ExtractEpisodes fetches episode lists for every regular season and maps
// them to addon videos. Specials (season 0) are skipped. Video ids carry
// the cross-reference id when the series has one, the native id otherwise.
// A failed season is dropped rather than failing the whole meta.
func (m *Mapper) ExtractEpisodes(ctx context.Context, details *tmdb.TVDetails, fetch SeasonFetcher) []stremio.Video {
	if fetch == nil {
		return nil
	}

	var seasons []int
	for _, s := range details.Seasons {
		if s.SeasonNumber < 1 {
			continue
		}
		seasons = append(seasons, s.SeasonNumber)
		if len(seasons) >= maxSeasons {
			break
		}
	}
	if len(seasons) == 0 {
		return nil
	}

	idPrefix := episodeIDPrefix(details)

	results := make([][]stremio.Video, len(seasons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seasonFetchConcurrency)

	for i, seasonNumber := range seasons {
		i, seasonNumber := i, seasonNumber
		g.Go(func() error {
			season, err := fetch(gctx, details.ID, seasonNumber)
			if err != nil {
				m.log.Debug().Err(err).Int("tvId", details.ID).Int("season", seasonNumber).Msg("season fetch failed")
				return nil
			}
			results[i] = mapSeason(season, idPrefix)
			return nil
		})
	}
	_ = g.Wait()

	var videos []stremio.Video
	for _, episodes := range results {
		videos = append(videos, episodes...)
	}

	sort.SliceStable(videos, func(i, j int) bool {
		if videos[i].Season != videos[j].Season {
			return videos[i].Season < videos[j].Season
		}
		return videos[i].Episode < videos[j].Episode
	})

	return videos
}

func episodeIDPrefix(details *tmdb.TVDetails) string {
	if details.ExternalIDs.IMDBID != "" {
		return details.ExternalIDs.IMDBID
	}
	return fmt.Sprintf("tmdb:%d", details.ID)
}

func mapSeason(season *tmdb.SeasonDetails, idPrefix string) []stremio.Video {
	videos := make([]stremio.Video, 0, len(season.Episodes))
	for _, ep := range season.Episodes {
		video := stremio.Video{
			ID:       fmt.Sprintf("%s:%d:%d", idPrefix, ep.SeasonNumber, ep.EpisodeNumber),
			Title:    ep.Name,
			Season:   ep.SeasonNumber,
			Episode:  ep.EpisodeNumber,
			Released: ep.AirDate,
			Overview: ep.Overview,
		}
		if ep.StillPath != "" {
			video.Thumbnail = posterBaseURL + ep.StillPath
		}
		videos = append(videos, video)
	}
	return videos
}
