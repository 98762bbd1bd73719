// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package genres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

func TestTableStaticFallback(t *testing.T) {
	table := NewTable(nil)
	ctx := context.Background()

	name, ok := table.Resolve(ctx, catalog.ContentTypeMovie, "", 28)
	require.True(t, ok)
	assert.Equal(t, "Action", name)

	name, ok = table.Resolve(ctx, catalog.ContentTypeSeries, "", 10765)
	require.True(t, ok)
	assert.Equal(t, "Sci-Fi & Fantasy", name)

	_, ok = table.Resolve(ctx, catalog.ContentTypeMovie, "", 424242)
	assert.False(t, ok)
}

func TestTableLazyPopulateAndCache(t *testing.T) {
	var calls int
	fetch := func(_ context.Context, contentType, language string) ([]tmdb.Genre, error) {
		calls++
		return []tmdb.Genre{{ID: 28, Name: "Azione"}}, nil
	}

	table := NewTable(fetch)
	ctx := context.Background()

	name, ok := table.Resolve(ctx, catalog.ContentTypeMovie, "it-IT", 28)
	require.True(t, ok)
	assert.Equal(t, "Azione", name)

	table.Resolve(ctx, catalog.ContentTypeMovie, "it-IT", 28)
	assert.Equal(t, 1, calls, "second lookup must hit the cached table")
}

func TestTableFetchFailureFallsBackToStatic(t *testing.T) {
	fetch := func(_ context.Context, _, _ string) ([]tmdb.Genre, error) {
		return nil, errors.New("upstream down")
	}

	table := NewTable(fetch)

	name, ok := table.Resolve(context.Background(), catalog.ContentTypeMovie, "en-US", 35)
	require.True(t, ok)
	assert.Equal(t, "Comedy", name)
}

func TestTableRefreshReplacesEntries(t *testing.T) {
	current := []tmdb.Genre{{ID: 1, Name: "Old"}}
	fetch := func(_ context.Context, _, _ string) ([]tmdb.Genre, error) {
		return current, nil
	}

	table := NewTable(fetch)
	ctx := context.Background()

	got := table.Get(ctx, catalog.ContentTypeMovie, "en-US")
	require.Equal(t, "Old", got[0].Name)

	current = []tmdb.Genre{{ID: 1, Name: "New"}}
	refreshed, err := table.Refresh(ctx, catalog.ContentTypeMovie, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "New", refreshed[0].Name)

	got = table.Get(ctx, catalog.ContentTypeMovie, "en-US")
	assert.Equal(t, "New", got[0].Name)
}

func TestResolveNames(t *testing.T) {
	table := NewTable(nil)
	ctx := context.Background()

	tests := []struct {
		name         string
		names        []string
		wantIDs      []int
		wantUnmapped []string
	}{
		{
			name:    "exact_names_in_order",
			names:   []string{"Action", "Comedy"},
			wantIDs: []int{28, 35},
		},
		{
			name:    "case_insensitive",
			names:   []string{"aCtIoN"},
			wantIDs: []int{28},
		},
		{
			name:    "fuzzy_variant",
			names:   []string{"Science-Fiction"},
			wantIDs: []int{878},
		},
		{
			name:         "unmappable_reported",
			names:        []string{"Action", "Totally Made Up Genre 9000"},
			wantIDs:      []int{28},
			wantUnmapped: []string{"Totally Made Up Genre 9000"},
		},
		{
			name:    "blank_entries_skipped",
			names:   []string{"", "  ", "Drama"},
			wantIDs: []int{18},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ids, unmapped := table.ResolveNames(ctx, catalog.ContentTypeMovie, "", tt.names)
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantUnmapped, unmapped)
		})
	}
}
