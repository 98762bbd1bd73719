// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestUserConfigStore(t *testing.T) *UserConfigStore {
	t.Helper()

	key := []byte(strings.Repeat("k", 32))
	store, err := NewUserConfigStore(newTestDB(t), key)
	require.NoError(t, err)

	return store
}

func TestUserConfigStoreCreateAndGet(t *testing.T) {
	store := newTestUserConfigStore(t)
	ctx := context.Background()

	catalogs := []CatalogDefinition{
		{
			ID:          "action-movies",
			Name:        "Action Movies",
			ContentType: catalog.ContentTypeMovie,
			Enabled:     true,
			Filters: catalog.FilterSpec{
				Genres:       []int{28},
				RatingMin:    7,
				VoteCountMin: 200,
				SortBy:       "vote_average.desc",
			},
		},
	}
	prefs := Preferences{Language: "en-US", SearchEnabled: true}

	created, err := store.Create(ctx, "My Config", "tmdb-key-123", catalogs, prefs)
	require.NoError(t, err)
	require.NotEmpty(t, created.UserID)

	got, err := store.Get(ctx, created.UserID)
	require.NoError(t, err)

	assert.Equal(t, "My Config", got.ConfigName)
	require.Len(t, got.Catalogs, 1)
	assert.Equal(t, "action-movies", got.Catalogs[0].ID)
	assert.Equal(t, []int{28}, got.Catalogs[0].Filters.Genres)
	assert.Equal(t, prefs, got.Preferences)

	apiKey, err := store.GetDecryptedAPIKey(got)
	require.NoError(t, err)
	assert.Equal(t, "tmdb-key-123", apiKey)
}

func TestUserConfigStoreGetNotFound(t *testing.T) {
	store := newTestUserConfigStore(t)

	_, err := store.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestUserConfigStoreSaveReplacesWholeDocument(t *testing.T) {
	store := newTestUserConfigStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "cfg", "key", []CatalogDefinition{
		{ID: "a", Name: "A", ContentType: catalog.ContentTypeMovie, Enabled: true},
		{ID: "b", Name: "B", ContentType: catalog.ContentTypeSeries, Enabled: true},
	}, Preferences{})
	require.NoError(t, err)

	// Save with a single catalog replaces the list entirely
	updated, err := store.Save(ctx, created.UserID, "renamed", []CatalogDefinition{
		{ID: "c", Name: "C", ContentType: catalog.ContentTypeMovie, Enabled: false},
	}, Preferences{ShuffleCatalogs: true})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.ConfigName)
	require.Len(t, updated.Catalogs, 1)
	assert.Equal(t, "c", updated.Catalogs[0].ID)
	assert.True(t, updated.Preferences.ShuffleCatalogs)
}

func TestUserConfigStoreOwnership(t *testing.T) {
	store := newTestUserConfigStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "cfg", "owner-key", nil, Preferences{})
	require.NoError(t, err)

	assert.True(t, VerifyOwnership(created, "owner-key"))
	assert.True(t, VerifyOwnership(created, "  owner-key  "), "digest comparison trims whitespace")
	assert.False(t, VerifyOwnership(created, "other-key"))
}

func TestUserConfigMarshalRedactsCredential(t *testing.T) {
	store := newTestUserConfigStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "cfg", "secret-key", nil, Preferences{})
	require.NoError(t, err)

	data, err := json.Marshal(created)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret-key")
	assert.NotContains(t, string(data), created.APIKeyEncrypted)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "********", decoded["apiKey"])
}

func TestUserConfigStoreDelete(t *testing.T) {
	store := newTestUserConfigStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "cfg", "key", nil, Preferences{})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.UserID))

	_, err = store.Get(ctx, created.UserID)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	assert.ErrorIs(t, store.Delete(ctx, created.UserID), ErrConfigNotFound)
}

func TestUserConfigStoreUpdateAPIKey(t *testing.T) {
	store := newTestUserConfigStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "cfg", "old-key", nil, Preferences{})
	require.NoError(t, err)

	require.NoError(t, store.UpdateAPIKey(ctx, created.UserID, "new-key"))

	got, err := store.Get(ctx, created.UserID)
	require.NoError(t, err)

	apiKey, err := store.GetDecryptedAPIKey(got)
	require.NoError(t, err)
	assert.Equal(t, "new-key", apiKey)
	assert.True(t, VerifyOwnership(got, "new-key"))
	assert.False(t, VerifyOwnership(got, "old-key"))
}

func TestUserConfigStoreMostRecentAPIKey(t *testing.T) {
	store := newTestUserConfigStore(t)
	ctx := context.Background()

	_, err := store.MostRecentAPIKey(ctx)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = store.Create(ctx, "cfg", "shared-key", nil, Preferences{})
	require.NoError(t, err)

	key, err := store.MostRecentAPIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shared-key", key)
}

func TestResponseCacheStoreRoundTrip(t *testing.T) {
	store := NewResponseCacheStore(newTestDB(t))
	ctx := context.Background()

	payload := []byte(`{"page":1}`)
	require.NoError(t, store.Store(ctx, "discover/movie?page=1", payload, time.Hour))

	data, ok, err := store.Fetch(ctx, "discover/movie?page=1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, data)

	_, ok, err = store.Fetch(ctx, "missing-key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResponseCacheStoreExpiry(t *testing.T) {
	store := NewResponseCacheStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "short-lived", []byte(`{}`), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Fetch(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must miss")
}

func TestResponseCacheStoreOverwrite(t *testing.T) {
	store := NewResponseCacheStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "key", []byte(`{"v":1}`), time.Hour))
	require.NoError(t, store.Store(ctx, "key", []byte(`{"v":2}`), time.Hour))

	data, ok, err := store.Fetch(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(data))
}
