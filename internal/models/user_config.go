// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/dbinterface"
	"github.com/catalogarr/catalogarr/internal/domain"
)

var (
	ErrConfigNotFound = errors.New("user config not found")
	ErrAccessDenied   = errors.New("credential does not own this config")
)

// CatalogDefinition is one saved filter set exposed as an addon catalog.
// GenreNames remembers the id→name association of the stored genre ids so
// the manifest can still label them when the live table loses an id; it is
// repaired asynchronously during manifest generation.
type CatalogDefinition struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ContentType string             `json:"contentType"`
	Enabled     bool               `json:"enabled"`
	Filters     catalog.FilterSpec `json:"filters"`
	GenreNames  map[int]string     `json:"genreNames,omitempty"`
}

// Preferences holds per-user addon behavior settings.
type Preferences struct {
	Language         string `json:"language,omitempty"`
	PosterService    string `json:"posterService,omitempty"`
	PosterServiceKey string `json:"posterServiceKey,omitempty"`
	ShuffleCatalogs  bool   `json:"shuffleCatalogs,omitempty"`
	SearchEnabled    bool   `json:"searchEnabled"`
}

// UserConfiguration is the aggregate root persisted per user.
// The TMDB API key is stored encrypted and never serialized back out.
type UserConfiguration struct {
	UserID          string              `json:"userId"`
	ConfigName      string              `json:"configName"`
	Catalogs        []CatalogDefinition `json:"catalogs"`
	Preferences     Preferences         `json:"preferences"`
	APIKeyEncrypted string              `json:"-"`
	APIKeyDigest    string              `json:"-"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func (c UserConfiguration) MarshalJSON() ([]byte, error) {
	// Redact the credential; the UI only ever needs to know one is set
	return json.Marshal(&struct {
		UserID      string              `json:"userId"`
		ConfigName  string              `json:"configName"`
		Catalogs    []CatalogDefinition `json:"catalogs"`
		Preferences Preferences         `json:"preferences"`
		APIKey      string              `json:"apiKey,omitempty"`
		CreatedAt   time.Time           `json:"createdAt"`
		UpdatedAt   time.Time           `json:"updatedAt"`
	}{
		UserID:      c.UserID,
		ConfigName:  c.ConfigName,
		Catalogs:    c.Catalogs,
		Preferences: c.Preferences,
		APIKey:      domain.RedactString(c.APIKeyEncrypted),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	})
}

// configDocument is the JSON stored in the document column.
type configDocument struct {
	ConfigName  string              `json:"configName"`
	Catalogs    []CatalogDefinition `json:"catalogs"`
	Preferences Preferences         `json:"preferences"`
}

// UserConfigStore persists user configurations with encrypted credentials.
type UserConfigStore struct {
	db            dbinterface.Querier
	encryptionKey []byte
}

func NewUserConfigStore(db dbinterface.Querier, encryptionKey []byte) (*UserConfigStore, error) {
	if len(encryptionKey) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}

	return &UserConfigStore{
		db:            db,
		encryptionKey: encryptionKey,
	}, nil
}

// encrypt encrypts a string using AES-GCM
func (s *UserConfigStore) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a string encrypted with encrypt
func (s *UserConfigStore) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("malformed ciphertext")
	}

	nonce, ciphertextBytes := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// DigestAPIKey derives the non-reversible ownership identifier for a credential.
func DigestAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(apiKey)))
	return hex.EncodeToString(sum[:])
}

func generateUserID() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate user id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create stores a new configuration owned by the provided credential.
func (s *UserConfigStore) Create(ctx context.Context, configName, apiKey string, catalogs []CatalogDefinition, prefs Preferences) (*UserConfiguration, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("api key cannot be empty")
	}

	userID, err := generateUserID()
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	if catalogs == nil {
		catalogs = []CatalogDefinition{}
	}
	document, err := json.Marshal(configDocument{
		ConfigName:  configName,
		Catalogs:    catalogs,
		Preferences: prefs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode config document: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_configs (user_id, config_name, api_key_encrypted, api_key_digest, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		userID,
		configName,
		encrypted,
		DigestAPIKey(apiKey),
		string(document),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user config: %w", err)
	}

	return s.Get(ctx, userID)
}

// Get loads a configuration by user id.
func (s *UserConfigStore) Get(ctx context.Context, userID string) (*UserConfiguration, error) {
	const query = `
		SELECT user_id, config_name, api_key_encrypted, api_key_digest, document, created_at, updated_at
		FROM user_configs
		WHERE user_id = ?
	`

	var (
		id        string
		name      string
		encrypted string
		digest    string
		document  string
		createdAt time.Time
		updatedAt time.Time
	)

	err := s.db.QueryRowContext(ctx, query, userID).Scan(&id, &name, &encrypted, &digest, &document, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	var doc configDocument
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode config document: %w", err)
	}

	cfg := &UserConfiguration{
		UserID:          id,
		ConfigName:      doc.ConfigName,
		Catalogs:        doc.Catalogs,
		Preferences:     doc.Preferences,
		APIKeyEncrypted: encrypted,
		APIKeyDigest:    digest,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}
	if cfg.ConfigName == "" {
		cfg.ConfigName = name
	}
	if cfg.Catalogs == nil {
		cfg.Catalogs = []CatalogDefinition{}
	}

	return cfg, nil
}

// Save replaces the whole catalog list and preferences in one atomic write.
func (s *UserConfigStore) Save(ctx context.Context, userID, configName string, catalogs []CatalogDefinition, prefs Preferences) (*UserConfiguration, error) {
	if catalogs == nil {
		catalogs = []CatalogDefinition{}
	}
	document, err := json.Marshal(configDocument{
		ConfigName:  configName,
		Catalogs:    catalogs,
		Preferences: prefs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode config document: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE user_configs
		SET config_name = ?, document = ?, updated_at = ?
		WHERE user_id = ?
	`,
		configName,
		string(document),
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrConfigNotFound
	}

	return s.Get(ctx, userID)
}

// UpdateAPIKey replaces the stored credential and its ownership digest.
func (s *UserConfigStore) UpdateAPIKey(ctx context.Context, userID, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("api key cannot be empty")
	}

	encrypted, err := s.encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE user_configs
		SET api_key_encrypted = ?, api_key_digest = ?, updated_at = ?
		WHERE user_id = ?
	`,
		encrypted,
		DigestAPIKey(apiKey),
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConfigNotFound
	}

	return nil
}

// Delete removes a configuration.
func (s *UserConfigStore) Delete(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_configs WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConfigNotFound
	}

	return nil
}

// GetDecryptedAPIKey returns the plaintext credential for upstream calls.
func (s *UserConfigStore) GetDecryptedAPIKey(cfg *UserConfiguration) (string, error) {
	return s.decrypt(cfg.APIKeyEncrypted)
}

// MostRecentAPIKey returns the decrypted credential of the most recently
// updated configuration. Shared lookups like the genre table use it when
// no per-user credential is in scope.
func (s *UserConfigStore) MostRecentAPIKey(ctx context.Context) (string, error) {
	const query = `
		SELECT api_key_encrypted
		FROM user_configs
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var encrypted string
	err := s.db.QueryRowContext(ctx, query).Scan(&encrypted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrConfigNotFound
		}
		return "", fmt.Errorf("failed to load newest user config: %w", err)
	}

	return s.decrypt(encrypted)
}

// VerifyOwnership checks a presented credential against the stored digest.
func VerifyOwnership(cfg *UserConfiguration, presentedKey string) bool {
	presented := DigestAPIKey(presentedKey)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.APIKeyDigest)) == 1
}
