// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/catalogarr/catalogarr/internal/addon"
	"github.com/catalogarr/catalogarr/internal/api"
	"github.com/catalogarr/catalogarr/internal/buildinfo"
	"github.com/catalogarr/catalogarr/internal/catalog"
	"github.com/catalogarr/catalogarr/internal/config"
	"github.com/catalogarr/catalogarr/internal/database"
	"github.com/catalogarr/catalogarr/internal/genres"
	"github.com/catalogarr/catalogarr/internal/meta"
	"github.com/catalogarr/catalogarr/internal/models"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "catalogarr",
		Short: "A self-hosted Stremio catalog addon backed by TMDB",
		Long: `catalogarr - A self-hosted Stremio addon that serves personalized
movie and series catalogs built from saved TMDB discovery filters.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
		pprofFlag bool
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the addon server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/catalogarr/ or %APPDATA%\\catalogarr\\). For backward compatibility, can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for database and other files (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")
	command.Flags().BoolVar(&pprofFlag, "pprof", false, "enable pprof server on :6060")

	command.Run = func(cmd *cobra.Command, args []string) {
		app := NewApplication(configDir, dataDir, logPath, pprofFlag)
		app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of catalogarr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/catalogarr/config.toml
- Windows: %APPDATA%\catalogarr\config.toml

You can specify either a directory path or a direct file path:
- Directory: catalogarr generate-config --config-dir /path/to/config/
- File: catalogarr generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				defaultDir := config.GetDefaultConfigDir()
				configPath = filepath.Join(defaultDir, "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

type Application struct {
	configDir string
	dataDir   string
	logPath   string
	pprofFlag bool
}

func NewApplication(configDir, dataDir, logPath string, pprofFlag bool) *Application {
	return &Application{
		configDir: configDir,
		dataDir:   dataDir,
		logPath:   logPath,
		pprofFlag: pprofFlag,
	}
}

func (app *Application) runServer() {
	// Initialize configuration
	cfg, err := config.New(app.configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	// Override with CLI flags if provided
	if app.dataDir != "" {
		os.Setenv("CATALOGARR__DATA_DIR", app.dataDir)
		cfg.SetDataDir(app.dataDir)
	}
	if app.logPath != "" {
		os.Setenv("CATALOGARR__LOG_PATH", app.logPath)
		cfg.Config.LogPath = app.logPath
	}

	if app.pprofFlag {
		cfg.Config.PprofEnabled = true
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", buildinfo.Version).Msg("Starting catalogarr")

	// Initialize database
	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Initialize stores
	configStore, err := models.NewUserConfigStore(db, cfg.GetEncryptionKey())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize user config store")
	}
	responseCache := models.NewResponseCacheStore(db)

	// Initialize TMDB client with the shared response cache
	cacheTTL := tmdb.DefaultCacheTTL
	if cfg.Config.TMDBCacheTTLMinutes > 0 {
		cacheTTL = time.Duration(cfg.Config.TMDBCacheTTLMinutes) * time.Minute
	}
	tmdbClient := tmdb.NewClient(responseCache, cacheTTL)

	// The genre table is shared across users, so live refreshes borrow the
	// most recently updated configuration's credential. With no registered
	// users yet the table serves its static fallback.
	genreTable := genres.NewTable(func(ctx context.Context, contentType, language string) ([]tmdb.Genre, error) {
		apiKey, err := configStore.MostRecentAPIKey(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "no credential available for genre refresh")
		}

		endpoint := "genre/movie/list"
		if contentType == catalog.ContentTypeSeries {
			endpoint = "genre/tv/list"
		}

		params := url.Values{}
		if language != "" {
			params.Set("language", language)
		}

		var list tmdb.GenreList
		if err := tmdbClient.FetchJSONTTL(ctx, endpoint, apiKey, params, &list, tmdb.ReferenceCacheTTL); err != nil {
			return nil, err
		}
		return list.Genres, nil
	})

	ratings := meta.NewCinemetaRatings(responseCache)
	mapper := meta.NewMapper(genreTable, ratings, nil)

	addonService := addon.NewService(configStore, tmdbClient, genreTable, mapper, addon.Settings{
		ID:          cfg.Config.AddonID,
		Name:        cfg.Config.AddonName,
		Version:     cfg.Config.AddonVersion,
		Description: "Personalized TMDB catalogs for Stremio",
	})

	// Periodically sweep expired cache entries
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go func() {
		interval := time.Duration(cfg.Config.CacheCleanupMinutes) * time.Minute
		if interval <= 0 {
			interval = 30 * time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				deleted, err := responseCache.CleanupExpired(cleanupCtx)
				if err != nil {
					log.Warn().Err(err).Msg("Response cache cleanup failed")
				} else if deleted > 0 {
					log.Debug().Int64("deleted", deleted).Msg("Swept expired response cache entries")
				}
			}
		}
	}()

	// Start server in goroutine
	httpServer := api.NewServer(&api.Dependencies{
		Config:        cfg,
		Version:       buildinfo.Version,
		AddonService:  addonService,
		ConfigStore:   configStore,
		ResponseCache: responseCache,
		TMDBClient:    tmdbClient,
		GenreTable:    genreTable,
		Mapper:        mapper,
	})

	errorChannel := make(chan error)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
	case err := <-errorChannel:
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	// Start profiling server if enabled
	if cfg.Config.PprofEnabled {
		go func() {
			log.Info().Msg("Starting pprof server on :6060")
			log.Info().Msg("Access profiling at: http://localhost:6060/debug/pprof/")
			if err := http.ListenAndServe(":6060", nil); err != nil {
				log.Error().Err(err).Msg("Profiling server failed")
			}
		}()
	}

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")

		os.Exit(1)
	}

	os.Exit(0)
}
