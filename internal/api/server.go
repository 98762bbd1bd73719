// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogarr/catalogarr/internal/addon"
	"github.com/catalogarr/catalogarr/internal/api/handlers"
	"github.com/catalogarr/catalogarr/internal/config"
	"github.com/catalogarr/catalogarr/internal/genres"
	"github.com/catalogarr/catalogarr/internal/meta"
	"github.com/catalogarr/catalogarr/internal/models"
	"github.com/catalogarr/catalogarr/internal/tmdb"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	addonService  *addon.Service
	configStore   *models.UserConfigStore
	responseCache *models.ResponseCacheStore
	tmdbClient    *tmdb.Client
	genreTable    *genres.Table
	mapper        *meta.Mapper
}

type Dependencies struct {
	Config        *config.AppConfig
	Version       string
	AddonService  *addon.Service
	ConfigStore   *models.UserConfigStore
	ResponseCache *models.ResponseCacheStore
	TMDBClient    *tmdb.Client
	GenreTable    *genres.Table
	Mapper        *meta.Mapper
}

func NewServer(deps *Dependencies) *Server {
	s := Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:        log.Logger.With().Str("module", "api").Logger(),
		config:        deps.Config,
		version:       deps.Version,
		addonService:  deps.AddonService,
		configStore:   deps.ConfigStore,
		responseCache: deps.ResponseCache,
		tmdbClient:    deps.TMDBClient,
		genreTable:    deps.GenreTable,
		mapper:        deps.Mapper,
	}

	return &s
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msgf("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}
	clickableURL := fmt.Sprintf("http://%s%s", host, s.config.Config.BaseURL)

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Str("base_url", s.config.Config.BaseURL).
		Msgf("Starting addon server - Open: %s", clickableURL)

	s.server.Handler = s.Handler()

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// HTTP compression - catalog payloads compress very well
	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	// CORS must stay permissive; Stremio hosts call from arbitrary origins
	corsMiddleware := cors.New(cors.Options{
		AllowedMethods:  []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:  []string{"Accept", "Content-Type", "X-API-Key"},
		AllowOriginFunc: func(origin string) bool { return true },
		MaxAge:          300,
	})
	r.Use(corsMiddleware.Handler)

	healthHandler := handlers.NewHealthHandler()
	addonHandler := handlers.NewAddonHandler(s.addonService)
	configsHandler := handlers.NewConfigsHandler(s.configStore, s.tmdbClient, s.mapper, s.externalBaseURL())
	referenceHandler := handlers.NewReferenceHandler(s.tmdbClient, s.genreTable)
	cacheHandler := handlers.NewCacheHandler(s.responseCache)

	// Management API
	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		r.Use(middleware.ThrottleBacklog(10, 50, time.Second))

		configsHandler.Routes(r)
		r.Route("/reference", referenceHandler.Routes)
		r.Route("/cache", cacheHandler.Routes)

		r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
			handlers.RespondJSON(w, http.StatusOK, map[string]string{"version": s.version})
		})
	})

	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/healthz/readiness", healthHandler.HandleReady)
	r.Get("/healthz/liveness", healthHandler.HandleLiveness)

	baseURL := s.config.Config.BaseURL
	if baseURL == "" {
		baseURL = "/"
	}

	r.Mount(baseURL+"api", apiRouter)

	// Addon protocol routes live at the base so manifest URLs stay short
	if baseURL != "/" {
		r.Route(strings.TrimSuffix(baseURL, "/"), func(sub chi.Router) {
			addonHandler.Routes(sub)
		})
	} else {
		addonHandler.Routes(r)
	}

	return r
}

// externalBaseURL is the address users install manifests from.
func (s *Server) externalBaseURL() string {
	base := strings.TrimSuffix(s.config.Config.BaseURL, "/")
	return fmt.Sprintf("http://%s:%d%s", s.config.Config.Host, s.config.Config.Port, base)
}
