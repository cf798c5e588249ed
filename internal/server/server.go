// Package server exposes a character query over HTTP.
//
// It stands in for a scrolling list UI: GET /characters returns what the UI
// would render, and POST /characters/scroll feeds it scroll positions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/metrics"
	"github.com/Sternrassler/rnm-query/pkg/query"
	"github.com/Sternrassler/rnm-query/pkg/trigger"
)

// CharactersKey identifies the character list query in the store.
const CharactersKey = "characters"

// CharacterSource loads characters from the API. *client.Client implements it.
type CharacterSource interface {
	FetchPage(ctx context.Context, page int) ([]character.Character, error)
	GetCharacter(ctx context.Context, id int) (character.Character, error)
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string

	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64

	// RequestTimeout bounds non-streaming handlers.
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodyBytes:    64 << 10,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves one character query from a session store.
type Server struct {
	cfg        Config
	source     CharacterSource
	characters *query.Infinite[character.Character]
	watcher    *trigger.Watcher
	logger     zerolog.Logger

	// Fetches outlive the request that started them.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server. The store is owned by the caller.
func New(source CharacterSource, store *query.Store[character.Character], cfg Config) (*Server, error) {
	if source == nil {
		return nil, fmt.Errorf("character source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("query store is required")
	}

	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	characters, err := store.Infinite(CharactersKey, source.FetchPage, query.Options{PageSize: character.PageSize})
	if err != nil {
		return nil, fmt.Errorf("create characters query: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		source:     source,
		characters: characters,
		watcher:    trigger.NewWatcher(characters),
		logger:     log.With().Str("component", "server").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.getHealth)
	r.Handle("/metrics", metrics.Handler())

	// The event stream stays open, so it is mounted outside the timeout.
	r.Get("/characters/stream", s.streamCharacters)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		r.Get("/characters", s.getCharacters)
		r.Post("/characters", s.postCharacter)
		r.Post("/characters/next", s.postNext)
		r.Post("/characters/scroll", s.postScroll)
		r.Post("/characters/{characterID}/import", s.postImport)
		r.Get("/characters/scroll/stats", s.getScrollStats)
	})

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("Server started")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close cancels fetches started by the server.
func (s *Server) Close() {
	s.cancel()
}
