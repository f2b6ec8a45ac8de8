// ABOUTME: Server assembly: builds the store, limiter, LLM gateway, engine, and dispatcher from config.
// ABOUTME: Runs the HTTP frontend and the session retention sweeper until the context is cancelled.

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studybuddy/gateway/internal/config"
	"github.com/studybuddy/gateway/internal/dedupe"
	"github.com/studybuddy/gateway/internal/dispatch"
	"github.com/studybuddy/gateway/internal/engine"
	"github.com/studybuddy/gateway/internal/llm"
	"github.com/studybuddy/gateway/internal/ratelimit"
	"github.com/studybuddy/gateway/internal/session"
)

// Server owns every long-lived component of the assistant.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	store      session.Store
	limiter    ratelimit.Limiter
	seen       *dedupe.Cache
	dispatcher *dispatch.Dispatcher
}

// New assembles a server from configuration. Close must be called on
// the returned server unless Run is used, which closes on shutdown.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	limiter, err := buildLimiter(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	slots, err := buildProviders(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	gateway := llm.NewGateway(slots, cfg.LLM.MaxAttempts, logger)
	eng := engine.New(gateway, engine.Config{
		QuizSize:       cfg.Study.QuizSize,
		FlashcardCount: cfg.Study.FlashcardCount,
		HistoryLimit:   cfg.Study.HistoryLimit,
		ContextTurns:   cfg.Study.ContextTurns,
	}, logger)

	seen := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxEntries)

	return &Server{
		cfg:        cfg,
		logger:     logger.With("component", "server"),
		store:      store,
		limiter:    limiter,
		seen:       seen,
		dispatcher: dispatch.New(eng, store, limiter, seen, logger),
	}, nil
}

func buildStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return session.NewSQLiteStore(cfg.Store.Path)
	case "memory", "":
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildLimiter(cfg *config.Config) (ratelimit.Limiter, error) {
	rl := cfg.RateLimit
	if rl.MaxEvents <= 0 {
		return nil, nil
	}
	switch rl.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     rl.RedisAddr,
			Password: rl.RedisPassword,
			DB:       rl.RedisDB,
		})
		return ratelimit.NewRedis(client, rl.MaxEvents, rl.Window), nil
	case "memory", "":
		return ratelimit.NewWindow(rl.MaxEvents, rl.Window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", rl.Backend)
	}
}

func buildProviders(cfg *config.Config) ([]llm.Slot, error) {
	slots := make([]llm.Slot, 0, len(cfg.LLM.Providers))
	for _, pc := range cfg.LLM.Providers {
		var provider llm.Provider
		switch pc.Kind {
		case "gemini":
			provider = llm.NewGemini(pc.Name, pc.APIKey, pc.BaseURL, pc.Model)
		case "openai":
			provider = llm.NewOpenAICompat(pc.Name, pc.APIKey, pc.BaseURL, pc.Model)
		default:
			return nil, fmt.Errorf("provider %s: unknown kind %q", pc.Name, pc.Kind)
		}
		slots = append(slots, llm.Slot{Provider: provider, Timeout: pc.Timeout})
	}
	return slots, nil
}

// Dispatcher exposes the event pipeline, mainly for tests and for
// embedding the server behind a custom transport.
func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Run serves HTTP until ctx is cancelled, then shuts down cleanly.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	httpSrv := &http.Server{
		Addr:    s.cfg.Server.HTTPAddr,
		Handler: s.routes(),
	}

	if sqlStore, ok := s.store.(*session.SQLiteStore); ok && s.cfg.Store.Retention > 0 {
		go s.retentionLoop(ctx, sqlStore)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", "addr", s.cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// retentionLoop periodically evicts sessions idle past the retention
// window. Eviction is transparent: the next event gets a fresh session.
func (s *Server) retentionLoop(ctx context.Context, store *session.SQLiteStore) {
	// Sweep a few times per retention period; hourly at most.
	interval := s.cfg.Store.Retention / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteIdle(ctx, s.cfg.Store.Retention)
			if err != nil {
				s.logger.Warn("retention sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// Close releases every component. Safe after a partial Run.
func (s *Server) Close() {
	s.seen.Close()
	if closer, ok := s.limiter.(interface{ Close() }); ok {
		closer.Close()
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing store", "error", err)
	}
}
