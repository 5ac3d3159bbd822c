// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/assetservice"
	"github.com/starford/othala/internal/authz"
	"github.com/starford/othala/internal/catalog"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/metrics"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/store"
)

// backend is the opened storage plus the service built on it.
type backend struct {
	store *store.DB
	index *index.DB
	svc   *assetservice.Service
}

func (b *backend) Close() {
	_ = b.index.Close()
	_ = b.store.Close()
}

func openBackend(cfg *Config, logger *slog.Logger, opts ...assetservice.Option) (*backend, error) {
	st, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	idx, err := index.Open(cfg.Index.Path)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}
	opts = append([]assetservice.Option{
		assetservice.WithGroupedClauses(cfg.Search.GroupClauses),
		assetservice.WithSessions(cfg.Search.SessionSize, cfg.Search.SessionTTL),
	}, opts...)
	return &backend{store: st, index: idx, svc: assetservice.New(st, idx, logger, opts...)}, nil
}

func newLogger(app *application) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func authConfig(cfg AuthConfig) (api.AuthConfig, error) {
	ac := api.AuthConfig{Mode: cfg.Mode, Token: cfg.Token, DefaultUser: cfg.DefaultUser}
	if cfg.Mode == AuthModeJWT {
		v, err := authz.NewTokenVerifier(cfg.Secret, cfg.Issuer)
		if err != nil {
			return ac, err
		}
		ac.Verifier = v
	}
	return ac, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(app)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("group_clauses", cfg.Search.GroupClauses),
		slog.String("log_level", cfg.App.LogLevel.String()))

	m := metrics.New()
	broker := sse.NewBroker(cfg.Events.FacetsThrottle, m.ObserveEvent)
	defer broker.Close()

	be, err := openBackend(cfg, logger,
		assetservice.WithPublisher(broker),
		assetservice.WithObserver(m),
		assetservice.WithBuildObserver(m),
	)
	if err != nil {
		return err
	}
	defer be.Close()

	if cfg.Index.ReindexOnStart {
		if err := be.svc.ReindexAll(ctx); err != nil {
			logger.Warn("initial reindex failed", slog.String("error", err.Error()))
		}
	}

	auth, err := authConfig(cfg.Auth)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	apiRouter := api.NewRouter(be.svc, auth, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := be.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           corsHandler.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Catalog.Enabled() {
		fs, err := catalog.NewFS(cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("init catalog: %w", err)
		}
		syncer := catalog.NewSyncer(fs, be.svc, cfg.Catalog.TeamID, logger)
		g.Go(func() error {
			if !cfg.Catalog.Watch {
				_, err := syncer.Sync(gCtx)
				if err != nil {
					logger.Warn("catalog: sync failed", slog.String("error", err.Error()))
				}
				return nil
			}
			if err := catalog.Watch(gCtx, syncer, cfg.Catalog.Debounce, logger, nil); err != nil {
				logger.Error("catalog: watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP protocol on stdin/stdout until the client
// disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	if err := cfg.MCP.Validate(); err != nil {
		return fmt.Errorf("mcp config: %w", err)
	}
	logger := newLogger(app)

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	logger.Info("MCP server starting",
		slog.String("user_id", cfg.MCP.UserID),
		slog.String("team_id", cfg.MCP.TeamID))
	return mcpserver.New(be.svc, cfg.MCP.UserID, cfg.MCP.TeamID, app.version).ServeStdio()
}

// IssueToken signs a bearer JWT for userID with the configured secret.
func IssueToken(cfg *Config, userID string, ttl time.Duration) (string, error) {
	if cfg.Auth.Secret == "" {
		return "", fmt.Errorf("auth.secret is required to issue tokens")
	}
	v, err := authz.NewTokenVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return "", err
	}
	return v.Issue(userID, ttl)
}
