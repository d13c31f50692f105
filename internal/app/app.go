// Package app wires the configured storage, use case and HTTP server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/slug-shortener/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/slug-shortener/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/slug-shortener/internal/adapter/repository/rediscache"
	"github.com/vadimbarashkov/slug-shortener/internal/config"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
	"github.com/vadimbarashkov/slug-shortener/internal/usecase"
	"github.com/vadimbarashkov/slug-shortener/migrations"
	"golang.org/x/sync/errgroup"

	deliveryhttp "github.com/vadimbarashkov/slug-shortener/internal/adapter/delivery/http"
	pgpkg "github.com/vadimbarashkov/slug-shortener/pkg/postgres"
	redispkg "github.com/vadimbarashkov/slug-shortener/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

// NewLogger creates the request and application logger for cfg.
func NewLogger(cfg *config.Config) (*httplog.Logger, error) {
	const op = "app.NewLogger"

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("%s: invalid log level: %w", op, err)
	}

	return httplog.NewLogger("slug-shortener", httplog.Options{
		JSON:             cfg.Env == config.EnvProd,
		LogLevel:         level,
		Concise:          cfg.Env == config.EnvDev,
		RequestHeaders:   cfg.Env != config.EnvProd,
		MessageFieldName: "message",
		Tags: map[string]string{
			"env": cfg.Env,
		},
		QuietDownRoutes: []string{"/api/ping"},
		QuietDownPeriod: 10 * time.Second,
	}), nil
}

type urlRepository interface {
	FindBySlug(ctx context.Context, slug string) (*entity.URL, error)
	FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error)
	CreateUnique(ctx context.Context, slug, originalURL string, expiresAt *time.Time) (*entity.URL, error)
	IncrementHits(ctx context.Context, slug string) error
	Stats(ctx context.Context, slug string) (*entity.URLStats, error)
}

// newURLRepository opens the configured storage. The returned closer releases
// every connection it opened.
func newURLRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (urlRepository, io.Closer, error) {
	const op = "app.newURLRepository"

	var (
		repo    urlRepository
		closers closerGroup
	)

	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, urls are lost on restart")
		repo = memory.NewURLRepository()
	default:
		db, err := pgpkg.New(
			ctx,
			cfg.Postgres.DSN(),
			pgpkg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			pgpkg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			pgpkg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			pgpkg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}
		closers = append(closers, db)

		if err := pgpkg.RunMigrations(migrations.FS, cfg.Postgres.DSN()); err != nil {
			closers.Close()
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		repo = postgres.NewURLRepository(db)
	}

	if cfg.Redis.Enabled {
		client, err := redispkg.New(
			ctx,
			cfg.Redis.Addr,
			redispkg.WithPassword(cfg.Redis.Password),
			redispkg.WithDB(cfg.Redis.DB),
			redispkg.WithPoolSize(cfg.Redis.PoolSize),
		)
		if err != nil {
			closers.Close()
			return nil, nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}
		closers = append(closers, client)

		repo = rediscache.NewURLRepository(repo, client, cfg.Redis.TTL, logger)
	}

	return repo, closers, nil
}

type closerGroup []io.Closer

func (g closerGroup) Close() error {
	var errs []error
	for i := len(g) - 1; i >= 0; i-- {
		if err := g[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run serves the URL shortener until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	urlRepo, closer, err := newURLRepository(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closer.Close()

	urlUseCase := usecase.New(urlRepo)

	router := deliveryhttp.NewRouter(logger, urlUseCase, deliveryhttp.Options{
		PublicURL:       cfg.PublicURL,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		RateLimitWindow: cfg.RateLimit.Window,
		RateLimitMax:    cfg.RateLimit.Max,
		SwaggerFile:     cfg.HTTPServer.SwaggerFile,
		TrustProxy:      cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("storage", cfg.Storage),
			slog.Bool("tls", cfg.HTTPServer.TLS()),
			slog.Bool("cache", cfg.Redis.Enabled),
		)

		var err error

		if cfg.HTTPServer.TLS() {
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
