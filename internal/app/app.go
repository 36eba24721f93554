package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shorturls/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shorturls/internal/config"
	"github.com/vadimbarashkov/shorturls/internal/shortcode"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"github.com/vadimbarashkov/shorturls/pkg/remotelog"
	"golang.org/x/sync/errgroup"

	deliveryHTTP "github.com/vadimbarashkov/shorturls/internal/adapter/delivery/http"
)

const serviceName = "url-shortener"

// NewLogger builds the service logger for the configured environment.
func NewLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		JSON:     false,
		Concise:  true,
		Tags:     map[string]string{"env": env},
	}

	if env == config.EnvProd || env == config.EnvStage {
		opts.LogLevel = slog.LevelInfo
		opts.JSON = true
		opts.Concise = false
	}

	return httplog.NewLogger(serviceName, opts)
}

// NewHandler wires the repository, use case and router into a single http.Handler.
func NewHandler(cfg *config.Config, logger *httplog.Logger, events *remotelog.Client) http.Handler {
	urlRepo := memory.NewURLRepository()
	urlUseCase := usecase.New(
		urlRepo,
		shortcode.NewGenerator(cfg.ShortCode.Length),
		usecase.WithDefaultValidity(cfg.URL.DefaultValidity),
		usecase.WithClickLocation(cfg.URL.ClickLocation),
		usecase.WithEventLogger(events),
	)

	return deliveryHTTP.NewRouter(logger, urlUseCase, deliveryHTTP.Options{
		BaseURL:        cfg.BaseURL,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		TrustProxy:     cfg.HTTPServer.TrustProxy,
		Events:         events,
		StartedAt:      time.Now(),
	})
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := NewLogger(cfg.Env)

	events := remotelog.New(
		cfg.RemoteLog.Endpoint,
		remotelog.WithToken(cfg.RemoteLog.Token),
		remotelog.WithTimeout(cfg.RemoteLog.Timeout),
		remotelog.WithQueueSize(cfg.RemoteLog.QueueSize),
		remotelog.WithLogger(logger.Logger),
	)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        NewHandler(cfg, logger, events),
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
		return events.Run(ctx)
	})

	g.Go(func() error {
		var err error

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))
		events.Log(remotelog.StackBackend, remotelog.LevelInfo, remotelog.PackageService,
			fmt.Sprintf("URL Shortener service started on port %d", cfg.HTTPServer.Port))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		logger.Info("server stopped")

		return nil
	})

	return g.Wait()
}
