// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shorturls/pkg/middleware/ratelimit"
	"github.com/vadimbarashkov/shorturls/pkg/middleware/recoverer"
	"github.com/vadimbarashkov/shorturls/pkg/remotelog"
	"github.com/vadimbarashkov/shorturls/pkg/response"

	httpSwagger "github.com/swaggo/http-swagger"
)

type eventLogger interface {
	Log(stack, level, pkg, message string)
}

// Options configures the router.
type Options struct {
	// BaseURL prefixes short codes in returned short links.
	BaseURL        string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy enables middleware.RealIP. Without it the rate limiter and request
	// logs key on the socket address.
	TrustProxy     bool
	// Events receives remote log events; nil disables them.
	Events         eventLogger
	// StartedAt is the reference point for the uptime reported by /health.
	StartedAt      time.Time
}

type nopEventLogger struct{}

func (nopEventLogger) Log(_, _, _, _ string) {}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts Options) *chi.Mux {
	if opts.Events == nil {
		opts.Events = nopEventLogger{}
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestEvents(opts.Events))
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger, opts.Events))
	r.Use(ratelimit.Middleware(opts.RateLimitRPS, opts.RateLimitBurst))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		opts.Events.Log(remotelog.StackBackend, remotelog.LevelWarn, remotelog.PackageHandler,
			fmt.Sprintf("404 - Route not found: %s %s", r.Method, r.URL.Path))

		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.RouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, response.MethodNotAllowed)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	h := newURLHandler(urlUseCase, validator.New(), opts.BaseURL, opts.Events, opts.StartedAt)

	r.Get("/ping", handlePing)
	r.Get("/health", h.health)

	r.Route("/shorturls", func(r chi.Router) {
		r.Post("/", h.shortenURL)
		r.Get("/{shortCode}", h.getURLStats)
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}

// requestEvents reports every incoming request to the remote log.
func requestEvents(events eventLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			events.Log(remotelog.StackBackend, remotelog.LevelInfo, remotelog.PackageMiddleware,
				fmt.Sprintf("%s %s - Request received from %s", r.Method, r.URL.Path, r.RemoteAddr))

			next.ServeHTTP(w, r)
		})
	}
}
