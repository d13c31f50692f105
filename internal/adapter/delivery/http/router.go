// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/slug-shortener/pkg/middleware/ratelimit"
	"github.com/vadimbarashkov/slug-shortener/pkg/middleware/recoverer"
)

const maxRequestBodyBytes = 64 << 10

// Options configures the router.
type Options struct {
	// PublicURL is the base of the generated short links. If empty, it is
	// derived from every request.
	PublicURL string
	// AllowedOrigins lists the CORS origins allowed to call the API.
	AllowedOrigins []string
	// RateLimitWindow and RateLimitMax bound the API requests of a client IP.
	// A zero RateLimitMax disables rate limiting.
	RateLimitWindow time.Duration
	RateLimitMax    int
	// SwaggerFile is the path of the served OpenAPI document.
	SwaggerFile string
	// TrustProxy makes the client IP and scheme come from the X-Real-IP,
	// X-Forwarded-For and X-Forwarded-Proto headers set by a reverse proxy.
	// Otherwise the socket address is the client IP.
	TrustProxy bool
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "SAMEORIGIN",
	"Referrer-Policy":              "no-referrer",
	"Cross-Origin-Resource-Policy": "same-origin",
	"X-DNS-Prefetch-Control":       "off",
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger, serverErrorResponse))
	for k, v := range securityHeaders {
		r.Use(middleware.SetHeader(k, v))
	}

	r.NotFound(handleNotFound)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, opts.SwaggerFile)
	})

	h := newURLHandler(urlUseCase, opts.PublicURL, opts.TrustProxy)

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitMax > 0 {
			limiter := ratelimit.New(
				opts.RateLimitWindow,
				opts.RateLimitMax,
				ratelimit.WithLimitHandler(http.HandlerFunc(handleTooManyRequests)),
			)
			r.Use(limiter.Handler)
		}
		r.Use(middleware.RequestSize(maxRequestBodyBytes))

		r.Get("/ping", handlePing)
		r.Post("/shorten", h.shortenURL)
		r.Get("/stats/{slug}", h.getURLStats)
		r.Get("/qrcode/{slug}", h.getQRCode)
	})

	r.Get("/{slug}", h.redirect)

	return r
}
