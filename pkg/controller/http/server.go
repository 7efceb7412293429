package http

import (
	"context"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/domain/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes limits the size of a batch request body
const DefaultMaxBodyBytes = 1 << 20

// config holds internal HTTP server configuration
type config struct {
	addr         string
	maxBodyBytes int64
	sentry       bool
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithMaxBodyBytes sets the maximum size of a request body
func WithMaxBodyBytes(n int64) Option {
	return func(c *config) {
		c.maxBodyBytes = n
	}
}

// WithSentry enables the Sentry middleware. sentry.Init must be called beforehand.
func WithSentry(enabled bool) Option {
	return func(c *config) {
		c.sentry = enabled
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	batchUC interfaces.BatchDownloadUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr:         "localhost:8080",
		maxBodyBytes: DefaultMaxBodyBytes,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	openapiDoc, err := loadOpenAPI(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load OpenAPI document")
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)
	if cfg.sentry {
		router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}

	// Health check and telemetry
	router.Get("/health", handleHealth)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/api/openapi.json", handleOpenAPI(openapiDoc))

	// Batch download endpoint
	batchHandler := NewBatchDownloadHandler(batchUC, cfg.maxBodyBytes)
	router.Post("/api/download/batch", batchHandler.Handle)

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
