package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/config"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/middleware"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// Handlers groups the route handlers the server mounts.
type Handlers struct {
	Products *handler.ProductHandler
	Cart     *handler.CartHandler
	Users    *handler.UserHandler
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	config      *config.Config
	handlers    Handlers
	auth        middleware.OwnerResolver
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
	telemetry   *telemetry.Telemetry
	httpServer  *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	handlers Handlers,
	auth middleware.OwnerResolver,
	logger *slog.Logger,
	telem *telemetry.Telemetry,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		handlers:  handlers,
		auth:      auth,
		logger:    logger,
		telemetry: telem,
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupMiddleware configures the middleware chain
func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.HTTPRouteContext())

	meter := s.telemetry.MeterProvider.Meter(s.config.OTLP.ServiceName)
	s.router.Use(middleware.ActiveRequestsMiddleware(meter))
	s.router.Use(middleware.DurationMillisecondsMiddleware(meter))

	s.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{s.config.CORS.AllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)
}

func (s *Server) limit(r chi.Router) {
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.Handler)
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	authenticate := middleware.Authenticate(s.auth, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			s.limit(r)
			r.Get("/", s.handlers.Products.ListProducts)
			r.Post("/", s.handlers.Products.CreateProduct)
			r.Get("/{id}", s.handlers.Products.GetProduct)
		})

		r.Route("/users", func(r chi.Router) {
			s.limit(r)
			r.Post("/register", s.handlers.Users.Register)
			r.Post("/login", s.handlers.Users.Login)
			r.Get("/", s.handlers.Users.ListUsers)
			r.With(authenticate).Get("/me", s.handlers.Users.Me)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authenticate)
			s.limit(r)
			r.Get("/", s.handlers.Cart.GetCart)
			r.Delete("/", s.handlers.Cart.Clear)
			r.Post("/add", s.handlers.Cart.Add)
			r.Post("/increase", s.handlers.Cart.Increase)
			r.Post("/decrease", s.handlers.Cart.Decrease)
			r.Delete("/{productId}", s.handlers.Cart.Remove)
		})
	})

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("shop cart api is running"))
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// OpenTelemetry metrics plus Go and process collectors.
	s.router.Handle("/metrics", promhttp.HandlerFor(s.telemetry.Registry, promhttp.HandlerOpts{}))
}

// Handler returns the fully instrumented root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithTracerProvider(s.telemetry.TracerProvider),
		otelhttp.WithMeterProvider(s.telemetry.MeterProvider),
		otelhttp.WithMetricAttributesFn(func(r *http.Request) []attribute.KeyValue {
			routePattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					routePattern = pattern
				}
			}
			return []attribute.KeyValue{
				attribute.String("http.route", routePattern),
			}
		}),
	)
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.rateLimiter != nil {
		go s.rateLimiter.Run(ctx, 5*time.Minute)
	}

	s.logger.Info("Starting HTTP server",
		slog.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
