package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mrops-br/shop-cart-api/internal/app/service"
	"github.com/mrops-br/shop-cart-api/internal/domain"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/auth"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/config"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/repository/postgres"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

type repositories struct {
	products domain.ProductRepository
	carts    domain.CartRepository
	users    domain.UserRepository
	db       *sqlx.DB
}

// openRepositories uses Postgres when a database URL is configured and the
// in-memory stores otherwise.
func openRepositories(ctx context.Context, cfg *config.DatabaseConfig, tracer trace.Tracer, logger *slog.Logger) (*repositories, error) {
	if cfg.URL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return &repositories{
			products: memory.NewProductRepository(tracer, logger),
			carts:    memory.NewCartRepository(tracer, logger),
			users:    memory.NewUserRepository(tracer, logger),
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Connected to Postgres and applied migrations")

	return &repositories{
		products: postgres.NewProductRepository(db, tracer, logger),
		carts:    postgres.NewCartRepository(db, tracer, logger),
		users:    postgres.NewUserRepository(db, tracer, logger),
		db:       db,
	}, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var telem *telemetry.Telemetry
	var err error
	if cfg.OTLP.Enabled {
		telem, err = telemetry.NewTelemetry(ctx, &cfg.OTLP)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(&cfg.OTLP)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer(cfg.OTLP.ServiceName)
	meter := telem.MeterProvider.Meter(cfg.OTLP.ServiceName)
	logger := telem.Logger

	logger.Info("Starting Shop Cart API")

	repos, err := openRepositories(ctx, &cfg.Database, tracer, logger)
	if err != nil {
		logger.Error("Failed to open storage", slog.String("error", err.Error()))
		return err
	}
	if repos.db != nil {
		defer repos.db.Close()
	}

	userService := service.NewUserService(
		repos.users,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.OTLP.ServiceName),
		tracer, meter, logger,
	)
	productService := service.NewProductService(repos.products, tracer, meter, logger)
	cartService := service.NewCartService(repos.carts, repos.products, tracer, meter, logger)

	server := http.NewServer(cfg, http.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Users:    handler.NewUserHandler(userService, logger),
	}, userService, logger, telem)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case serveErr = <-serverErr:
		if serveErr != nil {
			logger.Error("Server error", slog.String("error", serveErr.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server gracefully", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
	return serveErr
}
