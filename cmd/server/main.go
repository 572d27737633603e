package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/King47-code/safe-ride-backend/internal/auth"
	"github.com/King47-code/safe-ride-backend/internal/config"
	"github.com/King47-code/safe-ride-backend/internal/fare"
	"github.com/King47-code/safe-ride-backend/internal/geo"
	httpapi "github.com/King47-code/safe-ride-backend/internal/http"
	"github.com/King47-code/safe-ride-backend/internal/hub"
	"github.com/King47-code/safe-ride-backend/internal/identity"
	"github.com/King47-code/safe-ride-backend/internal/ingest"
	"github.com/King47-code/safe-ride-backend/internal/logging"
	"github.com/King47-code/safe-ride-backend/internal/payments"
	"github.com/King47-code/safe-ride-backend/internal/ride"
	"github.com/King47-code/safe-ride-backend/internal/storage"
	"github.com/King47-code/safe-ride-backend/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg, cfgErr := config.LoadServerConfig()
	logger := logging.NewLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Error("invalid configuration", "error", cfgErr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db    *sql.DB
		store storage.RideStore
	)
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		db = pg.DB()
		store = pg
		if cfg.RunMigrations {
			if err := migrate(ctx, db); err != nil {
				logger.Error("migrations failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
	} else {
		logger.Warn("PG_DSN not set, rides held in memory only")
		store = storage.NewMemoryStore()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
	}

	var drivers geo.DriverIndex
	if redisClient != nil {
		drivers = geo.NewRedisDriverIndex(redisClient, cfg.RedisGeoKey)
	} else {
		drivers = geo.NewIndex()
	}

	var resolver geo.Resolver = geo.NewGeocoder(cfg.GeocoderURL, cfg.GeocoderTimeout)
	if redisClient != nil {
		resolver = geo.NewCachedResolver(resolver, redisClient, cfg.GeocodeCacheTTL)
	}

	recorder := &ingest.Recorder{Index: drivers, Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		recorder.Producer = producer
	}

	registry := hub.NewRegistry()
	notifications := hub.New(registry, logger)
	notifications.Locations = recorder
	go notifications.Run(ctx)

	gate := auth.NewGate(cfg.JWTSecret, cfg.TokenTTL)

	var ident *identity.Service
	if db != nil {
		ident = &identity.Service{DB: db, Gate: gate}
	}

	var holder ride.FareHolder
	if os.Getenv("STRIPE_API_KEY") != "" {
		holder = payments.NewStripeClient()
	}

	lifecycle := &ride.Lifecycle{
		Store:    store,
		Resolver: resolver,
		Notifier: notifications,
		Payments: holder,
		Quote:    fare.Pricing{Base: cfg.FareBase, PerKm: cfg.FarePerKm, CurrencyMultiplier: cfg.QuoteMultiplier},
		Booking:  fare.Pricing{Base: cfg.FareBase, PerKm: cfg.FarePerKm, CurrencyMultiplier: cfg.BookingMultiplier},
		Logger:   logger,
	}

	srv := httpapi.NewServer(&httpapi.Server{
		Rides:       lifecycle,
		Identity:    ident,
		Gate:        gate,
		Hub:         notifications,
		Drivers:     drivers,
		Recorder:    recorder,
		NearbyLimit: cfg.NearbyLimit,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("api listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("stopped")
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}
