package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	PGDSN string

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers []string
	KafkaTopic   string

	GeocoderURL     string
	GeocoderTimeout time.Duration
	GeocodeCacheTTL time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	FareBase          float64
	FarePerKm         float64
	QuoteMultiplier   float64
	BookingMultiplier float64

	NearbyLimit int

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RedisGeoKey:     "drivers_geo",
		KafkaTopic:      "driver-locations",
		GeocoderURL:     "https://nominatim.openstreetmap.org",
		GeocoderTimeout: 2 * time.Second,
		GeocodeCacheTTL: 10 * time.Minute,
		JWTSecret:       "dev-secret-change-me",
		TokenTTL:        24 * time.Hour,
		FareBase:        5,
		FarePerKm:       2,
		QuoteMultiplier: 1,
		// bookings historically applied a local-currency conversion here
		// (x12) while quotes did not; both stay explicit knobs
		BookingMultiplier: 1,
		NearbyLimit:       8,
		LogLevel:          "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.PGDSN = os.Getenv("PG_DSN")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.GeocoderURL, "GEOCODER_URL")
	setDurationFromEnv(&cfg.GeocoderTimeout, "GEOCODER_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.GeocodeCacheTTL, "GEOCODE_CACHE_TTL", &errs)

	setStringFromEnv(&cfg.JWTSecret, "JWT_SECRET")
	setDurationFromEnv(&cfg.TokenTTL, "TOKEN_TTL", &errs)

	setFloatFromEnv(&cfg.FareBase, "FARE_BASE", &errs)
	setFloatFromEnv(&cfg.FarePerKm, "FARE_PER_KM", &errs)
	setFloatFromEnv(&cfg.QuoteMultiplier, "FARE_QUOTE_MULTIPLIER", &errs)
	setFloatFromEnv(&cfg.BookingMultiplier, "FARE_BOOKING_MULTIPLIER", &errs)

	setIntFromEnv(&cfg.NearbyLimit, "NEARBY_LIMIT", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.NearbyLimit <= 0 {
		errs = append(errs, fmt.Errorf("NEARBY_LIMIT must be > 0"))
	}
	if cfg.FareBase < 0 || cfg.FarePerKm < 0 {
		errs = append(errs, fmt.Errorf("FARE_BASE and FARE_PER_KM must be >= 0"))
	}
	if cfg.QuoteMultiplier <= 0 || cfg.BookingMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("fare multipliers must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
