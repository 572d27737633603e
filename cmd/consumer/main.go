package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/King47-code/safe-ride-backend/internal/logging"
	"github.com/King47-code/safe-ride-backend/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total driver location messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	logger := logging.NewLogger("consumer", os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	brokers := brokersFromEnv()
	topic := envDefault("KAFKA_TOPIC", "driver-locations")
	group := envDefault("KAFKA_GROUP", "safe-ride-consumer")
	geoKey := envDefault("REDIS_GEO_KEY", "drivers_geo")

	rc := redis.NewClient(&redis.Options{
		Addr:     envDefault("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	sink := &redisSink{c: rc}

	go serveMetrics(metricsAddr, rc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", topic, "brokers", brokers, "group", group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff.String())
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		// reset backoff on success
		backoff = time.Second

		msgsConsumed.Inc()

		var loc models.DriverLocation
		if err := json.Unmarshal(m.Value, &loc); err != nil {
			msgsInvalid.Inc()
			logger.Warn("invalid location message", "error", err)
			continue
		}
		if loc.DriverID == "" {
			msgsInvalid.Inc()
			logger.Warn("location message without driver id")
			continue
		}

		if err := updateRedisWithRetry(ctx, sink, geoKey, loc, 3, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			logger.Error("redis update failed", "driver_id", loc.DriverID, "error", err)
			continue
		}
		redisUpdates.Inc()
	}
}

// RedisUpdater is the small subset of redis operations the sink needs,
// kept as an interface so tests can run without a server.
type RedisUpdater interface {
	GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error
	HSet(ctx context.Context, key string, values map[string]interface{}) error
}

type redisSink struct{ c *redis.Client }

func (r *redisSink) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	_, err := r.c.GeoAdd(ctx, key, loc).Result()
	return err
}

func (r *redisSink) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := r.c.HSet(ctx, key, values).Result()
	return err
}

// updateRedisWithRetry writes the position and the driver metadata hash
// with retry/backoff so a short redis blip does not drop the report. The
// hash layout matches what the api process reads for nearby queries.
func updateRedisWithRetry(ctx context.Context, rc RedisUpdater, geoKey string, loc models.DriverLocation, attempts int, delay time.Duration) error {
	updated := loc.Updated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	meta := map[string]interface{}{
		"online":  strconv.FormatBool(loc.Online),
		"updated": updated.Format(time.RFC3339),
	}
	for i := 0; i < attempts; i++ {
		if err := rc.GeoAdd(ctx, geoKey, &redis.GeoLocation{Longitude: loc.Loc.Lng, Latitude: loc.Loc.Lat, Name: loc.DriverID}); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		if err := rc.HSet(ctx, "driver:meta:"+loc.DriverID, meta); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		return nil
	}
	return nil
}

func serveMetrics(addr string, rc *redis.Client, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		// readiness: check redis connectivity
		if err := rc.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func brokersFromEnv() []string {
	brokersEnv := os.Getenv("KAFKA_BROKERS")
	if brokersEnv == "" {
		brokersEnv = os.Getenv("KAFKA_BROKER")
	}
	var brokers []string
	for _, b := range strings.Split(brokersEnv, ",") {
		if s := strings.TrimSpace(b); s != "" {
			brokers = append(brokers, s)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	return brokers
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
