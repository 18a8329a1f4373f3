package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/backoff"
	"github.com/YaganovValera/finam-trade-client/common/logger"
)

var (
	redisMetrics = struct {
		Errors  *prometheus.CounterVec
		Latency *prometheus.HistogramVec
	}{
		Errors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "common", Subsystem: "redis", Name: "errors_total",
			Help: "Redis operation errors",
		}, []string{"op"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "common", Subsystem: "redis", Name: "operation_latency_seconds",
			Help:    "Latency of Redis operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	tracer = otel.Tracer("redis-storage")
)

// ErrNotFound возвращается, если ключ отсутствует.
var ErrNotFound = errors.New("redis: key not found")

// Storage — key/value хранилище с TTL.
type Storage interface {
	// Get возвращает значение или ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set сохраняет значение с TTL из конфига.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config — параметры подключения к Redis.
type Config struct {
	URL       string         `mapstructure:"url"` // "redis://host:6379/0"
	TTL       time.Duration  `mapstructure:"ttl"`
	KeyPrefix string         `mapstructure:"key_prefix"`
	Backoff   backoff.Config `mapstructure:"backoff"`
}

func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
}

func (c Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("redis: URL required")
	}
	return nil
}

type redisStorage struct {
	client     *goredis.Client
	ttl        time.Duration
	prefix     string
	log        *logger.Logger
	backoffCfg backoff.Config
}

// New подключается к Redis (ping с back-off) и возвращает Storage.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("redis")

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse URL: %w", err)
	}
	client := goredis.NewClient(opts)

	ctxConn, span := tracer.Start(ctx, "Connect", trace.WithAttributes(attribute.String("db.addr", opts.Addr)))
	defer span.End()
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := backoff.Execute(ctxConn, cfg.Backoff, log, ping); err != nil {
		span.RecordError(err)
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect: %w", err)
	}
	log.Info("redis: connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))

	return &redisStorage{
		client:     client,
		ttl:        cfg.TTL,
		prefix:     cfg.KeyPrefix,
		log:        log,
		backoffCfg: cfg.Backoff,
	}, nil
}

func (r *redisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "get", key, func(ctx context.Context) error {
		val, err := r.client.Get(ctx, r.prefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return backoff.Permanent(ErrNotFound)
		}
		if err != nil {
			return err
		}
		data = val
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *redisStorage) Set(ctx context.Context, key string, value []byte) error {
	return r.do(ctx, "set", key, func(ctx context.Context) error {
		return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
	})
}

func (r *redisStorage) Delete(ctx context.Context, key string) error {
	return r.do(ctx, "del", key, func(ctx context.Context) error {
		return r.client.Del(ctx, r.prefix+key).Err()
	})
}

func (r *redisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisStorage) Close() error {
	return r.client.Close()
}

// do оборачивает операцию в span, back-off и метрики.
func (r *redisStorage) do(ctx context.Context, op, key string, fn backoff.RetryableFunc) error {
	ctxOp, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	start := time.Now()
	err := backoff.Execute(ctxOp, r.backoffCfg, r.log, fn)
	redisMetrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	redisMetrics.Errors.WithLabelValues(op).Inc()
	span.RecordError(err)
	r.log.WithContext(ctx).Error("redis operation failed",
		zap.String("op", op), zap.String("key", key), zap.Error(err))
	return fmt.Errorf("redis: %s %s: %w", op, key, err)
}
