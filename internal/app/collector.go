// Package app собирает events-collector: поток событий Finam → Kafka.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YaganovValera/finam-trade-client/common"
	"github.com/YaganovValera/finam-trade-client/common/httpserver"
	producer "github.com/YaganovValera/finam-trade-client/common/kafka/producer"
	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/common/redis"
	"github.com/YaganovValera/finam-trade-client/common/shutdown"
	"github.com/YaganovValera/finam-trade-client/common/telemetry"
	"github.com/YaganovValera/finam-trade-client/internal/config"
	"github.com/YaganovValera/finam-trade-client/internal/journal"
	"github.com/YaganovValera/finam-trade-client/internal/metrics"
	"github.com/YaganovValera/finam-trade-client/internal/sink"
	"github.com/YaganovValera/finam-trade-client/pkg/finam"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/subscribe"
)

// unsubscribeTimeout ограничивает ожидание ответов на отписку.
const unsubscribeTimeout = 5 * time.Second

// ErrEngineStopped — поток событий остановился сам. Сервис завершается
// с ошибкой: переподключения нет, перезапуском занимается оркестратор.
var ErrEngineStopped = errors.New("events engine stopped")

// Run запускает сервис и блокируется до отмены ctx или остановки потока.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	common.InitServiceName(cfg.ServiceName)
	metrics.Register(nil)
	if err := subscribe.RegisterMetrics(nil); err != nil {
		return err
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Insecure:       cfg.Telemetry.Insecure,
		SamplerRatio:   cfg.Telemetry.SamplerRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdown.Graceful("telemetry", 5*time.Second, shutdownTracer, log) }()

	prod, err := producer.New(ctx, producer.Config{
		Brokers:        cfg.Kafka.Brokers,
		RequiredAcks:   cfg.Kafka.RequiredAcks,
		Timeout:        cfg.Kafka.Timeout,
		Compression:    cfg.Kafka.Compression,
		FlushFrequency: cfg.Kafka.FlushFrequency,
		FlushMessages:  cfg.Kafka.FlushMessages,
		ClientID:       cfg.ServiceName,
		Backoff:        cfg.Kafka.Backoff,
	}, log)
	if err != nil {
		return fmt.Errorf("kafka producer init: %w", err)
	}
	defer func() { _ = shutdown.Graceful("kafka-producer", 5*time.Second, shutdown.Closer(prod.Close), log) }()

	var cache *sink.OrderBookCache
	if cfg.Redis.Enabled() {
		store, err := redis.New(ctx, redis.Config{
			URL:       cfg.Redis.URL,
			TTL:       cfg.Redis.TTL,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Backoff:   cfg.Redis.Backoff,
		}, log)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer func() { _ = shutdown.Graceful("redis", 5*time.Second, shutdown.Closer(store.Close), log) }()
		cache = sink.NewOrderBookCache(store)
	}

	var jrnl *journal.Journal
	if cfg.JournalEnabled() {
		jrnl, err = journal.New(ctx, cfg.Postgres, log)
		if err != nil {
			return fmt.Errorf("journal init: %w", err)
		}
		defer func() {
			_ = shutdown.Graceful("journal", 5*time.Second, shutdown.Closer(func() error { jrnl.Close(); return nil }), log)
		}()
	}

	keepAliveID := cfg.Finam.Events.KeepAliveRequestID
	if keepAliveID == "" {
		keepAliveID = subscribe.DefaultKeepAliveRequestID
	}
	tracker := sink.NewTracker(keepAliveID, log)
	publisher := sink.NewPublisher(prod, sink.Topics{
		Orders:     cfg.Kafka.Topics.Orders,
		Trades:     cfg.Kafka.Topics.Trades,
		OrderBooks: cfg.Kafka.Topics.OrderBooks,
		Portfolios: cfg.Kafka.Topics.Portfolios,
	}, cache, tracker, log)
	if jrnl != nil {
		publisher.WithJournal(jrnl)
	}

	// Поток живёт дольше ctx сервиса: после сигнала ещё нужно отписаться.
	client, err := finam.NewSubscribeClient(context.WithoutCancel(ctx), cfg.Finam, publisher, log)
	if err != nil {
		return fmt.Errorf("finam client init: %w", err)
	}
	defer func() { _ = shutdown.Graceful("finam-client", 5*time.Second, shutdown.Closer(client.Stop), log) }()

	readiness := func(ctx context.Context) error {
		if st := client.Events().State(); st != subscribe.StateRunning {
			return fmt.Errorf("events engine is %s", st)
		}
		if err := prod.Ping(ctx); err != nil {
			return err
		}
		if jrnl != nil {
			return jrnl.Ping(ctx)
		}
		return nil
	}
	httpSrv, err := httpserver.New(httpserver.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		MetricsPath:     cfg.HTTP.MetricsPath,
		HealthzPath:     cfg.HTTP.HealthzPath,
		ReadyzPath:      cfg.HTTP.ReadyzPath,
	}, readiness, log,
		httpserver.RecoverMiddleware(log),
		httpserver.RequestIDMiddleware(),
		httpserver.MetricsMiddleware(),
	)
	if err != nil {
		return fmt.Errorf("httpserver init: %w", err)
	}

	subs := &subscriptions{
		engine:  client,
		tracker: tracker,
		newID:   uuid.NewString,
		log:     log.Named("subscriptions"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Run(gctx) })
	g.Go(func() error { return serve(gctx, subs, cfg.Subscriptions, log) })

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("collector stopped by context")
			return nil
		}
		return err
	}
	return nil
}

// serve подписывается и ждёт либо отмены ctx (штатная остановка с
// отпиской), либо самостоятельной остановки потока.
func serve(ctx context.Context, subs *subscriptions, cfg config.Subscriptions, log *logger.Logger) error {
	if err := subs.subscribe(cfg); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		_ = shutdown.Graceful("subscriptions", unsubscribeTimeout, subs.unsubscribe, log)
		_ = shutdown.Graceful("events-engine", unsubscribeTimeout, shutdown.Closer(subs.engine.Stop), log)
		return nil
	case <-subs.engine.Done():
		cause := subs.engine.Err()
		log.Error("events engine stopped unexpectedly", zap.Error(cause))
		if cause == nil {
			return ErrEngineStopped
		}
		return fmt.Errorf("%w: %w", ErrEngineStopped, cause)
	}
}
