// Package consumer — consumer group поверх Sarama для чтения топиков
// коллектора.
package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/backoff"
	commonkafka "github.com/YaganovValera/finam-trade-client/common/kafka"
	"github.com/YaganovValera/finam-trade-client/common/logger"
)

var consumerMetrics = struct {
	ConnectErrors prometheus.Counter
	SessionErrors prometheus.Counter
	HandlerErrors *prometheus.CounterVec
}{
	ConnectErrors: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_consumer", Name: "connect_errors_total",
		Help: "Kafka consumer group connect errors",
	}),
	SessionErrors: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_consumer", Name: "session_errors_total",
		Help: "Errors returned by consumer group sessions",
	}),
	HandlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "common", Subsystem: "kafka_consumer", Name: "handler_errors_total",
		Help: "Message handler errors",
	}, []string{"topic"}),
}

var tracer = otel.Tracer("kafka-consumer")

// Config — параметры consumer group.
type Config struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	// Version — версия протокола Kafka, по умолчанию "2.8.0".
	Version string `mapstructure:"version"`
	// FromOldest: новая группа начинает с начала топика, а не с конца.
	FromOldest bool           `mapstructure:"from_oldest"`
	Backoff    backoff.Config `mapstructure:"backoff"`
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "2.8.0"
	}
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka consumer: brokers required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka consumer: group id required")
	}
	return nil
}

type groupConsumer struct {
	group      sarama.ConsumerGroup
	log        *logger.Logger
	backoffCfg backoff.Config
}

// New подключает consumer group с ретраями.
func New(ctx context.Context, cfg Config, log *logger.Logger) (commonkafka.Consumer, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("kafka-consumer")

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: invalid version %q: %w", cfg.Version, err)
	}
	sc := sarama.NewConfig()
	sc.Version = version
	sc.Consumer.Return.Errors = true
	if cfg.FromOldest {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	var group sarama.ConsumerGroup
	connect := func(context.Context) error {
		g, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
		if err != nil {
			consumerMetrics.ConnectErrors.Inc()
			return err
		}
		group = g
		return nil
	}

	ctxConn, span := tracer.Start(ctx, "Connect", trace.WithAttributes(
		attribute.StringSlice("brokers", cfg.Brokers),
		attribute.String("group", cfg.GroupID),
	))
	defer span.End()
	if err := backoff.Execute(ctxConn, cfg.Backoff, log, connect); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("kafka consumer: connect: %w", err)
	}

	log.Info("kafka consumer group connected",
		zap.Strings("brokers", cfg.Brokers), zap.String("group", cfg.GroupID))
	return &groupConsumer{group: group, log: log, backoffCfg: cfg.Backoff}, nil
}

// Consume крутит сессии группы до отмены ctx. Ошибка сессии повторяется
// по back-off; ребалансировка завершает сессию без ошибки.
func (c *groupConsumer) Consume(ctx context.Context, topics []string, handler func(context.Context, *commonkafka.Message) error) error {
	h := &claimHandler{handler: handler, log: c.log}
	for {
		err := backoff.Execute(ctx, c.backoffCfg, c.log, func(ctx context.Context) error {
			if err := c.group.Consume(ctx, topics, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return backoff.Permanent(err)
				}
				consumerMetrics.SessionErrors.Inc()
				return err
			}
			return nil
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}
}

func (c *groupConsumer) Close() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("kafka consumer: close: %w", err)
	}
	return nil
}

// claimHandler реализует sarama.ConsumerGroupHandler.
type claimHandler struct {
	handler func(context.Context, *commonkafka.Message) error
	log     *logger.Logger
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case m, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.handle(sess, m)
		}
	}
}

func (h *claimHandler) handle(sess sarama.ConsumerGroupSession, m *sarama.ConsumerMessage) {
	ctx, span := tracer.Start(sess.Context(), "HandleMessage", trace.WithAttributes(
		attribute.String("messaging.destination", m.Topic),
		attribute.Int64("messaging.kafka.offset", m.Offset),
	))
	defer span.End()

	headers := make(map[string][]byte, len(m.Headers))
	for _, hdr := range m.Headers {
		if hdr != nil && hdr.Key != nil {
			headers[string(hdr.Key)] = hdr.Value
		}
	}
	msg := &commonkafka.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
		Headers:   headers,
	}
	if err := h.handler(ctx, msg); err != nil {
		consumerMetrics.HandlerErrors.WithLabelValues(m.Topic).Inc()
		span.RecordError(err)
		h.log.WithContext(ctx).Error("message handler failed",
			zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	sess.MarkMessage(m, "")
}
