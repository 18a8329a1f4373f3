// Package sink — обработчики событий потока: публикация в Kafka,
// снимки стаканов в Redis, журнал сделок и заявок в PostgreSQL
// и учёт ответов на команды подписки.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	commonkafka "github.com/YaganovValera/finam-trade-client/common/kafka"
	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/internal/metrics"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/subscribe"
)

var tracer = otel.Tracer("events-collector/sink")

// Topics — топик Kafka на каждый вид события.
type Topics struct {
	Orders     string
	Trades     string
	OrderBooks string
	Portfolios string
}

// Message — то, что уходит в Kafka.
type Message struct {
	Kind       string          `json:"kind"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Journal — долговременное хранилище заявок и сделок.
type Journal interface {
	SaveOrder(ctx context.Context, o *tradeapi.OrderEvent) error
	SaveTrade(ctx context.Context, t *tradeapi.TradeEvent) error
}

// Publisher реализует subscribe.Handler: каждое событие публикуется
// в свой топик, стаканы дополнительно кладутся в кэш.
type Publisher struct {
	producer commonkafka.Producer
	topics   Topics
	cache    *OrderBookCache // nil — кэш выключен
	journal  Journal // nil — журнал выключен
	tracker  *Tracker
	log      *logger.Logger
	now      func() time.Time
}

var _ subscribe.Handler = (*Publisher)(nil)

// NewPublisher собирает обработчик. cache может быть nil.
func NewPublisher(p commonkafka.Producer, topics Topics, cache *OrderBookCache, tracker *Tracker, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: p,
		topics:   topics,
		cache:    cache,
		tracker:  tracker,
		log:      log.Named("sink"),
		now:      time.Now,
	}
}

// WithJournal включает запись заявок и сделок в журнал.
func (p *Publisher) WithJournal(j Journal) *Publisher {
	p.journal = j
	return p
}

func (p *Publisher) OnOrder(ctx context.Context, ev *tradeapi.OrderEvent) error {
	if err := p.publish(ctx, tradeapi.EventOrder, p.topics.Orders, ev.ClientID, ev); err != nil {
		return err
	}
	if p.journal == nil {
		return nil
	}
	if err := p.journal.SaveOrder(ctx, ev); err != nil {
		metrics.JournalErrors.WithLabelValues(tradeapi.EventOrder.String()).Inc()
		return fmt.Errorf("sink: journal order: %w", err)
	}
	return nil
}

func (p *Publisher) OnTrade(ctx context.Context, ev *tradeapi.TradeEvent) error {
	if err := p.publish(ctx, tradeapi.EventTrade, p.topics.Trades, ev.ClientID, ev); err != nil {
		return err
	}
	if p.journal == nil {
		return nil
	}
	if err := p.journal.SaveTrade(ctx, ev); err != nil {
		metrics.JournalErrors.WithLabelValues(tradeapi.EventTrade.String()).Inc()
		return fmt.Errorf("sink: journal trade: %w", err)
	}
	return nil
}

func (p *Publisher) OnOrderBook(ctx context.Context, ev *tradeapi.OrderBookEvent) error {
	key := ev.SecurityBoard + ":" + ev.SecurityCode
	if err := p.publish(ctx, tradeapi.EventOrderBook, p.topics.OrderBooks, key, ev); err != nil {
		return err
	}
	if p.cache == nil {
		return nil
	}
	// Ошибка кэша не должна терять событие: публикация уже прошла.
	if err := p.cache.Save(ctx, ev); err != nil {
		metrics.CacheErrors.Inc()
		p.log.WithContext(ctx).Warn("order book cache failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (p *Publisher) OnPortfolio(ctx context.Context, ev *tradeapi.PortfolioEvent) error {
	return p.publish(ctx, tradeapi.EventPortfolio, p.topics.Portfolios, ev.ClientID, ev)
}

func (p *Publisher) OnResponse(ctx context.Context, ev *tradeapi.ResponseEvent) error {
	if p.tracker == nil {
		return nil
	}
	return p.tracker.Resolve(ctx, ev)
}

func (p *Publisher) publish(ctx context.Context, kind tradeapi.EventKind, topic, key string, payload any) error {
	ctx, span := tracer.Start(ctx, "Publisher.publish", trace.WithAttributes(
		attribute.String("event.kind", kind.String()),
		attribute.String("messaging.destination", topic),
	))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sink: marshal %s: %w", kind, err)
	}
	value, err := json.Marshal(Message{Kind: kind.String(), ReceivedAt: p.now().UTC(), Payload: body})
	if err != nil {
		return fmt.Errorf("sink: marshal %s: %w", kind, err)
	}

	if err := p.producer.Publish(ctx, topic, []byte(key), value); err != nil {
		metrics.PublishErrors.WithLabelValues(kind.String()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("sink: publish %s: %w", kind, err)
	}
	metrics.EventsPublished.WithLabelValues(kind.String()).Inc()
	return nil
}
