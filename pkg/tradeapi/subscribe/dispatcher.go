package subscribe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

const tracerName = "tradeapi/subscribe"

// task — событие в очереди диспетчера. Воркер ждёт закрытия prev,
// закрывает self и только потом вызывает обработчик: так начало
// вызовов идёт строго в порядке прихода событий.
type task struct {
	seq  uint64
	ev   tradeapi.Event
	prev <-chan struct{}
	self chan struct{}
}

// dispatcher раздаёт события ограниченному пулу воркеров.
// enqueue вызывается только из горутины чтения потока.
type dispatcher struct {
	tasks   chan task
	last    chan struct{}
	seq     uint64
	handler func() Handler
	tracer  trace.Tracer
	log     *logger.Logger
}

func newDispatcher(buffer int, handler func() Handler, tp trace.TracerProvider, log *logger.Logger) *dispatcher {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	first := make(chan struct{})
	close(first)
	return &dispatcher{
		tasks:   make(chan task, buffer),
		last:    first,
		handler: handler,
		tracer:  tp.Tracer(tracerName),
		log:     log.Named("dispatcher"),
	}
}

// enqueue ставит событие в очередь. Если очередь полна, ждёт
// свободного места или отмены ctx.
func (d *dispatcher) enqueue(ctx context.Context, ev tradeapi.Event) error {
	t := task{seq: d.seq + 1, ev: ev, prev: d.last, self: make(chan struct{})}
	select {
	case d.tasks <- t:
	default:
		dispatchBackpressure.Inc()
		select {
		case d.tasks <- t:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.seq, d.last = t.seq, t.self
	return nil
}

// closeInput вызывается горутиной чтения при выходе.
func (d *dispatcher) closeInput() { close(d.tasks) }

// work — цикл воркера. После отмены ctx оставшиеся события
// не доставляются, но очередь вычитывается до конца.
func (d *dispatcher) work(ctx context.Context) error {
	for t := range d.tasks {
		<-t.prev
		if ctx.Err() != nil {
			close(t.self)
			eventsDropped.WithLabelValues("stopped").Inc()
			continue
		}
		d.invoke(ctx, t)
	}
	return nil
}

// invoke открывает span до закрытия гейта: порядок начала span-ов
// совпадает с порядком прихода событий.
func (d *dispatcher) invoke(ctx context.Context, t task) {
	ev := t.ev
	kind := ev.Kind.String()
	ctx, span := d.tracer.Start(ctx, "subscribe.dispatch",
		trace.WithAttributes(
			attribute.String("event.kind", kind),
			attribute.Int64("event.seq", int64(t.seq)),
		))
	close(t.self)
	defer span.End()
	if ev.Kind == tradeapi.EventResponse && ev.Response != nil {
		ctx = logger.ContextWithRequestID(ctx, ev.Response.RequestID)
	}

	err := d.call(ctx, ev)
	if err == nil {
		return
	}
	handlerErrors.WithLabelValues(kind).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	d.log.WithContext(ctx).Warn("event handler failed",
		zap.String("event_kind", kind), zap.Error(err))
}

func (d *dispatcher) call(ctx context.Context, ev tradeapi.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("subscribe: handler panic: %v", r)
		}
	}()

	h := d.handler()
	switch ev.Kind {
	case tradeapi.EventOrder:
		return h.OnOrder(ctx, ev.Order)
	case tradeapi.EventTrade:
		return h.OnTrade(ctx, ev.Trade)
	case tradeapi.EventOrderBook:
		return h.OnOrderBook(ctx, ev.OrderBook)
	case tradeapi.EventPortfolio:
		return h.OnPortfolio(ctx, ev.Portfolio)
	case tradeapi.EventResponse:
		return h.OnResponse(ctx, ev.Response)
	default:
		return nil
	}
}
