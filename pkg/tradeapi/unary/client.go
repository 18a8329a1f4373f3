// Package unary — унарные методы Trade API: свечи, портфель,
// инструменты, заявки и стоп-заявки.
package unary

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/wire"
)

var callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "tradeapi",
	Subsystem: "unary",
	Name:      "call_duration_seconds",
	Help:      "Unary Trade API call latency by method and status code",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "code"})

// Invoker выполняет унарный вызов; реализуется transport.Conn.
type Invoker interface {
	Invoke(ctx context.Context, method string, req wire.Marshaler, resp wire.Unmarshaler) error
}

// FailureHook вызывается, когда сервер вернул gRPC-статус ошибки.
type FailureHook func(method string, err error)

// Client — унарные методы поверх одного соединения.
type Client struct {
	inv       Invoker
	log       *logger.Logger
	tracer    trace.Tracer
	onFailure FailureHook
}

// New создаёт клиента. onFailure может быть nil.
func New(inv Invoker, log *logger.Logger, onFailure FailureHook) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		inv:       inv,
		log:       log.Named("unary"),
		tracer:    otel.Tracer("tradeapi/unary"),
		onFailure: onFailure,
	}
}

func (c *Client) call(ctx context.Context, method string, req wire.Marshaler, resp wire.Unmarshaler) error {
	ctx, span := c.tracer.Start(ctx, method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	err := c.inv.Invoke(ctx, method, req, resp)
	st, isStatus := status.FromError(err)
	callDuration.WithLabelValues(method, st.Code().String()).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("rpc.grpc.status", st.Code().String()))
	c.log.WithContext(ctx).Error("trade api call failed",
		zap.String("method", method), zap.String("code", st.Code().String()), zap.Error(err))

	// Отмена со стороны вызывающего не считается отказом сервера.
	if isStatus && ctx.Err() == nil && c.onFailure != nil {
		c.onFailure(method, err)
	}
	return fmt.Errorf("unary: %s: %w", method, err)
}
