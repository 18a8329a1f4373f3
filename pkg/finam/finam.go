// Package finam собирает клиентов Trade API поверх одного gRPC-соединения:
// только унарные методы или унарные методы вместе с потоком событий.
package finam

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/subscribe"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/transport"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/unary"
)

// Config — параметры клиентов.
type Config struct {
	Transport transport.Config `mapstructure:",squash"`
	Events    subscribe.Config `mapstructure:"events"`
	// StopOnRPCError: ошибка унарного вызова со статусом gRPC
	// останавливает клиента (закрывает соединение).
	StopOnRPCError bool `mapstructure:"stop_on_rpc_error"`
}

// DefaultClient — только унарные методы.
type DefaultClient struct {
	*unary.Client
	conn *transport.Conn
}

// NewDefaultClient открывает соединение и возвращает унарного клиента.
func NewDefaultClient(cfg Config, log *logger.Logger, opts ...grpc.DialOption) (*DefaultClient, error) {
	conn, err := transport.Dial(cfg.Transport, log, opts...)
	if err != nil {
		return nil, err
	}
	dc := &DefaultClient{conn: conn}
	var hook unary.FailureHook
	if cfg.StopOnRPCError {
		hook = func(string, error) { _ = dc.Stop() }
	}
	dc.Client = unary.New(conn, log, hook)
	return dc, nil
}

// Stop закрывает соединение. Повторные вызовы безопасны.
func (c *DefaultClient) Stop() error { return c.conn.Close() }

// SubscribeClient — унарные методы и поток событий на одном соединении.
// Соединение закрывается движком событий при его остановке.
type SubscribeClient struct {
	*unary.Client
	events *subscribe.Client
}

// NewSubscribeClient открывает соединение и сразу запускает поток событий.
func NewSubscribeClient(ctx context.Context, cfg Config, h subscribe.Handler, log *logger.Logger, opts ...grpc.DialOption) (*SubscribeClient, error) {
	conn, err := transport.Dial(cfg.Transport, log, opts...)
	if err != nil {
		return nil, err
	}
	sc := &SubscribeClient{}
	var hook unary.FailureHook
	if cfg.StopOnRPCError {
		// Хук может сработать внутри обработчика события: ждать нельзя.
		hook = func(method string, err error) {
			sc.events.StopAsync(fmt.Errorf("finam: %s failed: %w", method, err))
		}
	}
	sc.Client = unary.New(conn, log, hook)

	opener := subscribe.OpenerFunc(func(ctx context.Context) (subscribe.Stream, error) {
		s, err := conn.OpenEvents(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	events, err := subscribe.New(ctx, cfg.Events, subscribe.Params{
		Opener:  opener,
		Handler: h,
		Release: conn.Close,
		Logger:  log,
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sc.events = events
	return sc, nil
}

// Events возвращает движок подписок.
func (c *SubscribeClient) Events() *subscribe.Client { return c.events }

func (c *SubscribeClient) SubscribeOrdersTrades(requestID string, clientIDs []string, includeTrades, includeOrders bool) error {
	return c.events.SubscribeOrdersTrades(requestID, clientIDs, includeTrades, includeOrders)
}

func (c *SubscribeClient) SubscribeOrdersTradesAll(requestID string, clientIDs []string) error {
	return c.events.SubscribeOrdersTradesAll(requestID, clientIDs)
}

func (c *SubscribeClient) UnsubscribeOrdersTrades(requestID string) error {
	return c.events.UnsubscribeOrdersTrades(requestID)
}

func (c *SubscribeClient) SubscribeOrderBook(requestID, board, code string) error {
	return c.events.SubscribeOrderBook(requestID, board, code)
}

func (c *SubscribeClient) UnsubscribeOrderBook(requestID, board, code string) error {
	return c.events.UnsubscribeOrderBook(requestID, board, code)
}

// SetHandler заменяет обработчик событий.
func (c *SubscribeClient) SetHandler(h subscribe.Handler) { c.events.SetHandler(h) }

// Stop останавливает поток и закрывает соединение.
func (c *SubscribeClient) Stop() error { return c.events.Stop() }

// Done закрывается после остановки и закрытия соединения.
func (c *SubscribeClient) Done() <-chan struct{} { return c.events.Done() }

// Err — причина остановки, nil для явного Stop.
func (c *SubscribeClient) Err() error { return c.events.Err() }
