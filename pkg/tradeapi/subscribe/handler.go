package subscribe

import (
	"context"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// Handler получает события потока. Методы вызываются из пула
// воркеров: порядок начала вызовов совпадает с порядком прихода
// событий, но вызовы могут перекрываться по времени.
// Ошибка обработчика логируется и не останавливает поток.
type Handler interface {
	OnOrder(ctx context.Context, ev *tradeapi.OrderEvent) error
	OnTrade(ctx context.Context, ev *tradeapi.TradeEvent) error
	OnOrderBook(ctx context.Context, ev *tradeapi.OrderBookEvent) error
	OnPortfolio(ctx context.Context, ev *tradeapi.PortfolioEvent) error
	OnResponse(ctx context.Context, ev *tradeapi.ResponseEvent) error
}

// HandlerFuncs собирает Handler из функций. Незаданная функция — no-op.
type HandlerFuncs struct {
	Order     func(ctx context.Context, ev *tradeapi.OrderEvent) error
	Trade     func(ctx context.Context, ev *tradeapi.TradeEvent) error
	OrderBook func(ctx context.Context, ev *tradeapi.OrderBookEvent) error
	Portfolio func(ctx context.Context, ev *tradeapi.PortfolioEvent) error
	Response  func(ctx context.Context, ev *tradeapi.ResponseEvent) error
}

var _ Handler = HandlerFuncs{}

func (h HandlerFuncs) OnOrder(ctx context.Context, ev *tradeapi.OrderEvent) error {
	if h.Order == nil {
		return nil
	}
	return h.Order(ctx, ev)
}

func (h HandlerFuncs) OnTrade(ctx context.Context, ev *tradeapi.TradeEvent) error {
	if h.Trade == nil {
		return nil
	}
	return h.Trade(ctx, ev)
}

func (h HandlerFuncs) OnOrderBook(ctx context.Context, ev *tradeapi.OrderBookEvent) error {
	if h.OrderBook == nil {
		return nil
	}
	return h.OrderBook(ctx, ev)
}

func (h HandlerFuncs) OnPortfolio(ctx context.Context, ev *tradeapi.PortfolioEvent) error {
	if h.Portfolio == nil {
		return nil
	}
	return h.Portfolio(ctx, ev)
}

func (h HandlerFuncs) OnResponse(ctx context.Context, ev *tradeapi.ResponseEvent) error {
	if h.Response == nil {
		return nil
	}
	return h.Response(ctx, ev)
}

// handlerBox нужен atomic.Pointer: интерфейс нельзя хранить напрямую.
type handlerBox struct {
	h Handler
}
