package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/internal/config"
	"github.com/YaganovValera/finam-trade-client/internal/sink"
)

// engine — часть finam.SubscribeClient, нужная сервису.
type engine interface {
	SubscribeOrdersTrades(requestID string, clientIDs []string, includeTrades, includeOrders bool) error
	UnsubscribeOrdersTrades(requestID string) error
	SubscribeOrderBook(requestID, board, code string) error
	UnsubscribeOrderBook(requestID, board, code string) error
	Stop() error
	Done() <-chan struct{}
	Err() error
}

type bookSub struct {
	in        config.Instrument
	requestID string
}

// subscriptions отправляет команды подписки при старте и снимает их
// при штатной остановке.
type subscriptions struct {
	engine  engine
	tracker *sink.Tracker
	newID   func() string
	log     *logger.Logger

	ordersID string
	books    []bookSub
}

func (s *subscriptions) subscribe(cfg config.Subscriptions) error {
	if len(cfg.ClientIDs) > 0 {
		id := s.newID()
		what := "subscribe orders/trades " + strings.Join(cfg.ClientIDs, ",")
		s.tracker.Expect(id, what)
		if err := s.engine.SubscribeOrdersTrades(id, cfg.ClientIDs, cfg.IncludeTrades, cfg.IncludeOrders); err != nil {
			s.tracker.Forget(id)
			return fmt.Errorf("subscribe orders/trades: %w", err)
		}
		s.ordersID = id
		s.log.Info("orders/trades subscription sent",
			zap.String("request_id", id), zap.Strings("client_ids", cfg.ClientIDs))
	}

	books, err := cfg.Instruments()
	if err != nil {
		return err
	}
	for _, in := range books {
		id := s.newID()
		s.tracker.Expect(id, "subscribe order book "+in.String())
		if err := s.engine.SubscribeOrderBook(id, in.Board, in.Code); err != nil {
			s.tracker.Forget(id)
			return fmt.Errorf("subscribe order book %s: %w", in, err)
		}
		s.books = append(s.books, bookSub{in: in, requestID: id})
		s.log.Info("order book subscription sent",
			zap.String("request_id", id), zap.Stringer("instrument", in))
	}
	return nil
}

// unsubscribe снимает подписки и ждёт ответов сервера до отмены ctx.
// Отписка от заявок/сделок идёт с id исходной подписки.
func (s *subscriptions) unsubscribe(ctx context.Context) error {
	var (
		ids  []string
		errs []error
	)
	for _, b := range s.books {
		id := s.newID()
		s.tracker.Expect(id, "unsubscribe order book "+b.in.String())
		if err := s.engine.UnsubscribeOrderBook(id, b.in.Board, b.in.Code); err != nil {
			s.tracker.Forget(id)
			errs = append(errs, fmt.Errorf("unsubscribe order book %s: %w", b.in, err))
			continue
		}
		ids = append(ids, id)
	}
	if s.ordersID != "" {
		s.tracker.Expect(s.ordersID, "unsubscribe orders/trades")
		if err := s.engine.UnsubscribeOrdersTrades(s.ordersID); err != nil {
			s.tracker.Forget(s.ordersID)
			errs = append(errs, fmt.Errorf("unsubscribe orders/trades: %w", err))
		} else {
			ids = append(ids, s.ordersID)
		}
	}
	if err := s.tracker.Await(ctx, ids...); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
