package unary

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/wire"
)

// GetStops возвращает стоп-заявки клиента по фильтру.
func (c *Client) GetStops(ctx context.Context, clientID string, f tradeapi.StopFilter) ([]tradeapi.Stop, error) {
	c.log.Info("get stops", zap.String("client_id", clientID),
		zap.Bool("active", f.IncludeActive), zap.Bool("canceled", f.IncludeCanceled), zap.Bool("executed", f.IncludeExecuted))
	var res wire.GetStopsResult
	if err := c.call(ctx, wire.MethodGetStops, &wire.GetStopsRequest{ClientID: clientID, Filter: f}, &res); err != nil {
		return nil, err
	}
	return res.Stops, nil
}

// GetAllStops — все стоп-заявки клиента.
func (c *Client) GetAllStops(ctx context.Context, clientID string) ([]tradeapi.Stop, error) {
	return c.GetStops(ctx, clientID, tradeapi.StopFilter{IncludeExecuted: true, IncludeCanceled: true, IncludeActive: true})
}

// GetActiveStops — только активные стоп-заявки.
func (c *Client) GetActiveStops(ctx context.Context, clientID string) ([]tradeapi.Stop, error) {
	return c.GetStops(ctx, clientID, tradeapi.StopFilter{IncludeActive: true})
}

// NewStop выставляет стоп-заявку.
func (c *Client) NewStop(ctx context.Context, s tradeapi.NewStopRequest) (tradeapi.NewStopResult, error) {
	if s.StopLoss == nil && s.TakeProfit == nil {
		return tradeapi.NewStopResult{}, fmt.Errorf("unary: new stop: stop loss or take profit is required")
	}
	if s.ClientID == "" || s.SecurityBoard == "" || s.SecurityCode == "" {
		return tradeapi.NewStopResult{}, fmt.Errorf("unary: new stop: client id, board and code are required")
	}
	c.log.Info("new stop",
		zap.String("client_id", s.ClientID), zap.String("board", s.SecurityBoard), zap.String("code", s.SecurityCode),
		zap.Stringer("buy_sell", s.BuySell), zap.Int64("link_order", s.LinkOrder),
		zap.Bool("stop_loss", s.StopLoss != nil), zap.Bool("take_profit", s.TakeProfit != nil))
	var res wire.NewStopResult
	if err := c.call(ctx, wire.MethodNewStop, &wire.NewStopRequest{Stop: s}, &res); err != nil {
		return tradeapi.NewStopResult{}, err
	}
	c.log.Debug("stop accepted", zap.Int32("stop_id", res.Result.StopID))
	return res.Result, nil
}

// NewStopLoss — стоп-лосс, привязанный к заявке linkOrder.
func (c *Client) NewStopLoss(ctx context.Context, clientID, board, code string, linkOrder int64, side tradeapi.BuySell, sl tradeapi.StopLoss) (tradeapi.NewStopResult, error) {
	return c.NewStop(ctx, tradeapi.NewStopRequest{
		ClientID: clientID, SecurityBoard: board, SecurityCode: code,
		LinkOrder: linkOrder, BuySell: side, StopLoss: &sl,
	})
}

// NewTakeProfit — тейк-профит, привязанный к заявке linkOrder.
func (c *Client) NewTakeProfit(ctx context.Context, clientID, board, code string, linkOrder int64, side tradeapi.BuySell, tp tradeapi.TakeProfit) (tradeapi.NewStopResult, error) {
	return c.NewStop(ctx, tradeapi.NewStopRequest{
		ClientID: clientID, SecurityBoard: board, SecurityCode: code,
		LinkOrder: linkOrder, BuySell: side, TakeProfit: &tp,
	})
}

// CancelStop отменяет стоп-заявку.
func (c *Client) CancelStop(ctx context.Context, clientID string, stopID int32) (tradeapi.CancelStopResult, error) {
	c.log.Info("cancel stop", zap.String("client_id", clientID), zap.Int32("stop_id", stopID))
	var res wire.CancelStopResult
	if err := c.call(ctx, wire.MethodCancelStop, &wire.CancelStopRequest{ClientID: clientID, StopID: stopID}, &res); err != nil {
		return tradeapi.CancelStopResult{}, err
	}
	return res.Result, nil
}
