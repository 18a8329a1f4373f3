package unary

import (
	"context"

	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/wire"
)

// GetDayCandles возвращает дневные свечи.
func (c *Client) GetDayCandles(ctx context.Context, board, code string, tf tradeapi.DayTimeFrame, in tradeapi.DayInterval) ([]tradeapi.DayCandle, error) {
	c.log.Info("get day candles",
		zap.String("board", board), zap.String("code", code), zap.Int32("time_frame", int32(tf)))
	req := &wire.GetDayCandlesRequest{SecurityBoard: board, SecurityCode: code, TimeFrame: tf, Interval: in}
	var res wire.GetDayCandlesResult
	if err := c.call(ctx, wire.MethodGetDayCandles, req, &res); err != nil {
		return nil, err
	}
	c.log.Debug("day candles received", zap.Int("count", len(res.Candles)))
	return res.Candles, nil
}

// GetIntradayCandles возвращает внутридневные свечи.
func (c *Client) GetIntradayCandles(ctx context.Context, board, code string, tf tradeapi.IntradayTimeFrame, in tradeapi.IntradayInterval) ([]tradeapi.IntradayCandle, error) {
	c.log.Info("get intraday candles",
		zap.String("board", board), zap.String("code", code), zap.Int32("time_frame", int32(tf)))
	req := &wire.GetIntradayCandlesRequest{SecurityBoard: board, SecurityCode: code, TimeFrame: tf, Interval: in}
	var res wire.GetIntradayCandlesResult
	if err := c.call(ctx, wire.MethodGetIntradayCandles, req, &res); err != nil {
		return nil, err
	}
	c.log.Debug("intraday candles received", zap.Int("count", len(res.Candles)))
	return res.Candles, nil
}

// GetPortfolio возвращает портфель клиента с запрошенными разделами.
func (c *Client) GetPortfolio(ctx context.Context, clientID string, content tradeapi.PortfolioContent) (*tradeapi.Portfolio, error) {
	c.log.Info("get portfolio", zap.String("client_id", clientID))
	var res wire.GetPortfolioResult
	if err := c.call(ctx, wire.MethodGetPortfolio, &wire.GetPortfolioRequest{ClientID: clientID, Content: content}, &res); err != nil {
		return nil, err
	}
	return &res.Portfolio, nil
}

// GetSecurities возвращает справочник инструментов. Пустые board и code
// означают «без фильтра».
func (c *Client) GetSecurities(ctx context.Context, board, code string) ([]tradeapi.Security, error) {
	c.log.Info("get securities", zap.String("board", board), zap.String("code", code))
	var res wire.GetSecuritiesResult
	if err := c.call(ctx, wire.MethodGetSecurities, &wire.GetSecuritiesRequest{Board: board, Code: code}, &res); err != nil {
		return nil, err
	}
	c.log.Debug("securities received", zap.Int("count", len(res.Securities)))
	return res.Securities, nil
}
