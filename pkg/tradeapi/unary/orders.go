package unary

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/wire"
)

// GetOrders возвращает заявки клиента по фильтру.
func (c *Client) GetOrders(ctx context.Context, clientID string, f tradeapi.OrderFilter) ([]tradeapi.Order, error) {
	c.log.Info("get orders", zap.String("client_id", clientID),
		zap.Bool("active", f.IncludeActive), zap.Bool("canceled", f.IncludeCanceled), zap.Bool("matched", f.IncludeMatched))
	var res wire.GetOrdersResult
	if err := c.call(ctx, wire.MethodGetOrders, &wire.GetOrdersRequest{ClientID: clientID, Filter: f}, &res); err != nil {
		return nil, err
	}
	return res.Orders, nil
}

// GetAllOrders — все заявки клиента.
func (c *Client) GetAllOrders(ctx context.Context, clientID string) ([]tradeapi.Order, error) {
	return c.GetOrders(ctx, clientID, tradeapi.OrderFilter{IncludeMatched: true, IncludeCanceled: true, IncludeActive: true})
}

// GetActiveOrders — только активные заявки.
func (c *Client) GetActiveOrders(ctx context.Context, clientID string) ([]tradeapi.Order, error) {
	return c.GetOrders(ctx, clientID, tradeapi.OrderFilter{IncludeActive: true})
}

// NewOrder выставляет заявку. Price == nil — рыночная заявка.
func (c *Client) NewOrder(ctx context.Context, o tradeapi.NewOrderRequest) (tradeapi.NewOrderResult, error) {
	if o.ClientID == "" || o.SecurityBoard == "" || o.SecurityCode == "" {
		return tradeapi.NewOrderResult{}, fmt.Errorf("unary: new order: client id, board and code are required")
	}
	if o.Quantity <= 0 {
		return tradeapi.NewOrderResult{}, fmt.Errorf("unary: new order: quantity must be positive, got %d", o.Quantity)
	}
	c.log.Info("new order",
		zap.String("client_id", o.ClientID), zap.String("board", o.SecurityBoard), zap.String("code", o.SecurityCode),
		zap.Stringer("buy_sell", o.BuySell), zap.Int32("quantity", o.Quantity), zap.Bool("market", o.Price == nil))
	var res wire.NewOrderResult
	if err := c.call(ctx, wire.MethodNewOrder, &wire.NewOrderRequest{Order: o}, &res); err != nil {
		return tradeapi.NewOrderResult{}, err
	}
	c.log.Debug("order accepted", zap.Int32("transaction_id", res.Result.TransactionID))
	return res.Result, nil
}

// NewLimitOrder — лимитная заявка без условий, «поставить в очередь».
func (c *Client) NewLimitOrder(ctx context.Context, clientID, board, code string, side tradeapi.BuySell, quantity int32, price float64) (tradeapi.NewOrderResult, error) {
	return c.NewOrder(ctx, tradeapi.NewOrderRequest{
		ClientID: clientID, SecurityBoard: board, SecurityCode: code,
		BuySell: side, Quantity: quantity, Price: &price,
		Property: tradeapi.OrderPropertyPutInQueue,
	})
}

// NewMarketOrder — рыночная заявка.
func (c *Client) NewMarketOrder(ctx context.Context, clientID, board, code string, side tradeapi.BuySell, quantity int32) (tradeapi.NewOrderResult, error) {
	return c.NewOrder(ctx, tradeapi.NewOrderRequest{
		ClientID: clientID, SecurityBoard: board, SecurityCode: code,
		BuySell: side, Quantity: quantity,
		Property: tradeapi.OrderPropertyPutInQueue,
	})
}

// CancelOrder отменяет заявку. Привязанная стоп-заявка не отменяется,
// пока по инструменту есть другие лимитные заявки.
func (c *Client) CancelOrder(ctx context.Context, clientID string, transactionID int32) (tradeapi.CancelOrderResult, error) {
	c.log.Info("cancel order", zap.String("client_id", clientID), zap.Int32("transaction_id", transactionID))
	var res wire.CancelOrderResult
	req := &wire.CancelOrderRequest{ClientID: clientID, TransactionID: transactionID}
	if err := c.call(ctx, wire.MethodCancelOrder, req, &res); err != nil {
		return tradeapi.CancelOrderResult{}, err
	}
	return res.Result, nil
}
