package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YaganovValera/finam-trade-client/common/redis"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// OrderBookCache хранит последний снимок стакана по инструменту.
type OrderBookCache struct {
	store redis.Storage
}

func NewOrderBookCache(store redis.Storage) *OrderBookCache {
	return &OrderBookCache{store: store}
}

// OrderBookKey — ключ снимка: orderbook:<board>:<code>.
func OrderBookKey(board, code string) string {
	return "orderbook:" + board + ":" + code
}

// Save перезаписывает снимок.
func (c *OrderBookCache) Save(ctx context.Context, ev *tradeapi.OrderBookEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sink: marshal order book: %w", err)
	}
	return c.store.Set(ctx, OrderBookKey(ev.SecurityBoard, ev.SecurityCode), b)
}

// Get возвращает последний снимок или redis.ErrNotFound.
func (c *OrderBookCache) Get(ctx context.Context, board, code string) (*tradeapi.OrderBookEvent, error) {
	b, err := c.store.Get(ctx, OrderBookKey(board, code))
	if err != nil {
		return nil, err
	}
	var ev tradeapi.OrderBookEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, fmt.Errorf("sink: decode order book: %w", err)
	}
	return &ev, nil
}

// Delete убирает снимок, например после отписки.
func (c *OrderBookCache) Delete(ctx context.Context, board, code string) error {
	return c.store.Delete(ctx, OrderBookKey(board, code))
}
