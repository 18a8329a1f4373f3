package subscribe

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// keepAlive раз в interval ставит в очередь команду keepalive.
// Тикер создаётся в конструкторе: первый пинг отсчитывается от New.
type keepAlive struct {
	ticker *clock.Ticker
	id     string
	push   func(tradeapi.Command) error
	log    *logger.Logger
}

func newKeepAlive(clk clock.Clock, interval time.Duration, id string, push func(tradeapi.Command) error, log *logger.Logger) *keepAlive {
	return &keepAlive{
		ticker: clk.Ticker(interval),
		id:     id,
		push:   push,
		log:    log.Named("keepalive"),
	}
}

func (k *keepAlive) run(ctx context.Context) error {
	defer k.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-k.ticker.C:
			if err := k.push(tradeapi.KeepAlive(k.id)); err != nil {
				k.log.Debug("keepalive not queued", zap.Error(err))
				return nil
			}
		}
	}
}
