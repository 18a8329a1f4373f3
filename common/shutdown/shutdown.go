package shutdown

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
)

// Graceful выполняет fn с собственным таймаутом, не зависящим от уже
// отменённого контекста сервиса, и логирует результат.
func Graceful(name string, timeout time.Duration, fn func(ctx context.Context) error, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("shutdown: stopping " + name)
	if err := fn(ctx); err != nil {
		log.Error("shutdown: error in "+name, zap.Error(err))
		return err
	}
	log.Info("shutdown: " + name + " stopped cleanly")
	return nil
}

// Closer адаптирует io.Closer-подобную функцию к Graceful.
func Closer(fn func() error) func(context.Context) error {
	return func(context.Context) error { return fn() }
}
