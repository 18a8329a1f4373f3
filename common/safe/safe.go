package safe

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
)

// Group — аналог errgroup.Group с защитой от panic.
// Первая ошибка (или паника) отменяет общий контекст и сохраняется в Err.
type Group struct {
	wg     sync.WaitGroup
	cancel context.CancelFunc
	ctx    context.Context
	log    *logger.Logger

	mu  sync.Mutex
	err error
}

// New создаёт группу с дочерним контекстом.
func New(ctx context.Context, log *logger.Logger) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{
		ctx:    ctx,
		cancel: cancel,
		log:    log.Named("safe"),
	}
}

// Go запускает защищённую goroutine. Можно вызывать из уже запущенных
// goroutine этой же группы.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.recoverPanic()
		if err := fn(g.ctx); err != nil {
			g.fail(err)
		}
	}()
}

// Wait блокирует до завершения всех goroutine и возвращает первую ошибку.
func (g *Group) Wait() error {
	g.wg.Wait()
	return g.Err()
}

// Err возвращает первую ошибку группы (nil, если её не было).
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Cancel отменяет контекст группы без записи ошибки.
func (g *Group) Cancel() { g.cancel() }

// Context возвращает контекст группы.
func (g *Group) Context() context.Context {
	return g.ctx
}

func (g *Group) fail(err error) {
	g.mu.Lock()
	if g.err == nil {
		g.err = err
	}
	g.mu.Unlock()
	if g.ctx.Err() == nil {
		g.log.Debug("goroutine error", zap.Error(err))
	}
	g.cancel()
}

func (g *Group) recoverPanic() {
	if r := recover(); r != nil {
		g.log.Error("panic recovered", zap.Any("panic", r), zap.Stack("stack"))
		g.fail(fmt.Errorf("safe: panic: %v", r))
	}
}
