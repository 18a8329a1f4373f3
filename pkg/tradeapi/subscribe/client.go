// Package subscribe — движок потока событий Trade API: очередь команд,
// keepalive, чтение потока и раздача событий обработчикам.
//
// Клиент проходит состояния Created → Running → Stopped. Stopped
// терминален: переподключения нет, после обрыва потока нужен новый
// клиент.
package subscribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/common/safe"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// Stream — открытый bidi-поток GetEvents. Send и CloseSend вызываются
// из одной горутины, Recv из другой.
type Stream interface {
	Send(tradeapi.Command) error
	Recv() (tradeapi.Event, error)
	CloseSend() error
}

// Opener открывает поток. Поток должен завершиться при отмене ctx.
type Opener interface {
	OpenEvents(ctx context.Context) (Stream, error)
}

// OpenerFunc адаптирует функцию к Opener.
type OpenerFunc func(ctx context.Context) (Stream, error)

func (f OpenerFunc) OpenEvents(ctx context.Context) (Stream, error) { return f(ctx) }

// State — состояние клиента.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Params — зависимости клиента.
type Params struct {
	Opener  Opener
	Handler Handler
	// Release освобождает транспорт. Вызывается ровно один раз, после
	// завершения чтения, записи и keepalive. Обработчики, которые ещё
	// выполняются, не ожидаются.
	Release func() error
	Logger  *logger.Logger
	// TracerProvider для span-ов доставки; nil — глобальный.
	TracerProvider trace.TracerProvider
}

// Client — подписка на поток событий.
type Client struct {
	cfg     Config
	log     *logger.Logger
	opener  Opener
	release func() error

	queue   *commandQueue
	handler atomic.Pointer[handlerBox]
	state   atomic.Int32
	group   *safe.Group // чтение, запись, keepalive
	workers *safe.Group // воркеры доставки; Stop их не ждёт

	stopOnce   sync.Once
	mu         sync.Mutex
	cause      error
	done       chan struct{}
	releaseErr error
}

// New запускает клиент: открывает поток, keepalive и воркеры.
// Ошибка открытия потока не возвращается из New, а переводит клиент
// в Stopped; её можно получить через Err после Done.
func New(ctx context.Context, cfg Config, p Params) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if p.Opener == nil {
		return nil, fmt.Errorf("subscribe: opener is required")
	}
	if p.Handler == nil {
		p.Handler = HandlerFuncs{}
	}
	if p.Logger == nil {
		p.Logger = logger.NewNop()
	}

	log := p.Logger.Named("subscribe")
	c := &Client{
		cfg:     cfg,
		log:     log,
		opener:  p.Opener,
		release: p.Release,
		queue:   newCommandQueue(),
		group:   safe.New(ctx, log),
		workers: safe.New(ctx, log),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(StateCreated))
	c.handler.Store(&handlerBox{h: p.Handler})

	ka := newKeepAlive(cfg.Clock, cfg.KeepAliveInterval, cfg.KeepAliveRequestID, c.queue.push, log)
	d := newDispatcher(cfg.DispatchBuffer, c.currentHandler, p.TracerProvider, log)

	c.state.Store(int32(StateRunning))
	for i := 0; i < cfg.Workers; i++ {
		c.workers.Go(d.work)
	}
	c.group.Go(ka.run)
	c.stage(func(ctx context.Context) error { return c.drive(ctx, d) })

	log.Info("event client started",
		zap.Duration("keepalive_interval", cfg.KeepAliveInterval),
		zap.Int("workers", cfg.Workers))
	return c, nil
}

// stage запускает горутину, ошибка которой останавливает клиент.
func (c *Client) stage(fn func(ctx context.Context) error) {
	c.group.Go(func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			c.shutdown(err)
		}
		return err
	})
}

// drive открывает поток, запускает запись и читает события до ошибки.
func (c *Client) drive(ctx context.Context, d *dispatcher) error {
	defer d.closeInput()

	stream, err := c.opener.OpenEvents(ctx)
	if err != nil {
		streamErrors.WithLabelValues("open").Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("subscribe: open events stream: %w", err)
	}
	c.log.Debug("events stream opened")

	c.stage(func(ctx context.Context) error { return c.sendLoop(ctx, stream) })

	for {
		ev, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			streamErrors.WithLabelValues("recv").Inc()
			return fmt.Errorf("subscribe: recv: %w", err)
		}

		eventsReceived.WithLabelValues(ev.Kind.String()).Inc()
		if ev.Kind == tradeapi.EventUnknown {
			eventsDropped.WithLabelValues("unknown_kind").Inc()
			c.log.Debug("event without known payload dropped")
			continue
		}
		if err := d.enqueue(ctx, ev); err != nil {
			return err
		}
	}
}

// sendLoop — единственный писатель потока.
func (c *Client) sendLoop(ctx context.Context, stream Stream) error {
	defer func() {
		if err := stream.CloseSend(); err != nil {
			c.log.Debug("close send failed", zap.Error(err))
		}
	}()
	for {
		cmd, err := c.queue.pop(ctx)
		if err != nil {
			return nil
		}
		if err := stream.Send(cmd); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			streamErrors.WithLabelValues("send").Inc()
			return fmt.Errorf("subscribe: send %s: %w", cmd.Kind, err)
		}
		commandsSent.WithLabelValues(cmd.Kind.String()).Inc()
		c.log.Debug("command sent",
			zap.String("kind", cmd.Kind.String()), zap.String("request_id", cmd.RequestID))
	}
}

// shutdown переводит клиент в Stopped. cause == nil означает явный Stop.
func (c *Client) shutdown(cause error) {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.cause = cause
		c.mu.Unlock()

		c.state.Store(int32(StateStopped))
		c.queue.close()
		c.group.Cancel()
		c.workers.Cancel()
		go c.finish()
	})
}

// finish ждёт только стадии потока: обработчик, застрявший в своём
// вызове, не задерживает Release. Воркеры дочитывают очередь без
// доставки и завершаются сами.
func (c *Client) finish() {
	_ = c.group.Wait()
	if c.release != nil {
		c.releaseErr = c.release()
	}
	if err := c.Err(); err != nil {
		c.log.Warn("event client stopped", zap.Error(err))
	} else {
		c.log.Info("event client stopped")
	}
	close(c.done)
}

// Stop останавливает клиент и ждёт освобождения транспорта.
// Идемпотентен и безопасен для конкурентных вызовов, в том числе из
// обработчика; все вызовы возвращают результат Release. Выполняющиеся
// обработчики не ожидаются.
func (c *Client) Stop() error {
	c.shutdown(nil)
	<-c.done
	return c.releaseErr
}

// StopAsync начинает остановку и не ждёт её завершения. cause
// становится результатом Err; nil — обычная остановка.
func (c *Client) StopAsync(cause error) <-chan struct{} {
	c.shutdown(cause)
	return c.done
}

// Done закрывается, когда клиент остановлен и транспорт освобождён.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err возвращает причину остановки: nil для явного Stop.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

// State возвращает текущее состояние.
func (c *Client) State() State { return State(c.state.Load()) }

// SetHandler атомарно заменяет обработчик. События, уже взятые
// воркерами, доставляются прежнему обработчику.
func (c *Client) SetHandler(h Handler) {
	if h == nil {
		h = HandlerFuncs{}
	}
	c.handler.Store(&handlerBox{h: h})
}

func (c *Client) currentHandler() Handler { return c.handler.Load().h }

// KeepAliveRequestID — зарезервированный id служебного пинга.
func (c *Client) KeepAliveRequestID() string { return c.cfg.KeepAliveRequestID }

// IsKeepAlive сообщает, что ответ относится к служебному пингу.
func (c *Client) IsKeepAlive(resp *tradeapi.ResponseEvent) bool {
	return resp != nil && resp.RequestID == c.cfg.KeepAliveRequestID
}

// SubscribeOrdersTrades подписывает на заявки и/или сделки клиентов.
func (c *Client) SubscribeOrdersTrades(requestID string, clientIDs []string, includeTrades, includeOrders bool) error {
	return c.submit(tradeapi.SubscribeOrdersTrades(requestID, clientIDs, includeTrades, includeOrders))
}

// SubscribeOrdersTradesAll подписывает и на заявки, и на сделки.
func (c *Client) SubscribeOrdersTradesAll(requestID string, clientIDs []string) error {
	return c.SubscribeOrdersTrades(requestID, clientIDs, true, true)
}

// UnsubscribeOrdersTrades снимает подписку на заявки и сделки.
func (c *Client) UnsubscribeOrdersTrades(requestID string) error {
	return c.submit(tradeapi.UnsubscribeOrdersTrades(requestID))
}

// SubscribeOrderBook подписывает на стакан инструмента.
func (c *Client) SubscribeOrderBook(requestID, board, code string) error {
	return c.submit(tradeapi.SubscribeOrderBook(requestID, board, code))
}

// UnsubscribeOrderBook снимает подписку на стакан.
func (c *Client) UnsubscribeOrderBook(requestID, board, code string) error {
	return c.submit(tradeapi.UnsubscribeOrderBook(requestID, board, code))
}

// submit ставит команду в очередь; запись в поток асинхронна,
// результат приходит в OnResponse с тем же requestID.
func (c *Client) submit(cmd tradeapi.Command) error {
	if c.State() == StateStopped {
		return ErrStopped
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	if cmd.RequestID == c.cfg.KeepAliveRequestID {
		return fmt.Errorf("%w: %q", ErrReservedRequestID, cmd.RequestID)
	}
	return c.queue.push(cmd)
}
