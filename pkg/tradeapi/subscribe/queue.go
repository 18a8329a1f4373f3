package subscribe

import (
	"context"
	"sync"

	"github.com/eapache/queue"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// commandQueue — неограниченная FIFO-очередь команд с одним читателем.
// После close новые команды отклоняются, накопленные отбрасываются.
type commandQueue struct {
	mu     sync.Mutex
	q      *queue.Queue
	closed bool
	signal chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		q:      queue.New(),
		signal: make(chan struct{}, 1),
	}
}

func (q *commandQueue) push(cmd tradeapi.Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrStopped
	}
	q.q.Add(cmd)
	n := q.q.Length()
	q.mu.Unlock()

	queueDepth.Set(float64(n))
	q.wake()
	return nil
}

// pop ждёт следующую команду. Возвращает ErrStopped после close
// и ctx.Err() при отмене.
func (q *commandQueue) pop(ctx context.Context) (tradeapi.Command, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return tradeapi.Command{}, ErrStopped
		}
		if q.q.Length() > 0 {
			cmd := q.q.Remove().(tradeapi.Command)
			n := q.q.Length()
			q.mu.Unlock()
			queueDepth.Set(float64(n))
			return cmd, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return tradeapi.Command{}, ctx.Err()
		case <-q.signal:
		}
	}
}

func (q *commandQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.q = queue.New()
	}
	q.mu.Unlock()
	queueDepth.Set(0)
	q.wake()
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.q.Length()
}

func (q *commandQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
