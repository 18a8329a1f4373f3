package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/internal/metrics"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// Tracker сопоставляет ответы сервера с отправленными командами.
// Ответы на keepalive отбрасываются.
type Tracker struct {
	keepAliveID string
	log         *logger.Logger

	mu      sync.Mutex
	pending map[string]*request
}

type request struct {
	what string
	done chan struct{}
}

func NewTracker(keepAliveID string, log *logger.Logger) *Tracker {
	return &Tracker{
		keepAliveID: keepAliveID,
		log:         log.Named("responses"),
		pending:     make(map[string]*request),
	}
}

// Expect запоминает команду до прихода ответа.
func (t *Tracker) Expect(requestID, what string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[requestID]; ok {
		return
	}
	metrics.PendingRequests.Inc()
	t.pending[requestID] = &request{what: what, done: make(chan struct{})}
}

// Forget снимает ожидание, например если команду не удалось поставить в очередь.
func (t *Tracker) Forget(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.take(requestID)
}

// take снимает ожидание под t.mu и будит Await.
func (t *Tracker) take(requestID string) (*request, bool) {
	r, ok := t.pending[requestID]
	if !ok {
		return nil, false
	}
	delete(t.pending, requestID)
	metrics.PendingRequests.Dec()
	close(r.done)
	return r, true
}

// Await ждёт ответа на каждую из команд или отмены ctx.
func (t *Tracker) Await(ctx context.Context, requestIDs ...string) error {
	for _, id := range requestIDs {
		t.mu.Lock()
		r, ok := t.pending[id]
		t.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case <-r.done:
		case <-ctx.Done():
			return fmt.Errorf("sink: await %s: %w", id, ctx.Err())
		}
	}
	return nil
}

// Pending возвращает id команд без ответа, отсортированные.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve обрабатывает ResponseEvent. Отказ сервера возвращается ошибкой.
func (t *Tracker) Resolve(ctx context.Context, ev *tradeapi.ResponseEvent) error {
	if ev.RequestID == t.keepAliveID {
		t.log.Debug("keepalive acknowledged", zap.Bool("success", ev.Success))
		return nil
	}

	t.mu.Lock()
	r, known := t.take(ev.RequestID)
	t.mu.Unlock()
	var what string
	if known {
		what = r.what
	}

	log := t.log.WithContext(ctx).With(zap.String("request_id", ev.RequestID))
	if !known {
		log.Debug("response to unknown request", zap.Bool("success", ev.Success))
	}
	if !ev.Success {
		metrics.Responses.WithLabelValues("failure").Inc()
		return fmt.Errorf("sink: request %s %s rejected: %s", ev.RequestID, what, ev.Message())
	}
	metrics.Responses.WithLabelValues("success").Inc()
	if known {
		log.Info("request confirmed", zap.String("command", what))
	}
	return nil
}
