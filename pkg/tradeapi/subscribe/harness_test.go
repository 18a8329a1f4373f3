package subscribe

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

const waitFor = 2 * time.Second

type recvItem struct {
	ev  tradeapi.Event
	err error
}

// fakeStream — поток в памяти: тест пишет события в in и читает
// отправленные команды из sent.
type fakeStream struct {
	ctx       context.Context
	in        chan recvItem
	sent      chan tradeapi.Command
	closeSend atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		in:   make(chan recvItem, 64),
		sent: make(chan tradeapi.Command, 64),
	}
}

func (s *fakeStream) Send(cmd tradeapi.Command) error {
	select {
	case s.sent <- cmd:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *fakeStream) Recv() (tradeapi.Event, error) {
	select {
	case it, ok := <-s.in:
		if !ok {
			return tradeapi.Event{}, io.EOF
		}
		return it.ev, it.err
	case <-s.ctx.Done():
		return tradeapi.Event{}, s.ctx.Err()
	}
}

func (s *fakeStream) CloseSend() error {
	s.closeSend.Add(1)
	return nil
}

type harness struct {
	client   *Client
	stream   *fakeStream
	clock    *clock.Mock
	releases atomic.Int32
}

func startHarness(t *testing.T, h Handler, opts ...func(*Config, *Params)) *harness {
	t.Helper()
	hs := &harness{stream: newFakeStream(), clock: clock.NewMock()}

	cfg := Config{Clock: hs.clock, Workers: 4, DispatchBuffer: 16}
	p := Params{
		Opener: OpenerFunc(func(ctx context.Context) (Stream, error) {
			hs.stream.ctx = ctx
			return hs.stream, nil
		}),
		Handler: h,
		Release: func() error {
			hs.releases.Add(1)
			return nil
		},
	}
	for _, o := range opts {
		o(&cfg, &p)
	}

	c, err := New(context.Background(), cfg, p)
	require.NoError(t, err)
	hs.client = c
	t.Cleanup(func() { _ = c.Stop() })
	return hs
}

func (h *harness) emit(ev tradeapi.Event) { h.stream.in <- recvItem{ev: ev} }

func (h *harness) fail(err error) { h.stream.in <- recvItem{err: err} }

func (h *harness) nextSent(t *testing.T) tradeapi.Command {
	t.Helper()
	select {
	case cmd := <-h.stream.sent:
		return cmd
	case <-time.After(waitFor):
		t.Fatal("no command written to the stream")
		return tradeapi.Command{}
	}
}

func (h *harness) noMoreSent(t *testing.T) {
	t.Helper()
	select {
	case cmd := <-h.stream.sent:
		t.Fatalf("unexpected command written: %+v", cmd)
	case <-time.After(50 * time.Millisecond):
	}
}

func (h *harness) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-h.client.Done():
	case <-time.After(waitFor):
		t.Fatal("client did not stop")
	}
}

// recorder запоминает вызовы обработчиков.
type recorder struct {
	mu         sync.Mutex
	orders     []*tradeapi.OrderEvent
	trades     []*tradeapi.TradeEvent
	books      []*tradeapi.OrderBookEvent
	portfolios []*tradeapi.PortfolioEvent
	responses  []*tradeapi.ResponseEvent
}

func (r *recorder) handler() HandlerFuncs {
	return HandlerFuncs{
		Order: func(_ context.Context, ev *tradeapi.OrderEvent) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.orders = append(r.orders, ev)
			return nil
		},
		Trade: func(_ context.Context, ev *tradeapi.TradeEvent) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.trades = append(r.trades, ev)
			return nil
		},
		OrderBook: func(_ context.Context, ev *tradeapi.OrderBookEvent) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.books = append(r.books, ev)
			return nil
		},
		Portfolio: func(_ context.Context, ev *tradeapi.PortfolioEvent) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.portfolios = append(r.portfolios, ev)
			return nil
		},
		Response: func(_ context.Context, ev *tradeapi.ResponseEvent) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.responses = append(r.responses, ev)
			return nil
		},
	}
}

func (r *recorder) counts() (orders, trades, books, portfolios, responses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders), len(r.trades), len(r.books), len(r.portfolios), len(r.responses)
}

func (r *recorder) responseIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.responses))
	for _, ev := range r.responses {
		ids = append(ids, ev.RequestID)
	}
	return ids
}

func bookEvent(board, code string) tradeapi.Event {
	return tradeapi.Event{Kind: tradeapi.EventOrderBook, OrderBook: &tradeapi.OrderBookEvent{
		SecurityBoard: board, SecurityCode: code,
		Bids: []tradeapi.OrderBookRow{{Price: 250, Quantity: 1}},
	}}
}

func responseEvent(id string, ok bool) tradeapi.Event {
	return tradeapi.Event{Kind: tradeapi.EventResponse, Response: &tradeapi.ResponseEvent{RequestID: id, Success: ok}}
}
