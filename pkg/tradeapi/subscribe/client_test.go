package subscribe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

func TestScenario_SubscribeUnsubscribeOrderBook(t *testing.T) {
	rec := &recorder{}
	hs := startHarness(t, rec.handler())
	c := hs.client

	require.NoError(t, c.SubscribeOrderBook("r1", "TQBR", "SBER"))
	require.Equal(t, tradeapi.SubscribeOrderBook("r1", "TQBR", "SBER"), hs.nextSent(t))

	hs.emit(responseEvent("r1", true))
	hs.emit(bookEvent("TQBR", "SBER"))
	hs.emit(bookEvent("TQBR", "SBER"))

	require.Eventually(t, func() bool {
		_, _, books, _, responses := rec.counts()
		return books == 2 && responses == 1
	}, waitFor, 5*time.Millisecond)

	rec.mu.Lock()
	require.Equal(t, "r1", rec.responses[0].RequestID)
	require.True(t, rec.responses[0].Success)
	for _, b := range rec.books {
		require.Equal(t, "TQBR", b.SecurityBoard)
		require.Equal(t, "SBER", b.SecurityCode)
	}
	rec.mu.Unlock()

	require.NoError(t, c.UnsubscribeOrderBook("r1", "TQBR", "SBER"))
	require.Equal(t, tradeapi.UnsubscribeOrderBook("r1", "TQBR", "SBER"), hs.nextSent(t))
	hs.emit(responseEvent("r1", true))

	require.Eventually(t, func() bool {
		_, _, _, _, responses := rec.counts()
		return responses == 2
	}, waitFor, 5*time.Millisecond)

	require.Never(t, func() bool {
		_, _, books, _, _ := rec.counts()
		return books != 2
	}, 50*time.Millisecond, 5*time.Millisecond)
	require.Equal(t, []string{"r1", "r1"}, rec.responseIDs())
}

func TestCorrelation(t *testing.T) {
	rec := &recorder{}
	hs := startHarness(t, rec.handler())
	c := hs.client

	// Сервер отвечает на каждую команду тем же id.
	go func() {
		for cmd := range hs.stream.sent {
			hs.emit(responseEvent(cmd.RequestID, true))
		}
	}()

	require.NoError(t, c.SubscribeOrdersTradesAll("a", []string{"C1"}))
	require.NoError(t, c.SubscribeOrderBook("b", "TQBR", "SBER"))
	require.NoError(t, c.UnsubscribeOrderBook("c", "TQBR", "SBER"))
	require.NoError(t, c.UnsubscribeOrdersTrades("d"))

	require.Eventually(t, func() bool {
		_, _, _, _, responses := rec.counts()
		return responses == 4
	}, waitFor, 5*time.Millisecond)
	require.ElementsMatch(t, []string{"a", "b", "c", "d"}, rec.responseIDs())
}

func TestOrdering_StartOrderMatchesArrival(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	const n = 50
	var (
		mu       sync.Mutex
		finished []string
	)
	h := HandlerFuncs{OrderBook: func(_ context.Context, ev *tradeapi.OrderBookEvent) error {
		// Первые события работают дольше: завершение идёт не по порядку.
		if ev.SecurityCode < "S10" {
			time.Sleep(2 * time.Millisecond)
		}
		mu.Lock()
		finished = append(finished, ev.SecurityCode)
		mu.Unlock()
		return nil
	}}
	hs := startHarness(t, h, func(c *Config, p *Params) {
		c.Workers = 8
		p.TracerProvider = tp
	})

	for i := 0; i < n; i++ {
		hs.emit(bookEvent("TQBR", codeFor(i)))
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(finished) == n
	}, waitFor, 5*time.Millisecond)

	started := sr.Started()
	require.Len(t, started, n)
	for i, s := range started {
		require.Equal(t, int64(i+1), seqOf(s.Attributes()), "span %d started out of order", i)
	}
}

func TestOrdering_SingleWorkerSerial(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	h := HandlerFuncs{OrderBook: func(_ context.Context, ev *tradeapi.OrderBookEvent) error {
		mu.Lock()
		seen = append(seen, ev.SecurityCode)
		mu.Unlock()
		return nil
	}}
	hs := startHarness(t, h, func(c *Config, _ *Params) { c.Workers = 1 })

	want := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		want = append(want, codeFor(i))
		hs.emit(bookEvent("TQBR", codeFor(i)))
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == len(want)
	}, waitFor, 5*time.Millisecond)
	mu.Lock()
	require.Equal(t, want, seen)
	mu.Unlock()
}

func TestKeepAliveCadence(t *testing.T) {
	hs := startHarness(t, nil)

	hs.clock.Add(119 * time.Second)
	hs.noMoreSent(t)

	hs.clock.Add(time.Second)
	require.Equal(t, tradeapi.KeepAlive(DefaultKeepAliveRequestID), hs.nextSent(t))

	// Пользовательская команда между пингами не сбивает период.
	require.NoError(t, hs.client.SubscribeOrderBook("r1", "TQBR", "SBER"))
	require.Equal(t, tradeapi.CommandSubscribeOrderBook, hs.nextSent(t).Kind)

	hs.clock.Add(120 * time.Second)
	require.Equal(t, tradeapi.KeepAlive(DefaultKeepAliveRequestID), hs.nextSent(t))
	hs.noMoreSent(t)
}

func TestKeepAliveCustomConfig(t *testing.T) {
	hs := startHarness(t, nil, func(c *Config, _ *Params) {
		c.KeepAliveInterval = 10 * time.Second
		c.KeepAliveRequestID = "ping"
	})
	require.Equal(t, "ping", hs.client.KeepAliveRequestID())

	for i := 0; i < 3; i++ {
		hs.clock.Add(10 * time.Second)
		require.Equal(t, tradeapi.KeepAlive("ping"), hs.nextSent(t))
	}

	require.True(t, hs.client.IsKeepAlive(&tradeapi.ResponseEvent{RequestID: "ping"}))
	require.False(t, hs.client.IsKeepAlive(&tradeapi.ResponseEvent{RequestID: "r1"}))
	require.False(t, hs.client.IsKeepAlive(nil))
}

func TestDispatch_DiscriminantNotPresence(t *testing.T) {
	rec := &recorder{}
	hs := startHarness(t, rec.handler())

	// Нулевая заявка рядом с непустой сделкой: решает Kind.
	hs.emit(tradeapi.Event{
		Kind:  tradeapi.EventTrade,
		Order: &tradeapi.OrderEvent{},
		Trade: &tradeapi.TradeEvent{TradeNo: 7, SecurityCode: "SBER"},
	})
	require.Eventually(t, func() bool {
		_, trades, _, _, _ := rec.counts()
		return trades == 1
	}, waitFor, 5*time.Millisecond)
	orders, _, _, _, _ := rec.counts()
	require.Zero(t, orders)

	// Присутствующий, но пустой вариант доставляется своему обработчику.
	hs.emit(tradeapi.Event{Kind: tradeapi.EventPortfolio, Portfolio: &tradeapi.PortfolioEvent{}})
	require.Eventually(t, func() bool {
		_, _, _, portfolios, _ := rec.counts()
		return portfolios == 1
	}, waitFor, 5*time.Millisecond)

	// Кадр без варианта не доставляется никому.
	hs.emit(tradeapi.Event{})
	hs.emit(responseEvent("after", true))
	require.Eventually(t, func() bool {
		_, _, _, _, responses := rec.counts()
		return responses == 1
	}, waitFor, 5*time.Millisecond)
	o, tr, b, p, _ := rec.counts()
	require.Equal(t, []int{0, 1, 0, 1}, []int{o, tr, b, p})
}

func TestTeardown_ConcurrentStop(t *testing.T) {
	hs := startHarness(t, nil)
	c := hs.client

	require.NoError(t, c.SubscribeOrderBook("r1", "TQBR", "SBER"))
	hs.nextSent(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Stop()
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int32(1), hs.releases.Load())
	require.Equal(t, StateStopped, c.State())
	require.NoError(t, c.Err())
	require.Equal(t, int32(1), hs.stream.closeSend.Load())

	require.ErrorIs(t, c.SubscribeOrderBook("r2", "TQBR", "SBER"), ErrStopped)
	require.ErrorIs(t, c.UnsubscribeOrdersTrades("r3"), ErrStopped)
	hs.clock.Add(10 * time.Minute)
	hs.noMoreSent(t)

	require.NoError(t, c.Stop())
	require.Equal(t, int32(1), hs.releases.Load())
}

func TestTeardown_ReleaseErrorReturnedToAllCallers(t *testing.T) {
	boom := errors.New("close failed")
	hs := startHarness(t, nil, func(_ *Config, p *Params) {
		p.Release = func() error { return boom }
	})
	require.ErrorIs(t, hs.client.Stop(), boom)
	require.ErrorIs(t, hs.client.Stop(), boom)
}

func TestTransportDiesMidStream(t *testing.T) {
	rec := &recorder{}
	hs := startHarness(t, rec.handler())
	c := hs.client

	hs.emit(bookEvent("TQBR", "SBER"))
	hs.emit(bookEvent("TQBR", "GAZP"))
	require.Eventually(t, func() bool {
		_, _, books, _, _ := rec.counts()
		return books == 2
	}, waitFor, 5*time.Millisecond)

	reset := errors.New("connection reset by peer")
	hs.fail(reset)
	hs.waitDone(t)

	require.Equal(t, StateStopped, c.State())
	require.ErrorIs(t, c.Err(), reset)
	require.Equal(t, int32(1), hs.releases.Load())

	require.ErrorIs(t, c.SubscribeOrderBook("r9", "TQBR", "SBER"), ErrStopped)
	hs.noMoreSent(t)
}

func TestServerClosesStream(t *testing.T) {
	hs := startHarness(t, nil)
	close(hs.stream.in)
	hs.waitDone(t)
	require.ErrorIs(t, hs.client.Err(), ErrStreamClosed)
}

func TestOpenFailure(t *testing.T) {
	refused := errors.New("connection refused")
	var released int
	c, err := New(context.Background(), Config{Clock: clock.NewMock()}, Params{
		Opener: OpenerFunc(func(context.Context) (Stream, error) { return nil, refused }),
		Release: func() error {
			released++
			return nil
		},
	})
	require.NoError(t, err)

	select {
	case <-c.Done():
	case <-time.After(waitFor):
		t.Fatal("client did not stop")
	}
	require.ErrorIs(t, c.Err(), refused)
	require.Equal(t, 1, released)
	require.ErrorIs(t, c.SubscribeOrderBook("r1", "TQBR", "SBER"), ErrStopped)
}

func TestParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newFakeStream()
	c, err := New(ctx, Config{Clock: clock.NewMock()}, Params{
		Opener: OpenerFunc(func(ctx context.Context) (Stream, error) {
			s.ctx = ctx
			return s, nil
		}),
	})
	require.NoError(t, err)
	require.Equal(t, StateRunning, c.State())

	cancel()
	select {
	case <-c.Done():
	case <-time.After(waitFor):
		t.Fatal("client did not stop")
	}
	require.ErrorIs(t, c.Err(), context.Canceled)
}

func TestHandlerFailureIsolated(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	h := HandlerFuncs{Order: func(_ context.Context, ev *tradeapi.OrderEvent) error {
		mu.Lock()
		calls++
		mu.Unlock()
		switch ev.OrderNo {
		case 1:
			return errors.New("handler failed")
		case 2:
			panic("handler exploded")
		}
		return nil
	}}
	hs := startHarness(t, h, func(c *Config, _ *Params) { c.Workers = 1 })

	for i := int64(1); i <= 3; i++ {
		hs.emit(tradeapi.Event{Kind: tradeapi.EventOrder, Order: &tradeapi.OrderEvent{OrderNo: i}})
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 3
	}, waitFor, 5*time.Millisecond)
	require.Equal(t, StateRunning, hs.client.State())
}

func TestSetHandler(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	hs := startHarness(t, first.handler())

	hs.emit(responseEvent("r1", true))
	require.Eventually(t, func() bool {
		_, _, _, _, n := first.counts()
		return n == 1
	}, waitFor, 5*time.Millisecond)

	hs.client.SetHandler(second.handler())
	hs.emit(responseEvent("r2", true))
	require.Eventually(t, func() bool {
		_, _, _, _, n := second.counts()
		return n == 1
	}, waitFor, 5*time.Millisecond)
	require.Equal(t, []string{"r1"}, first.responseIDs())
	require.Equal(t, []string{"r2"}, second.responseIDs())

	// nil сбрасывает на no-op.
	hs.client.SetHandler(nil)
	hs.emit(responseEvent("r3", true))
	hs.emit(bookEvent("TQBR", "SBER"))
	require.Never(t, func() bool {
		_, _, _, _, n := second.counts()
		return n != 1
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestCommandValidation(t *testing.T) {
	hs := startHarness(t, nil)
	c := hs.client

	require.ErrorIs(t, c.SubscribeOrderBook(DefaultKeepAliveRequestID, "TQBR", "SBER"), ErrReservedRequestID)
	require.ErrorIs(t, c.SubscribeOrderBook("r1", "", "SBER"), tradeapi.ErrInvalidCommand)
	require.ErrorIs(t, c.SubscribeOrdersTrades("r1", nil, true, true), tradeapi.ErrInvalidCommand)
	require.ErrorIs(t, c.UnsubscribeOrdersTrades(""), tradeapi.ErrEmptyRequestID)
	hs.noMoreSent(t)
}

func TestCommandsWrittenInFIFOOrder(t *testing.T) {
	hs := startHarness(t, nil)
	c := hs.client

	ids := []string{"q1", "q2", "q3", "q4", "q5"}
	for _, id := range ids {
		require.NoError(t, c.UnsubscribeOrdersTrades(id))
	}
	for _, id := range ids {
		require.Equal(t, id, hs.nextSent(t).RequestID)
	}
}

func TestNew_RequiresOpener(t *testing.T) {
	_, err := New(context.Background(), Config{}, Params{})
	require.Error(t, err)
}

func codeFor(i int) string {
	return "S" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}

func seqOf(attrs []attribute.KeyValue) int64 {
	for _, a := range attrs {
		if a.Key == "event.seq" {
			return a.Value.AsInt64()
		}
	}
	return -1
}

func TestStopAsyncFromHandler(t *testing.T) {
	hs := startHarness(t, nil)
	c := hs.client
	giveUp := errors.New("portfolio below limit")
	c.SetHandler(HandlerFuncs{Portfolio: func(context.Context, *tradeapi.PortfolioEvent) error {
		c.StopAsync(giveUp)
		return nil
	}})

	hs.emit(tradeapi.Event{Kind: tradeapi.EventPortfolio, Portfolio: &tradeapi.PortfolioEvent{ClientID: "C1"}})
	hs.waitDone(t)
	require.ErrorIs(t, c.Err(), giveUp)
	require.Equal(t, int32(1), hs.releases.Load())
}

func TestStopFromHandler(t *testing.T) {
	hs := startHarness(t, nil)
	c := hs.client
	stopped := make(chan error, 1)
	c.SetHandler(HandlerFuncs{Response: func(context.Context, *tradeapi.ResponseEvent) error {
		stopped <- c.Stop()
		return nil
	}})

	hs.emit(responseEvent("r1", true))
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Stop called from a handler did not return")
	}
	hs.waitDone(t)
	require.Equal(t, StateStopped, c.State())
	require.NoError(t, c.Err())
	require.Equal(t, int32(1), hs.releases.Load())
}

func TestStopDoesNotWaitForBlockedHandler(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{})
	var returned atomic.Bool
	hs := startHarness(t, HandlerFuncs{OrderBook: func(context.Context, *tradeapi.OrderBookEvent) error {
		close(entered)
		<-block
		returned.Store(true)
		return nil
	}})
	released := false
	defer func() {
		if !released {
			close(block)
		}
	}()

	hs.emit(bookEvent("TQBR", "SBER"))
	select {
	case <-entered:
	case <-time.After(waitFor):
		t.Fatal("handler was not called")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- hs.client.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Stop waited for a blocked handler")
	}
	require.Equal(t, int32(1), hs.releases.Load())
	require.Equal(t, StateStopped, hs.client.State())
	require.False(t, returned.Load())

	close(block)
	released = true
	require.Eventually(t, returned.Load, waitFor, 5*time.Millisecond)
	require.Equal(t, int32(1), hs.releases.Load())
}
