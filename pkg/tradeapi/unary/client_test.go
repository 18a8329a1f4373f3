package unary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/wire"
)

// fakeInvoker кодирует запрос тем же кодеком, что и транспорт,
// и отдаёт заранее подготовленные байты ответа.
type fakeInvoker struct {
	method  string
	request []byte
	reply   []byte
	err     error
}

func (f *fakeInvoker) Invoke(_ context.Context, method string, req wire.Marshaler, resp wire.Unmarshaler) error {
	f.method = method
	b, err := wire.Codec{}.Marshal(req)
	if err != nil {
		return err
	}
	f.request = b
	if f.err != nil {
		return f.err
	}
	return wire.Codec{}.Unmarshal(f.reply, resp)
}

func marshal(t *testing.T, m wire.Marshaler) []byte {
	t.Helper()
	b, err := m.MarshalProto()
	require.NoError(t, err)
	return b
}

func TestGetActiveOrders(t *testing.T) {
	inv := &fakeInvoker{reply: marshal(t, &wire.GetOrdersResult{
		ClientID: "C1",
		Orders:   []tradeapi.Order{{OrderNo: 10, SecurityCode: "SBER", Status: tradeapi.OrderStatusActive}},
	})}
	c := New(inv, nil, nil)

	orders, err := c.GetActiveOrders(context.Background(), "C1")
	require.NoError(t, err)
	require.Equal(t, wire.MethodGetOrders, inv.method)
	require.Len(t, orders, 1)
	require.Equal(t, int64(10), orders[0].OrderNo)

	want := marshal(t, &wire.GetOrdersRequest{ClientID: "C1", Filter: tradeapi.OrderFilter{IncludeActive: true}})
	require.Equal(t, want, inv.request)
}

func TestGetAllStops(t *testing.T) {
	inv := &fakeInvoker{reply: marshal(t, &wire.GetStopsResult{
		ClientID: "C1",
		Stops:    []tradeapi.Stop{{StopID: 3, StopLoss: &tradeapi.StopLoss{ActivationPrice: 240}}},
	})}
	c := New(inv, nil, nil)

	stops, err := c.GetAllStops(context.Background(), "C1")
	require.NoError(t, err)
	require.Equal(t, wire.MethodGetStops, inv.method)
	require.Len(t, stops, 1)
	require.Equal(t, int32(3), stops[0].StopID)
	require.InDelta(t, 240.0, stops[0].StopLoss.ActivationPrice, 1e-9)
}

func TestNewMarketOrder(t *testing.T) {
	reply := protowire.AppendTag(nil, 1, protowire.BytesType)
	reply = protowire.AppendString(reply, "C1")
	reply = protowire.AppendTag(reply, 2, protowire.VarintType)
	reply = protowire.AppendVarint(reply, 77)

	inv := &fakeInvoker{reply: reply}
	c := New(inv, nil, nil)

	res, err := c.NewMarketOrder(context.Background(), "C1", "TQBR", "SBER", tradeapi.BuySellBuy, 2)
	require.NoError(t, err)
	require.Equal(t, wire.MethodNewOrder, inv.method)
	require.Equal(t, int32(77), res.TransactionID)

	want := marshal(t, &wire.NewOrderRequest{Order: tradeapi.NewOrderRequest{
		ClientID: "C1", SecurityBoard: "TQBR", SecurityCode: "SBER",
		BuySell: tradeapi.BuySellBuy, Quantity: 2, Property: tradeapi.OrderPropertyPutInQueue,
	}})
	require.Equal(t, want, inv.request)
}

func TestNewOrderValidation(t *testing.T) {
	inv := &fakeInvoker{}
	c := New(inv, nil, nil)

	_, err := c.NewLimitOrder(context.Background(), "C1", "TQBR", "SBER", tradeapi.BuySellBuy, 0, 250)
	require.Error(t, err)
	_, err = c.NewOrder(context.Background(), tradeapi.NewOrderRequest{ClientID: "C1", Quantity: 1})
	require.Error(t, err)
	_, err = c.NewStop(context.Background(), tradeapi.NewStopRequest{ClientID: "C1", SecurityBoard: "TQBR", SecurityCode: "SBER"})
	require.Error(t, err)
	require.Empty(t, inv.method, "invalid requests must not reach the server")
}

func TestNewTakeProfit(t *testing.T) {
	inv := &fakeInvoker{reply: []byte{}}
	c := New(inv, nil, nil)

	tp := tradeapi.TakeProfit{ActivationPrice: 270, Quantity: tradeapi.StopQuantity{Value: 1, Units: tradeapi.StopQuantityLots}}
	_, err := c.NewTakeProfit(context.Background(), "C1", "TQBR", "SBER", 55, tradeapi.BuySellSell, tp)
	require.NoError(t, err)
	require.Equal(t, wire.MethodNewStop, inv.method)

	want := marshal(t, &wire.NewStopRequest{Stop: tradeapi.NewStopRequest{
		ClientID: "C1", SecurityBoard: "TQBR", SecurityCode: "SBER",
		LinkOrder: 55, BuySell: tradeapi.BuySellSell, TakeProfit: &tp,
	}})
	require.Equal(t, want, inv.request)
}

func TestGetSecurities(t *testing.T) {
	sec := protowire.AppendTag(nil, 1, protowire.BytesType)
	sec = protowire.AppendString(sec, "SBER")
	reply := protowire.AppendTag(nil, 1, protowire.BytesType)
	reply = protowire.AppendBytes(reply, sec)

	inv := &fakeInvoker{reply: reply}
	c := New(inv, nil, nil)

	secs, err := c.GetSecurities(context.Background(), "", "SBER")
	require.NoError(t, err)
	require.Equal(t, []tradeapi.Security{{Code: "SBER"}}, secs)
	require.Equal(t, wire.MethodGetSecurities, inv.method)
}

func TestFailureHook(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantHook bool
	}{
		{"status error", status.Error(codes.PermissionDenied, "bad token"), true},
		{"plain error", errors.New("codec failure"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hooked []string
			c := New(&fakeInvoker{err: tc.err}, nil, func(method string, _ error) {
				hooked = append(hooked, method)
			})

			_, err := c.CancelOrder(context.Background(), "C1", 1)
			require.ErrorIs(t, err, tc.err)
			if tc.wantHook {
				require.Equal(t, []string{wire.MethodCancelOrder}, hooked)
			} else {
				require.Empty(t, hooked)
			}
		})
	}
}

func TestFailureHook_CallerCancelIgnored(t *testing.T) {
	var hooked bool
	c := New(&fakeInvoker{err: status.Error(codes.Canceled, "canceled")}, nil, func(string, error) { hooked = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetPortfolio(ctx, "C1", tradeapi.PortfolioAll)
	require.Error(t, err)
	require.False(t, hooked)
}
