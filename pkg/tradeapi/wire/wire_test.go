package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// msg собирает вложенное сообщение вручную, независимо от encoder.
func msg(num protowire.Number, body []byte) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func str(num protowire.Number, s string) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func varint(num protowire.Number, v uint64) []byte {
	b := protowire.AppendTag(nil, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestCommandFrame_OrderBookSubscribe(t *testing.T) {
	f := CommandFrame{Command: tradeapi.SubscribeOrderBook("r1", "TQBR", "SBER")}
	got, err := f.MarshalProto()
	require.NoError(t, err)

	want := msg(1, join(str(1, "r1"), str(2, "SBER"), str(3, "TQBR")))
	require.Equal(t, want, got)
}

func TestCommandFrame_Variants(t *testing.T) {
	cases := []struct {
		name string
		cmd  tradeapi.Command
		want []byte
	}{
		{
			"unsubscribe book",
			tradeapi.UnsubscribeOrderBook("r1", "TQBR", "SBER"),
			msg(2, join(str(1, "r1"), str(2, "SBER"), str(3, "TQBR"))),
		},
		{
			"orders trades",
			tradeapi.SubscribeOrdersTrades("r2", []string{"C1", "C2"}, true, false),
			msg(3, join(str(1, "r2"), varint(2, 1), str(4, "C1"), str(4, "C2"))),
		},
		{
			"unsubscribe orders trades",
			tradeapi.UnsubscribeOrdersTrades("r3"),
			msg(4, str(1, "r3")),
		},
		{
			"keepalive",
			tradeapi.KeepAlive("keepAliveRequest"),
			msg(5, str(1, "keepAliveRequest")),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := CommandFrame{Command: c.cmd}
			got, err := f.MarshalProto()
			require.NoError(t, err)
			require.Equal(t, c.want, got)

			var back CommandFrame
			require.NoError(t, back.UnmarshalProto(got))
			require.Equal(t, c.cmd.Kind, back.Command.Kind)
			require.Equal(t, c.cmd.RequestID, back.Command.RequestID)
		})
	}
}

func TestCommandFrame_UnknownKind(t *testing.T) {
	f := CommandFrame{Command: tradeapi.Command{RequestID: "x"}}
	_, err := f.MarshalProto()
	require.Error(t, err)
}

func TestEventFrame_EmptyVariantIsPresent(t *testing.T) {
	// Пустая заявка всё равно выбирает вариант order.
	var f EventFrame
	require.NoError(t, f.UnmarshalProto(msg(1, nil)))
	require.Equal(t, tradeapi.EventOrder, f.Event.Kind)
	require.NotNil(t, f.Event.Order)
	require.Equal(t, tradeapi.OrderEvent{}, *f.Event.Order)
}

func TestEventFrame_ZeroOrderThenTrade(t *testing.T) {
	b := join(
		msg(1, nil),
		msg(2, join(str(1, "SBER"), varint(2, 42))),
	)
	var f EventFrame
	require.NoError(t, f.UnmarshalProto(b))
	require.Equal(t, tradeapi.EventTrade, f.Event.Kind)
	require.Nil(t, f.Event.Order)
	require.Equal(t, "SBER", f.Event.Trade.SecurityCode)
	require.Equal(t, int64(42), f.Event.Trade.TradeNo)
}

func TestEventFrame_UnknownFieldsSkipped(t *testing.T) {
	b := join(
		varint(99, 7),
		msg(42, []byte("junk")),
		msg(5, join(str(1, "r1"), varint(2, 1), varint(77, 3))),
	)
	var f EventFrame
	require.NoError(t, f.UnmarshalProto(b))
	require.Equal(t, tradeapi.EventResponse, f.Event.Kind)
	require.Equal(t, "r1", f.Event.Response.RequestID)
	require.True(t, f.Event.Response.Success)
}

func TestEventFrame_NoVariant(t *testing.T) {
	var f EventFrame
	require.NoError(t, f.UnmarshalProto(varint(99, 1)))
	require.Equal(t, tradeapi.EventUnknown, f.Event.Kind)
}

func TestEventFrame_Truncated(t *testing.T) {
	b := msg(2, str(1, "SBER"))
	var f EventFrame
	require.Error(t, f.UnmarshalProto(b[:len(b)-2]))
}

func TestEventFrame_RoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []tradeapi.Event{
		{Kind: tradeapi.EventOrder, Order: &tradeapi.OrderEvent{
			OrderNo: 7, TransactionID: 3, SecurityCode: "SBER", ClientID: "C1",
			Status: tradeapi.OrderStatusActive, BuySell: tradeapi.BuySellBuy,
			CreatedAt: created, Price: 250.5, Quantity: 10, Balance: 4,
			Condition:   &tradeapi.OrderCondition{Type: tradeapi.OrderConditionBid, Price: 249},
			ValidBefore: &tradeapi.OrderValidBefore{Type: tradeapi.ValidBeforeTillCancelled},
			SecurityBoard: "TQBR", Market: tradeapi.MarketStock,
		}},
		{Kind: tradeapi.EventOrderBook, OrderBook: &tradeapi.OrderBookEvent{
			SecurityCode: "SBER", SecurityBoard: "TQBR",
			Asks: []tradeapi.OrderBookRow{{Price: 251, Quantity: 5}},
			Bids: []tradeapi.OrderBookRow{{Price: 250, Quantity: 3}, {Price: 249.5, Quantity: 1}},
		}},
		{Kind: tradeapi.EventPortfolio, Portfolio: &tradeapi.PortfolioEvent{
			ClientID: "C1", Content: tradeapi.PortfolioAll, Equity: 1000, Balance: 900,
			Positions:  []tradeapi.PositionRow{{SecurityCode: "SBER", Market: tradeapi.MarketStock, Balance: 10}},
			Currencies: []tradeapi.CurrencyRow{{Name: "RUB", Balance: 900, CrossRate: 1}},
			Money:      []tradeapi.Money{{Market: tradeapi.MarketStock, Currency: "RUB", Balance: 900}},
		}},
		{Kind: tradeapi.EventResponse, Response: &tradeapi.ResponseEvent{
			RequestID: "r1", Errors: []tradeapi.Error{{Code: "E1", Message: "bad board"}},
		}},
	}
	for _, ev := range events {
		t.Run(ev.Kind.String(), func(t *testing.T) {
			out := EventFrame{Event: ev}
			b, err := out.MarshalProto()
			require.NoError(t, err)

			var in EventFrame
			require.NoError(t, in.UnmarshalProto(b))
			require.Equal(t, ev, in.Event)
		})
	}
}

func TestGetSecuritiesRequest_StringValues(t *testing.T) {
	r := GetSecuritiesRequest{Board: "TQBR"}
	got, err := r.MarshalProto()
	require.NoError(t, err)

	board, err := proto.Marshal(wrapperspb.String("TQBR"))
	require.NoError(t, err)
	require.Equal(t, msg(1, board), got)
}

func TestGetSecuritiesResult(t *testing.T) {
	sec := join(str(1, "SBER"), str(2, "TQBR"), varint(3, 1), str(4, "Сбербанк"),
		varint(5, 2), varint(6, 10), varint(7, 1), str(8, "RUB"))
	var r GetSecuritiesResult
	require.NoError(t, r.UnmarshalProto(msg(1, sec)))
	require.Equal(t, []tradeapi.Security{{
		Code: "SBER", Board: "TQBR", Market: tradeapi.MarketStock, ShortName: "Сбербанк",
		Decimals: 2, LotSize: 10, MinStep: 1, Currency: "RUB",
	}}, r.Securities)
}

func TestGetDayCandlesResult(t *testing.T) {
	dec := func(num protowire.Number, v int64, scale uint64) []byte {
		return msg(num, join(varint(1, uint64(v)), varint(2, scale)))
	}
	candle := join(
		msg(1, join(varint(1, 2024), varint(2, 3), varint(3, 1))),
		dec(2, 25050, 2), dec(3, 25100, 2), dec(4, 25200, 2), dec(5, 24900, 2),
		varint(6, 1000),
	)
	var r GetDayCandlesResult
	require.NoError(t, r.UnmarshalProto(msg(1, candle)))
	require.Len(t, r.Candles, 1)
	c := r.Candles[0]
	require.Equal(t, tradeapi.Date{Year: 2024, Month: 3, Day: 1}, c.Date)
	require.InDelta(t, 250.5, c.Open.Float64(), 1e-9)
	require.InDelta(t, 249.0, c.Low.Float64(), 1e-9)
	require.Equal(t, int64(1000), c.Volume)
}

func TestGetIntradayCandlesRequest(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := GetIntradayCandlesRequest{
		SecurityBoard: "TQBR", SecurityCode: "SBER",
		TimeFrame: tradeapi.IntradayTimeFrameM5,
		Interval:  tradeapi.IntradayInterval{From: from, Count: 100},
	}
	got, err := r.MarshalProto()
	require.NoError(t, err)

	ts, err := proto.Marshal(timestamppb.New(from))
	require.NoError(t, err)
	want := join(str(1, "TQBR"), str(2, "SBER"), varint(3, 2),
		msg(4, join(msg(1, ts), varint(3, 100))))
	require.Equal(t, want, got)
}

func TestNewOrderRequest_MarketHasNoPrice(t *testing.T) {
	r := NewOrderRequest{Order: tradeapi.NewOrderRequest{
		ClientID: "C1", SecurityBoard: "TQBR", SecurityCode: "SBER",
		BuySell: tradeapi.BuySellSell, Quantity: 1,
	}}
	got, err := r.MarshalProto()
	require.NoError(t, err)
	require.Equal(t, join(str(1, "C1"), str(2, "TQBR"), str(3, "SBER"), varint(4, 1), varint(5, 1)), got)

	price := 0.0
	r.Order.Price = &price
	got, err = r.MarshalProto()
	require.NoError(t, err)
	// Нулевая цена лимитной заявки передаётся как присутствующий DoubleValue.
	require.Equal(t, join(str(1, "C1"), str(2, "TQBR"), str(3, "SBER"), varint(4, 1), varint(5, 1), msg(7, nil)), got)
}

func TestGetStopsResult_RoundTrip(t *testing.T) {
	in := GetStopsResult{ClientID: "C1", Stops: []tradeapi.Stop{{
		StopID: 5, SecurityCode: "SBER", SecurityBoard: "TQBR", ClientID: "C1",
		BuySell: tradeapi.BuySellSell, Status: tradeapi.StopStatusActive,
		StopLoss: &tradeapi.StopLoss{
			ActivationPrice: 240, MarketPrice: true,
			Quantity: tradeapi.StopQuantity{Value: 1, Units: tradeapi.StopQuantityLots},
		},
		TakeProfit: &tradeapi.TakeProfit{
			ActivationPrice: 270,
			CorrectionPrice: tradeapi.StopPrice{Value: 0.5, Units: tradeapi.StopPricePercent},
			Quantity:        tradeapi.StopQuantity{Value: 100, Units: tradeapi.StopQuantityPercent},
		},
	}}}
	b, err := in.MarshalProto()
	require.NoError(t, err)

	var out GetStopsResult
	require.NoError(t, out.UnmarshalProto(b))
	require.Equal(t, in, out)
}

func TestGetOrdersResult_RoundTrip(t *testing.T) {
	in := GetOrdersResult{ClientID: "C1", Orders: []tradeapi.Order{
		{OrderNo: 1, SecurityCode: "SBER", Status: tradeapi.OrderStatusMatched},
		{OrderNo: 2, SecurityCode: "GAZP", Status: tradeapi.OrderStatusActive},
	}}
	b, err := in.MarshalProto()
	require.NoError(t, err)

	var out GetOrdersResult
	require.NoError(t, out.UnmarshalProto(b))
	require.Equal(t, in, out)
}

func TestCodec(t *testing.T) {
	var c Codec
	require.Equal(t, "proto", c.Name())

	b, err := c.Marshal(&CancelOrderRequest{ClientID: "C1", TransactionID: 9})
	require.NoError(t, err)
	require.Equal(t, join(str(1, "C1"), varint(2, 9)), b)

	var res CancelOrderResult
	require.NoError(t, c.Unmarshal(b, &res))
	require.Equal(t, tradeapi.CancelOrderResult{ClientID: "C1", TransactionID: 9}, res.Result)

	// well-known types идут через proto.
	b, err = c.Marshal(wrapperspb.String("x"))
	require.NoError(t, err)
	var sv wrapperspb.StringValue
	require.NoError(t, c.Unmarshal(b, &sv))
	require.Equal(t, "x", sv.GetValue())

	_, err = c.Marshal(42)
	require.Error(t, err)
}
