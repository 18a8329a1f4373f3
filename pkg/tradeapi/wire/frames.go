package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// Номера вариантов oneof SubscriptionRequest.payload.
const (
	subOrderBookSubscribe    protowire.Number = 1
	subOrderBookUnsubscribe  protowire.Number = 2
	subOrderTradeSubscribe   protowire.Number = 3
	subOrderTradeUnsubscribe protowire.Number = 4
	subKeepAlive             protowire.Number = 5
)

// Номера вариантов oneof Event.payload.
const (
	evOrder     protowire.Number = 1
	evTrade     protowire.Number = 2
	evOrderBook protowire.Number = 3
	evPortfolio protowire.Number = 4
	evResponse  protowire.Number = 5
)

// CommandFrame — SubscriptionRequest, исходящее сообщение GetEvents.
type CommandFrame struct {
	Command tradeapi.Command
}

func (f *CommandFrame) MarshalProto() ([]byte, error) {
	c := f.Command
	var e encoder
	switch c.Kind {
	case tradeapi.CommandSubscribeOrderBook, tradeapi.CommandUnsubscribeOrderBook:
		num := subOrderBookSubscribe
		if c.Kind == tradeapi.CommandUnsubscribeOrderBook {
			num = subOrderBookUnsubscribe
		}
		e.nested(num, func(s *encoder) {
			s.string(1, c.RequestID)
			s.string(2, c.SecurityCode)
			s.string(3, c.SecurityBoard)
		})
	case tradeapi.CommandSubscribeOrdersTrades:
		e.nested(subOrderTradeSubscribe, func(s *encoder) {
			s.string(1, c.RequestID)
			s.bool(2, c.IncludeTrades)
			s.bool(3, c.IncludeOrders)
			s.strings(4, c.ClientIDs)
		})
	case tradeapi.CommandUnsubscribeOrdersTrades:
		e.nested(subOrderTradeUnsubscribe, func(s *encoder) { s.string(1, c.RequestID) })
	case tradeapi.CommandKeepAlive:
		e.nested(subKeepAlive, func(s *encoder) { s.string(1, c.RequestID) })
	default:
		return nil, fmt.Errorf("wire: unknown command kind %d", c.Kind)
	}
	return e.result()
}

// UnmarshalProto нужен серверной стороне (тестовые серверы, эмуляторы).
func (f *CommandFrame) UnmarshalProto(b []byte) error {
	f.Command = tradeapi.Command{}
	return walk(b, func(fl field) error {
		if fl.typ != protowire.BytesType {
			return nil
		}
		var kind tradeapi.CommandKind
		switch fl.num {
		case subOrderBookSubscribe:
			kind = tradeapi.CommandSubscribeOrderBook
		case subOrderBookUnsubscribe:
			kind = tradeapi.CommandUnsubscribeOrderBook
		case subOrderTradeSubscribe:
			kind = tradeapi.CommandSubscribeOrdersTrades
		case subOrderTradeUnsubscribe:
			kind = tradeapi.CommandUnsubscribeOrdersTrades
		case subKeepAlive:
			kind = tradeapi.CommandKeepAlive
		default:
			return nil
		}
		cmd := tradeapi.Command{Kind: kind}
		err := walk(fl.b, func(g field) error {
			switch {
			case g.num == 1:
				cmd.RequestID = g.str()
			case kind == tradeapi.CommandSubscribeOrdersTrades && g.num == 2:
				cmd.IncludeTrades = g.bool()
			case kind == tradeapi.CommandSubscribeOrdersTrades && g.num == 3:
				cmd.IncludeOrders = g.bool()
			case kind == tradeapi.CommandSubscribeOrdersTrades && g.num == 4:
				cmd.ClientIDs = append(cmd.ClientIDs, g.str())
			case (kind == tradeapi.CommandSubscribeOrderBook || kind == tradeapi.CommandUnsubscribeOrderBook) && g.num == 2:
				cmd.SecurityCode = g.str()
			case (kind == tradeapi.CommandSubscribeOrderBook || kind == tradeapi.CommandUnsubscribeOrderBook) && g.num == 3:
				cmd.SecurityBoard = g.str()
			}
			return nil
		})
		if err != nil {
			return err
		}
		f.Command = cmd
		return nil
	})
}

// EventFrame — Event, входящее сообщение GetEvents.
type EventFrame struct {
	Event tradeapi.Event
}

// UnmarshalProto выставляет Event.Kind по номеру присутствующего варианта
// oneof. Пустой, но присутствующий вариант тоже считается выбранным;
// при повторе побеждает последний вариант.
func (f *EventFrame) UnmarshalProto(b []byte) error {
	f.Event = tradeapi.Event{}
	return walk(b, func(fl field) error {
		if fl.typ != protowire.BytesType {
			return nil
		}
		var (
			ev  tradeapi.Event
			err error
		)
		switch fl.num {
		case evOrder:
			ev.Kind = tradeapi.EventOrder
			ev.Order, err = decodeOrder(fl.b)
		case evTrade:
			ev.Kind = tradeapi.EventTrade
			ev.Trade, err = decodeTrade(fl.b)
		case evOrderBook:
			ev.Kind = tradeapi.EventOrderBook
			ev.OrderBook, err = decodeOrderBook(fl.b)
		case evPortfolio:
			ev.Kind = tradeapi.EventPortfolio
			ev.Portfolio, err = decodePortfolio(fl.b)
		case evResponse:
			ev.Kind = tradeapi.EventResponse
			ev.Response, err = decodeResponse(fl.b)
		default:
			return nil
		}
		if err != nil {
			return fmt.Errorf("wire: event %s: %w", ev.Kind, err)
		}
		f.Event = ev
		return nil
	})
}

func (f *EventFrame) MarshalProto() ([]byte, error) {
	ev := f.Event
	var e encoder
	switch ev.Kind {
	case tradeapi.EventOrder:
		e.nested(evOrder, func(s *encoder) { encodeOrder(s, ev.Order) })
	case tradeapi.EventTrade:
		e.nested(evTrade, func(s *encoder) { encodeTrade(s, ev.Trade) })
	case tradeapi.EventOrderBook:
		e.nested(evOrderBook, func(s *encoder) { encodeOrderBook(s, ev.OrderBook) })
	case tradeapi.EventPortfolio:
		e.nested(evPortfolio, func(s *encoder) { encodePortfolio(s, ev.Portfolio) })
	case tradeapi.EventResponse:
		e.nested(evResponse, func(s *encoder) { encodeResponse(s, ev.Response) })
	default:
		return nil, fmt.Errorf("wire: unknown event kind %d", ev.Kind)
	}
	return e.result()
}
