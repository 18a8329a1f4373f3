package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// Order: order_no=1 transaction_id=2 security_code=3 client_id=4 status=5
// buy_sell=6 created_at=7 price=8 quantity=9 balance=10 message=11
// currency=12 condition=13 valid_before=14 accepted_at=15
// security_board=16 market=17.
func encodeOrder(e *encoder, o *tradeapi.Order) {
	if o == nil {
		return
	}
	e.int64(1, o.OrderNo)
	e.int32(2, o.TransactionID)
	e.string(3, o.SecurityCode)
	e.string(4, o.ClientID)
	e.int32(5, int32(o.Status))
	e.int32(6, int32(o.BuySell))
	e.timestamp(7, o.CreatedAt)
	e.double(8, o.Price)
	e.int32(9, o.Quantity)
	e.int32(10, o.Balance)
	e.string(11, o.Message)
	e.string(12, o.Currency)
	if o.Condition != nil {
		e.nested(13, func(s *encoder) { encodeCondition(s, o.Condition) })
	}
	if o.ValidBefore != nil {
		e.nested(14, func(s *encoder) { encodeValidBefore(s, o.ValidBefore) })
	}
	e.timestamp(15, o.AcceptedAt)
	e.string(16, o.SecurityBoard)
	e.int32(17, int32(o.Market))
}

func decodeOrder(b []byte) (*tradeapi.Order, error) {
	o := &tradeapi.Order{}
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			o.OrderNo = f.int64()
		case 2:
			o.TransactionID = f.int32()
		case 3:
			o.SecurityCode = f.str()
		case 4:
			o.ClientID = f.str()
		case 5:
			o.Status = tradeapi.OrderStatus(f.int32())
		case 6:
			o.BuySell = tradeapi.BuySell(f.int32())
		case 7:
			o.CreatedAt, err = f.timestamp()
		case 8:
			o.Price = f.double()
		case 9:
			o.Quantity = f.int32()
		case 10:
			o.Balance = f.int32()
		case 11:
			o.Message = f.str()
		case 12:
			o.Currency = f.str()
		case 13:
			o.Condition, err = decodeCondition(f.b)
		case 14:
			o.ValidBefore, err = decodeValidBefore(f.b)
		case 15:
			o.AcceptedAt, err = f.timestamp()
		case 16:
			o.SecurityBoard = f.str()
		case 17:
			o.Market = tradeapi.Market(f.int32())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// OrderCondition: type=1 price=2 time=3.
func encodeCondition(e *encoder, c *tradeapi.OrderCondition) {
	e.int32(1, int32(c.Type))
	e.double(2, c.Price)
	e.timestamp(3, c.Time)
}

func decodeCondition(b []byte) (*tradeapi.OrderCondition, error) {
	c := &tradeapi.OrderCondition{}
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			c.Type = tradeapi.OrderConditionType(f.int32())
		case 2:
			c.Price = f.double()
		case 3:
			c.Time, err = f.timestamp()
		}
		return err
	})
	return c, err
}

// OrderValidBefore: type=1 time=2.
func encodeValidBefore(e *encoder, v *tradeapi.OrderValidBefore) {
	e.int32(1, int32(v.Type))
	e.timestamp(2, v.Time)
}

func decodeValidBefore(b []byte) (*tradeapi.OrderValidBefore, error) {
	v := &tradeapi.OrderValidBefore{}
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			v.Type = tradeapi.OrderValidBeforeType(f.int32())
		case 2:
			v.Time, err = f.timestamp()
		}
		return err
	})
	return v, err
}

// TradeEvent: security_code=1 trade_no=2 order_no=3 security_board=4
// client_id=5 created_at=6 quantity=7 price=8 value=9 buy_sell=10
// commission=11 currency=12 accrued_interest=13.
func encodeTrade(e *encoder, t *tradeapi.TradeEvent) {
	if t == nil {
		return
	}
	e.string(1, t.SecurityCode)
	e.int64(2, t.TradeNo)
	e.int64(3, t.OrderNo)
	e.string(4, t.SecurityBoard)
	e.string(5, t.ClientID)
	e.timestamp(6, t.CreatedAt)
	e.int64(7, t.Quantity)
	e.double(8, t.Price)
	e.double(9, t.Value)
	e.int32(10, int32(t.BuySell))
	e.double(11, t.Commission)
	e.string(12, t.Currency)
	e.double(13, t.AccruedInterest)
}

func decodeTrade(b []byte) (*tradeapi.TradeEvent, error) {
	t := &tradeapi.TradeEvent{}
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			t.SecurityCode = f.str()
		case 2:
			t.TradeNo = f.int64()
		case 3:
			t.OrderNo = f.int64()
		case 4:
			t.SecurityBoard = f.str()
		case 5:
			t.ClientID = f.str()
		case 6:
			t.CreatedAt, err = f.timestamp()
		case 7:
			t.Quantity = f.int64()
		case 8:
			t.Price = f.double()
		case 9:
			t.Value = f.double()
		case 10:
			t.BuySell = tradeapi.BuySell(f.int32())
		case 11:
			t.Commission = f.double()
		case 12:
			t.Currency = f.str()
		case 13:
			t.AccruedInterest = f.double()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// OrderBookEvent: security_code=1 security_board=2 asks=3 bids=4;
// OrderBookRow: price=1 quantity=2.
func encodeOrderBook(e *encoder, ob *tradeapi.OrderBookEvent) {
	if ob == nil {
		return
	}
	e.string(1, ob.SecurityCode)
	e.string(2, ob.SecurityBoard)
	rows := func(n protowire.Number, rs []tradeapi.OrderBookRow) {
		for _, r := range rs {
			e.nested(n, func(s *encoder) {
				s.double(1, r.Price)
				s.int64(2, r.Quantity)
			})
		}
	}
	rows(3, ob.Asks)
	rows(4, ob.Bids)
}

func decodeOrderBook(b []byte) (*tradeapi.OrderBookEvent, error) {
	ob := &tradeapi.OrderBookEvent{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			ob.SecurityCode = f.str()
		case 2:
			ob.SecurityBoard = f.str()
		case 3, 4:
			var row tradeapi.OrderBookRow
			if err := walk(f.b, func(g field) error {
				switch g.num {
				case 1:
					row.Price = g.double()
				case 2:
					row.Quantity = g.int64()
				}
				return nil
			}); err != nil {
				return err
			}
			if f.num == 3 {
				ob.Asks = append(ob.Asks, row)
			} else {
				ob.Bids = append(ob.Bids, row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ob, nil
}

// ResponseEvent: request_id=1 success=2 errors=3; Error: code=1 message=2.
func encodeResponse(e *encoder, r *tradeapi.ResponseEvent) {
	if r == nil {
		return
	}
	e.string(1, r.RequestID)
	e.bool(2, r.Success)
	for _, er := range r.Errors {
		e.nested(3, func(s *encoder) {
			s.string(1, er.Code)
			s.string(2, er.Message)
		})
	}
}

func decodeResponse(b []byte) (*tradeapi.ResponseEvent, error) {
	r := &tradeapi.ResponseEvent{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.RequestID = f.str()
		case 2:
			r.Success = f.bool()
		case 3:
			var er tradeapi.Error
			if err := walk(f.b, func(g field) error {
				switch g.num {
				case 1:
					er.Code = g.str()
				case 2:
					er.Message = g.str()
				}
				return nil
			}); err != nil {
				return err
			}
			r.Errors = append(r.Errors, er)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
