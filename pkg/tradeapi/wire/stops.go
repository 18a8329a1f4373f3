package wire

import (
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// GetStopsRequest: client_id=1 include_executed=2 include_canceled=3
// include_active=4.
type GetStopsRequest struct {
	ClientID string
	Filter   tradeapi.StopFilter
}

func (r *GetStopsRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.ClientID)
	e.bool(2, r.Filter.IncludeExecuted)
	e.bool(3, r.Filter.IncludeCanceled)
	e.bool(4, r.Filter.IncludeActive)
	return e.result()
}

// GetStopsResult: client_id=1 stops=2.
type GetStopsResult struct {
	ClientID string
	Stops    []tradeapi.Stop
}

func (r *GetStopsResult) UnmarshalProto(b []byte) error {
	*r = GetStopsResult{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.ClientID = f.str()
		case 2:
			s, err := decodeStop(f.b)
			if err != nil {
				return err
			}
			r.Stops = append(r.Stops, s)
		}
		return nil
	})
}

// NewStopRequest: client_id=1 security_board=2 security_code=3 buy_sell=4
// stop_loss=5 take_profit=6 expiration_date=7 link_order=8 valid_before=9.
type NewStopRequest struct {
	Stop tradeapi.NewStopRequest
}

func (r *NewStopRequest) MarshalProto() ([]byte, error) {
	s := r.Stop
	var e encoder
	e.string(1, s.ClientID)
	e.string(2, s.SecurityBoard)
	e.string(3, s.SecurityCode)
	e.int32(4, int32(s.BuySell))
	if s.StopLoss != nil {
		e.nested(5, func(x *encoder) { encodeStopLoss(x, s.StopLoss) })
	}
	if s.TakeProfit != nil {
		e.nested(6, func(x *encoder) { encodeTakeProfit(x, s.TakeProfit) })
	}
	e.timestamp(7, s.ExpirationDate)
	e.int64(8, s.LinkOrder)
	if s.ValidBefore != nil {
		e.nested(9, func(x *encoder) { encodeValidBefore(x, s.ValidBefore) })
	}
	return e.result()
}

// NewStopResult: client_id=1 stop_id=2 security_code=3 security_board=4.
type NewStopResult struct {
	Result tradeapi.NewStopResult
}

func (r *NewStopResult) UnmarshalProto(b []byte) error {
	r.Result = tradeapi.NewStopResult{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.Result.ClientID = f.str()
		case 2:
			r.Result.StopID = f.int32()
		case 3:
			r.Result.SecurityCode = f.str()
		case 4:
			r.Result.SecurityBoard = f.str()
		}
		return nil
	})
}

// CancelStopRequest: client_id=1 stop_id=2.
type CancelStopRequest struct {
	ClientID string
	StopID   int32
}

func (r *CancelStopRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.ClientID)
	e.int32(2, r.StopID)
	return e.result()
}

// CancelStopResult: client_id=1 stop_id=2.
type CancelStopResult struct {
	Result tradeapi.CancelStopResult
}

func (r *CancelStopResult) UnmarshalProto(b []byte) error {
	r.Result = tradeapi.CancelStopResult{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.Result.ClientID = f.str()
		case 2:
			r.Result.StopID = f.int32()
		}
		return nil
	})
}

// StopQuantity и StopPrice: value=1 units=2.
func encodeValueUnits(e *encoder, v float64, units int32) {
	e.double(1, v)
	e.int32(2, units)
}

func decodeValueUnits(b []byte) (v float64, units int32, err error) {
	err = walk(b, func(f field) error {
		switch f.num {
		case 1:
			v = f.double()
		case 2:
			units = f.int32()
		}
		return nil
	})
	return v, units, err
}

// StopLoss: activation_price=1 price=2 market_price=3 quantity=4 time=5
// use_credit=6.
func encodeStopLoss(e *encoder, sl *tradeapi.StopLoss) {
	e.double(1, sl.ActivationPrice)
	e.double(2, sl.Price)
	e.bool(3, sl.MarketPrice)
	e.nested(4, func(s *encoder) { encodeValueUnits(s, sl.Quantity.Value, int32(sl.Quantity.Units)) })
	e.int32(5, sl.Time)
	e.bool(6, sl.UseCredit)
}

func decodeStopLoss(b []byte) (*tradeapi.StopLoss, error) {
	sl := &tradeapi.StopLoss{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			sl.ActivationPrice = f.double()
		case 2:
			sl.Price = f.double()
		case 3:
			sl.MarketPrice = f.bool()
		case 4:
			v, u, err := decodeValueUnits(f.b)
			if err != nil {
				return err
			}
			sl.Quantity = tradeapi.StopQuantity{Value: v, Units: tradeapi.StopQuantityUnits(u)}
		case 5:
			sl.Time = f.int32()
		case 6:
			sl.UseCredit = f.bool()
		}
		return nil
	})
	return sl, err
}

// TakeProfit: activation_price=1 correction_price=2 spread_price=3
// market_price=4 quantity=5 time=6 use_credit=7.
func encodeTakeProfit(e *encoder, tp *tradeapi.TakeProfit) {
	e.double(1, tp.ActivationPrice)
	e.nested(2, func(s *encoder) { encodeValueUnits(s, tp.CorrectionPrice.Value, int32(tp.CorrectionPrice.Units)) })
	e.nested(3, func(s *encoder) { encodeValueUnits(s, tp.SpreadPrice.Value, int32(tp.SpreadPrice.Units)) })
	e.bool(4, tp.MarketPrice)
	e.nested(5, func(s *encoder) { encodeValueUnits(s, tp.Quantity.Value, int32(tp.Quantity.Units)) })
	e.int32(6, tp.Time)
	e.bool(7, tp.UseCredit)
}

func decodeTakeProfit(b []byte) (*tradeapi.TakeProfit, error) {
	tp := &tradeapi.TakeProfit{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			tp.ActivationPrice = f.double()
		case 2, 3:
			v, u, err := decodeValueUnits(f.b)
			if err != nil {
				return err
			}
			p := tradeapi.StopPrice{Value: v, Units: tradeapi.StopPriceUnits(u)}
			if f.num == 2 {
				tp.CorrectionPrice = p
			} else {
				tp.SpreadPrice = p
			}
		case 4:
			tp.MarketPrice = f.bool()
		case 5:
			v, u, err := decodeValueUnits(f.b)
			if err != nil {
				return err
			}
			tp.Quantity = tradeapi.StopQuantity{Value: v, Units: tradeapi.StopQuantityUnits(u)}
		case 6:
			tp.Time = f.int32()
		case 7:
			tp.UseCredit = f.bool()
		}
		return nil
	})
	return tp, err
}

// Stop: stop_id=1 security_code=2 security_board=3 market=4 client_id=5
// buy_sell=6 expiration_date=7 link_order=8 valid_before=9 status=10
// message=11 order_no=12 trade_no=13 accepted_at=14 canceled_at=15
// currency=16 take_profit_extremum=17 take_profit_level=18 stop_loss=19
// take_profit=20.
func encodeStop(e *encoder, s *tradeapi.Stop) {
	e.int32(1, s.StopID)
	e.string(2, s.SecurityCode)
	e.string(3, s.SecurityBoard)
	e.int32(4, int32(s.Market))
	e.string(5, s.ClientID)
	e.int32(6, int32(s.BuySell))
	e.timestamp(7, s.ExpirationDate)
	e.int64(8, s.LinkOrder)
	if s.ValidBefore != nil {
		e.nested(9, func(x *encoder) { encodeValidBefore(x, s.ValidBefore) })
	}
	e.int32(10, int32(s.Status))
	e.string(11, s.Message)
	e.int64(12, s.OrderNo)
	e.int64(13, s.TradeNo)
	e.timestamp(14, s.AcceptedAt)
	e.timestamp(15, s.CanceledAt)
	e.string(16, s.Currency)
	e.double(17, s.TakeProfitExtremum)
	e.double(18, s.TakeProfitLevel)
	if s.StopLoss != nil {
		e.nested(19, func(x *encoder) { encodeStopLoss(x, s.StopLoss) })
	}
	if s.TakeProfit != nil {
		e.nested(20, func(x *encoder) { encodeTakeProfit(x, s.TakeProfit) })
	}
}

func decodeStop(b []byte) (tradeapi.Stop, error) {
	var s tradeapi.Stop
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			s.StopID = f.int32()
		case 2:
			s.SecurityCode = f.str()
		case 3:
			s.SecurityBoard = f.str()
		case 4:
			s.Market = tradeapi.Market(f.int32())
		case 5:
			s.ClientID = f.str()
		case 6:
			s.BuySell = tradeapi.BuySell(f.int32())
		case 7:
			s.ExpirationDate, err = f.timestamp()
		case 8:
			s.LinkOrder = f.int64()
		case 9:
			s.ValidBefore, err = decodeValidBefore(f.b)
		case 10:
			s.Status = tradeapi.StopStatus(f.int32())
		case 11:
			s.Message = f.str()
		case 12:
			s.OrderNo = f.int64()
		case 13:
			s.TradeNo = f.int64()
		case 14:
			s.AcceptedAt, err = f.timestamp()
		case 15:
			s.CanceledAt, err = f.timestamp()
		case 16:
			s.Currency = f.str()
		case 17:
			s.TakeProfitExtremum = f.double()
		case 18:
			s.TakeProfitLevel = f.double()
		case 19:
			s.StopLoss, err = decodeStopLoss(f.b)
		case 20:
			s.TakeProfit, err = decodeTakeProfit(f.b)
		}
		return err
	})
	return s, err
}

// MarshalProto нужен серверной стороне.
func (r *GetStopsResult) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.ClientID)
	for i := range r.Stops {
		s := &r.Stops[i]
		e.nested(2, func(x *encoder) { encodeStop(x, s) })
	}
	return e.result()
}
