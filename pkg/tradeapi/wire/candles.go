package wire

import (
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// GetDayCandlesRequest: security_board=1 security_code=2 time_frame=3
// interval=4 {from=1 to=2 count=3} (даты google.type.Date).
type GetDayCandlesRequest struct {
	SecurityBoard string
	SecurityCode  string
	TimeFrame     tradeapi.DayTimeFrame
	Interval      tradeapi.DayInterval
}

func (r *GetDayCandlesRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.SecurityBoard)
	e.string(2, r.SecurityCode)
	e.int32(3, int32(r.TimeFrame))
	e.nested(4, func(s *encoder) {
		s.date(1, r.Interval.From)
		s.date(2, r.Interval.To)
		s.int32(3, r.Interval.Count)
	})
	return e.result()
}

// GetDayCandlesResult: candles=1.
type GetDayCandlesResult struct {
	Candles []tradeapi.DayCandle
}

func (r *GetDayCandlesResult) UnmarshalProto(b []byte) error {
	r.Candles = nil
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var c tradeapi.DayCandle
		err := walk(f.b, func(g field) (err error) {
			switch g.num {
			case 1:
				c.Date, err = g.date()
			case 6:
				c.Volume = g.int64()
			default:
				err = decodeOHLC(g, &c.Open, &c.Close, &c.High, &c.Low)
			}
			return err
		})
		if err != nil {
			return err
		}
		r.Candles = append(r.Candles, c)
		return nil
	})
}

// GetIntradayCandlesRequest совпадает с дневным, но границы интервала
// задаются google.protobuf.Timestamp.
type GetIntradayCandlesRequest struct {
	SecurityBoard string
	SecurityCode  string
	TimeFrame     tradeapi.IntradayTimeFrame
	Interval      tradeapi.IntradayInterval
}

func (r *GetIntradayCandlesRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.SecurityBoard)
	e.string(2, r.SecurityCode)
	e.int32(3, int32(r.TimeFrame))
	e.nested(4, func(s *encoder) {
		s.timestamp(1, r.Interval.From)
		s.timestamp(2, r.Interval.To)
		s.int32(3, r.Interval.Count)
	})
	return e.result()
}

// GetIntradayCandlesResult: candles=1; IntradayCandle: timestamp=1 ...
type GetIntradayCandlesResult struct {
	Candles []tradeapi.IntradayCandle
}

func (r *GetIntradayCandlesResult) UnmarshalProto(b []byte) error {
	r.Candles = nil
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var c tradeapi.IntradayCandle
		err := walk(f.b, func(g field) (err error) {
			switch g.num {
			case 1:
				c.Timestamp, err = g.timestamp()
			case 6:
				c.Volume = g.int64()
			default:
				err = decodeOHLC(g, &c.Open, &c.Close, &c.High, &c.Low)
			}
			return err
		})
		if err != nil {
			return err
		}
		r.Candles = append(r.Candles, c)
		return nil
	})
}

// decodeOHLC разбирает поля open=2 close=3 high=4 low=5 (Decimal
// {num=1 scale=2}), остальные игнорирует.
func decodeOHLC(f field, open, cls, high, low *tradeapi.Decimal) error {
	var dst *tradeapi.Decimal
	switch f.num {
	case 2:
		dst = open
	case 3:
		dst = cls
	case 4:
		dst = high
	case 5:
		dst = low
	default:
		return nil
	}
	var d tradeapi.Decimal
	err := walk(f.b, func(g field) error {
		switch g.num {
		case 1:
			d.Num = g.int64()
		case 2:
			d.Scale = g.uint32()
		}
		return nil
	})
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
