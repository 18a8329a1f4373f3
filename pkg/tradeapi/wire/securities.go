package wire

import (
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// GetSecuritiesRequest: board=1 seccode=2 (google.protobuf.StringValue).
// Пустые фильтры не передаются.
type GetSecuritiesRequest struct {
	Board string
	Code  string
}

func (r *GetSecuritiesRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.stringValue(1, r.Board)
	e.stringValue(2, r.Code)
	return e.result()
}

// GetSecuritiesResult: securities=1; Security: code=1 board=2 market=3
// short_name=4 decimals=5 lot_size=6 min_step=7 currency=8.
type GetSecuritiesResult struct {
	Securities []tradeapi.Security
}

func (r *GetSecuritiesResult) UnmarshalProto(b []byte) error {
	r.Securities = nil
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var s tradeapi.Security
		err := walk(f.b, func(g field) error {
			switch g.num {
			case 1:
				s.Code = g.str()
			case 2:
				s.Board = g.str()
			case 3:
				s.Market = tradeapi.Market(g.int32())
			case 4:
				s.ShortName = g.str()
			case 5:
				s.Decimals = g.int32()
			case 6:
				s.LotSize = g.int32()
			case 7:
				s.MinStep = g.int32()
			case 8:
				s.Currency = g.str()
			}
			return nil
		})
		if err != nil {
			return err
		}
		r.Securities = append(r.Securities, s)
		return nil
	})
}
