package wire

import (
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// GetPortfolioRequest: client_id=1 content=2.
type GetPortfolioRequest struct {
	ClientID string
	Content  tradeapi.PortfolioContent
}

func (r *GetPortfolioRequest) MarshalProto() ([]byte, error) {
	var e encoder
	e.string(1, r.ClientID)
	e.nested(2, func(s *encoder) { encodeContent(s, r.Content) })
	return e.result()
}

// GetPortfolioResult совпадает по схеме с PortfolioEvent.
type GetPortfolioResult struct {
	Portfolio tradeapi.Portfolio
}

func (r *GetPortfolioResult) UnmarshalProto(b []byte) error {
	p, err := decodePortfolio(b)
	if err != nil {
		return err
	}
	r.Portfolio = *p
	return nil
}

// PortfolioContent: include_currencies=1 include_money=2
// include_positions=3 include_max_buy_sell=4.
func encodeContent(e *encoder, c tradeapi.PortfolioContent) {
	e.bool(1, c.IncludeCurrencies)
	e.bool(2, c.IncludeMoney)
	e.bool(3, c.IncludePositions)
	e.bool(4, c.IncludeMaxBuySell)
}

func decodeContent(b []byte) (tradeapi.PortfolioContent, error) {
	var c tradeapi.PortfolioContent
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			c.IncludeCurrencies = f.bool()
		case 2:
			c.IncludeMoney = f.bool()
		case 3:
			c.IncludePositions = f.bool()
		case 4:
			c.IncludeMaxBuySell = f.bool()
		}
		return nil
	})
	return c, err
}

// Portfolio: client_id=1 content=2 equity=3 balance=4 positions=5
// currencies=6 money=7.
func encodePortfolio(e *encoder, p *tradeapi.Portfolio) {
	if p == nil {
		return
	}
	e.string(1, p.ClientID)
	e.nested(2, func(s *encoder) { encodeContent(s, p.Content) })
	e.double(3, p.Equity)
	e.double(4, p.Balance)
	for i := range p.Positions {
		pos := &p.Positions[i]
		e.nested(5, func(s *encoder) { encodePosition(s, pos) })
	}
	for _, c := range p.Currencies {
		e.nested(6, func(s *encoder) {
			s.string(1, c.Name)
			s.double(2, c.Balance)
			s.double(3, c.CrossRate)
			s.double(4, c.Equity)
			s.double(5, c.UnrealizedProfit)
		})
	}
	for _, m := range p.Money {
		e.nested(7, func(s *encoder) {
			s.int32(1, int32(m.Market))
			s.string(2, m.Currency)
			s.double(3, m.Balance)
		})
	}
}

func decodePortfolio(b []byte) (*tradeapi.Portfolio, error) {
	p := &tradeapi.Portfolio{}
	err := walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.ClientID = f.str()
		case 2:
			p.Content, err = decodeContent(f.b)
		case 3:
			p.Equity = f.double()
		case 4:
			p.Balance = f.double()
		case 5:
			var pos tradeapi.PositionRow
			if pos, err = decodePosition(f.b); err == nil {
				p.Positions = append(p.Positions, pos)
			}
		case 6:
			var c tradeapi.CurrencyRow
			err = walk(f.b, func(g field) error {
				switch g.num {
				case 1:
					c.Name = g.str()
				case 2:
					c.Balance = g.double()
				case 3:
					c.CrossRate = g.double()
				case 4:
					c.Equity = g.double()
				case 5:
					c.UnrealizedProfit = g.double()
				}
				return nil
			})
			p.Currencies = append(p.Currencies, c)
		case 7:
			var m tradeapi.Money
			err = walk(f.b, func(g field) error {
				switch g.num {
				case 1:
					m.Market = tradeapi.Market(g.int32())
				case 2:
					m.Currency = g.str()
				case 3:
					m.Balance = g.double()
				}
				return nil
			})
			p.Money = append(p.Money, m)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PositionRow: security_code=1 market=2 balance=3 current_price=4 equity=5
// average_price=6 currency=7 accumulated_profit=8 today_profit=9
// unrealized_profit=10 profit=11 max_buy=12 max_sell=13 price_currency=14
// average_price_currency=15 average_rate=16.
func encodePosition(e *encoder, p *tradeapi.PositionRow) {
	e.string(1, p.SecurityCode)
	e.int32(2, int32(p.Market))
	e.int64(3, p.Balance)
	e.double(4, p.CurrentPrice)
	e.double(5, p.Equity)
	e.double(6, p.AveragePrice)
	e.string(7, p.Currency)
	e.double(8, p.AccumulatedProfit)
	e.double(9, p.TodayProfit)
	e.double(10, p.UnrealizedProfit)
	e.double(11, p.Profit)
	e.int64(12, p.MaxBuy)
	e.int64(13, p.MaxSell)
	e.string(14, p.PriceCurrency)
	e.string(15, p.AveragePriceCurrency)
	e.double(16, p.AverageRate)
}

func decodePosition(b []byte) (tradeapi.PositionRow, error) {
	var p tradeapi.PositionRow
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			p.SecurityCode = f.str()
		case 2:
			p.Market = tradeapi.Market(f.int32())
		case 3:
			p.Balance = f.int64()
		case 4:
			p.CurrentPrice = f.double()
		case 5:
			p.Equity = f.double()
		case 6:
			p.AveragePrice = f.double()
		case 7:
			p.Currency = f.str()
		case 8:
			p.AccumulatedProfit = f.double()
		case 9:
			p.TodayProfit = f.double()
		case 10:
			p.UnrealizedProfit = f.double()
		case 11:
			p.Profit = f.double()
		case 12:
			p.MaxBuy = f.int64()
		case 13:
			p.MaxSell = f.int64()
		case 14:
			p.PriceCurrency = f.str()
		case 15:
			p.AveragePriceCurrency = f.str()
		case 16:
			p.AverageRate = f.double()
		}
		return nil
	})
	return p, err
}
