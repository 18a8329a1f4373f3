package tradeapi

// Security — инструмент из справочника GetSecurities.
type Security struct {
	Code      string
	Board     string
	Market    Market
	ShortName string
	Decimals  int32
	LotSize   int32
	MinStep   int32
	Currency  string
}
