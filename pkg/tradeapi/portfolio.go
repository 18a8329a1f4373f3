package tradeapi

// PortfolioContent — какие разделы портфеля запросить.
type PortfolioContent struct {
	IncludeCurrencies bool `json:"include_currencies"`
	IncludeMoney      bool `json:"include_money"`
	IncludePositions  bool `json:"include_positions"`
	IncludeMaxBuySell bool `json:"include_max_buy_sell"`
}

// PortfolioAll запрашивает все разделы портфеля.
var PortfolioAll = PortfolioContent{
	IncludeCurrencies: true,
	IncludeMoney:      true,
	IncludePositions:  true,
	IncludeMaxBuySell: true,
}

// PositionRow — позиция портфеля.
type PositionRow struct {
	SecurityCode         string  `json:"security_code"`
	Market               Market  `json:"market"`
	Balance              int64   `json:"balance"`
	CurrentPrice         float64 `json:"current_price"`
	Equity               float64 `json:"equity"`
	AveragePrice         float64 `json:"average_price"`
	Currency             string  `json:"currency"`
	AccumulatedProfit    float64 `json:"accumulated_profit"`
	TodayProfit          float64 `json:"today_profit"`
	UnrealizedProfit     float64 `json:"unrealized_profit"`
	Profit               float64 `json:"profit"`
	MaxBuy               int64   `json:"max_buy"`
	MaxSell              int64   `json:"max_sell"`
	PriceCurrency        string  `json:"price_currency"`
	AveragePriceCurrency string  `json:"average_price_currency"`
	AverageRate          float64 `json:"average_rate"`
}

// CurrencyRow — валютная позиция.
type CurrencyRow struct {
	Name             string  `json:"name"`
	Balance          float64 `json:"balance"`
	CrossRate        float64 `json:"cross_rate"`
	Equity           float64 `json:"equity"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
}

// Money — денежная позиция.
type Money struct {
	Market   Market  `json:"market"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
}

// Portfolio — портфель клиента.
type Portfolio struct {
	ClientID   string           `json:"client_id"`
	Content    PortfolioContent `json:"content"`
	Equity     float64          `json:"equity"`
	Balance    float64          `json:"balance"`
	Positions  []PositionRow    `json:"positions,omitempty"`
	Currencies []CurrencyRow    `json:"currencies,omitempty"`
	Money      []Money          `json:"money,omitempty"`
}
