package tradeapi

import "time"

// StopQuantity — объём стоп-заявки.
type StopQuantity struct {
	Value float64
	Units StopQuantityUnits
}

// StopPrice — величина в процентах или пунктах (коррекция, спред).
type StopPrice struct {
	Value float64
	Units StopPriceUnits
}

// StopLoss — параметры стоп-лосса.
type StopLoss struct {
	ActivationPrice float64
	Price           float64
	MarketPrice     bool
	Quantity        StopQuantity
	Time            int32 // защитное время, сек.
	UseCredit       bool
}

// TakeProfit — параметры тейк-профита.
type TakeProfit struct {
	ActivationPrice float64
	CorrectionPrice StopPrice
	SpreadPrice     StopPrice
	MarketPrice     bool
	Quantity        StopQuantity
	Time            int32
	UseCredit       bool
}

// Stop — стоп-заявка из GetStops.
type Stop struct {
	StopID             int32
	SecurityCode       string
	SecurityBoard      string
	Market             Market
	ClientID           string
	BuySell            BuySell
	ExpirationDate     time.Time
	LinkOrder          int64
	ValidBefore        *OrderValidBefore
	Status             StopStatus
	Message            string
	OrderNo            int64
	TradeNo            int64
	AcceptedAt         time.Time
	CanceledAt         time.Time
	Currency           string
	TakeProfitExtremum float64
	TakeProfitLevel    float64
	StopLoss           *StopLoss
	TakeProfit         *TakeProfit
}

// StopFilter выбирает, какие стоп-заявки вернуть в GetStops.
type StopFilter struct {
	IncludeExecuted bool
	IncludeCanceled bool
	IncludeActive   bool
}

// NewStopRequest — параметры новой стоп-заявки. Должен быть задан
// хотя бы один из StopLoss и TakeProfit.
type NewStopRequest struct {
	ClientID       string
	SecurityBoard  string
	SecurityCode   string
	BuySell        BuySell
	StopLoss       *StopLoss
	TakeProfit     *TakeProfit
	ExpirationDate time.Time // нулевое значение → без срока
	LinkOrder      int64
	ValidBefore    *OrderValidBefore
}

// NewStopResult — ответ на NewStop.
type NewStopResult struct {
	ClientID      string
	StopID        int32
	SecurityCode  string
	SecurityBoard string
}

// CancelStopResult — ответ на CancelStop.
type CancelStopResult struct {
	ClientID string
	StopID   int32
}
