package tradeapi

import "strconv"

// BuySell — направление сделки.
type BuySell int32

const (
	BuySellUnspecified BuySell = 0
	BuySellSell        BuySell = 1
	BuySellBuy         BuySell = 2
)

func (b BuySell) String() string {
	switch b {
	case BuySellSell:
		return "SELL"
	case BuySellBuy:
		return "BUY"
	default:
		return "UNSPECIFIED"
	}
}

// Market — рынок.
type Market int32

const (
	MarketUnspecified Market = 0
	MarketStock       Market = 1
	MarketForts       Market = 4
	MarketSpbex       Market = 6
	MarketMma         Market = 7
	MarketEts         Market = 8
	MarketBonds       Market = 20
	MarketOptions     Market = 21
)

var marketNames = map[Market]string{
	MarketUnspecified: "UNSPECIFIED",
	MarketStock:       "STOCK",
	MarketForts:       "FORTS",
	MarketSpbex:       "SPBEX",
	MarketMma:         "MMA",
	MarketEts:         "ETS",
	MarketBonds:       "BONDS",
	MarketOptions:     "OPTIONS",
}

func (m Market) String() string {
	if s, ok := marketNames[m]; ok {
		return s
	}
	return "MARKET_" + strconv.Itoa(int(m))
}

// OrderStatus — состояние заявки.
type OrderStatus int32

const (
	OrderStatusUnspecified OrderStatus = 0
	OrderStatusNone        OrderStatus = 1
	OrderStatusActive      OrderStatus = 2
	OrderStatusCancelled   OrderStatus = 3
	OrderStatusMatched     OrderStatus = 4
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNone:
		return "NONE"
	case OrderStatusActive:
		return "ACTIVE"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusMatched:
		return "MATCHED"
	default:
		return "UNSPECIFIED"
	}
}

// OrderProperty — исполнение частично исполненных заявок.
type OrderProperty int32

const (
	OrderPropertyUnspecified   OrderProperty = 0
	OrderPropertyPutInQueue    OrderProperty = 1
	OrderPropertyCancelBalance OrderProperty = 2
	OrderPropertyImmOrCancel   OrderProperty = 3
)

// OrderConditionType — тип условной заявки.
type OrderConditionType int32

const (
	OrderConditionUnspecified OrderConditionType = 0
	OrderConditionBid         OrderConditionType = 1
	OrderConditionBidOrLast   OrderConditionType = 2
	OrderConditionAsk         OrderConditionType = 3
	OrderConditionAskOrLast   OrderConditionType = 4
	OrderConditionTime        OrderConditionType = 5
	OrderConditionCovDown     OrderConditionType = 6
	OrderConditionCovUp       OrderConditionType = 7
	OrderConditionLastUp      OrderConditionType = 8
	OrderConditionLastDown    OrderConditionType = 9
)

// OrderValidBeforeType — время действия заявки.
type OrderValidBeforeType int32

const (
	ValidBeforeUnspecified    OrderValidBeforeType = 0
	ValidBeforeTillEndSession OrderValidBeforeType = 1
	ValidBeforeTillCancelled  OrderValidBeforeType = 2
	ValidBeforeExactTime      OrderValidBeforeType = 3
)

// StopStatus — состояние стоп-заявки.
type StopStatus int32

const (
	StopStatusUnspecified StopStatus = 0
	StopStatusNone        StopStatus = 1
	StopStatusActive      StopStatus = 2
	StopStatusCancelled   StopStatus = 3
	StopStatusExecuted    StopStatus = 4
)

// StopQuantityUnits — единицы объёма стоп-заявки.
type StopQuantityUnits int32

const (
	StopQuantityUnspecified StopQuantityUnits = 0
	StopQuantityPercent     StopQuantityUnits = 1
	StopQuantityLots        StopQuantityUnits = 2
)

// StopPriceUnits — единицы цены (для коррекции/спреда тейк-профита).
type StopPriceUnits int32

const (
	StopPriceUnspecified StopPriceUnits = 0
	StopPricePercent     StopPriceUnits = 1
	StopPricePips        StopPriceUnits = 2
)
