package tradeapi

import "time"

// OrderCondition — условие условной заявки.
type OrderCondition struct {
	Type  OrderConditionType `json:"type"`
	Price float64            `json:"price"`
	Time  time.Time          `json:"time,omitempty"`
}

// OrderValidBefore — время действия заявки.
type OrderValidBefore struct {
	Type OrderValidBeforeType `json:"type"`
	Time time.Time            `json:"time,omitempty"`
}

// Order — заявка. Используется и в потоке событий, и в GetOrders.
type Order struct {
	OrderNo       int64             `json:"order_no"`
	TransactionID int32             `json:"transaction_id"`
	SecurityCode  string            `json:"security_code"`
	ClientID      string            `json:"client_id"`
	Status        OrderStatus       `json:"status"`
	BuySell       BuySell           `json:"buy_sell"`
	CreatedAt     time.Time         `json:"created_at"`
	Price         float64           `json:"price"`
	Quantity      int32             `json:"quantity"`
	Balance       int32             `json:"balance"`
	Message       string            `json:"message,omitempty"`
	Currency      string            `json:"currency"`
	Condition     *OrderCondition   `json:"condition,omitempty"`
	ValidBefore   *OrderValidBefore `json:"valid_before,omitempty"`
	AcceptedAt    time.Time         `json:"accepted_at"`
	SecurityBoard string            `json:"security_board"`
	Market        Market            `json:"market"`
}

// OrderFilter выбирает, какие заявки вернуть в GetOrders.
type OrderFilter struct {
	IncludeMatched  bool
	IncludeCanceled bool
	IncludeActive   bool
}

// NewOrderRequest — параметры новой заявки.
// Price == nil означает рыночную заявку.
type NewOrderRequest struct {
	ClientID      string
	SecurityBoard string
	SecurityCode  string
	BuySell       BuySell
	Quantity      int32 // в лотах
	UseCredit     bool  // недоступно для срочного рынка
	Price         *float64
	Property      OrderProperty
	Condition     *OrderCondition
	ValidBefore   *OrderValidBefore
}

// NewOrderResult — ответ на NewOrder.
type NewOrderResult struct {
	ClientID      string
	TransactionID int32
	SecurityCode  string
}

// CancelOrderResult — ответ на CancelOrder.
type CancelOrderResult struct {
	ClientID      string
	TransactionID int32
}
