package tradeapi

import (
	"strings"
	"time"
)

// EventKind — дискриминант входящего Event. Выставляется декодером по номеру
// поля oneof, а не по сравнению вложенного сообщения с пустым значением.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventOrder
	EventTrade
	EventOrderBook
	EventPortfolio
	EventResponse
)

func (k EventKind) String() string {
	switch k {
	case EventOrder:
		return "order"
	case EventTrade:
		return "trade"
	case EventOrderBook:
		return "order_book"
	case EventPortfolio:
		return "portfolio"
	case EventResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Event — кадр потока событий. Заполнен ровно один указатель,
// соответствующий Kind; остальные nil.
type Event struct {
	Kind      EventKind
	Order     *OrderEvent
	Trade     *TradeEvent
	OrderBook *OrderBookEvent
	Portfolio *PortfolioEvent
	Response  *ResponseEvent
}

// OrderEvent — изменение заявки.
type OrderEvent = Order

// PortfolioEvent — снимок портфеля.
type PortfolioEvent = Portfolio

// TradeEvent — сделка клиента.
type TradeEvent struct {
	SecurityCode    string    `json:"security_code"`
	TradeNo         int64     `json:"trade_no"`
	OrderNo         int64     `json:"order_no"`
	SecurityBoard   string    `json:"security_board"`
	ClientID        string    `json:"client_id"`
	CreatedAt       time.Time `json:"created_at"`
	Quantity        int64     `json:"quantity"`
	Price           float64   `json:"price"`
	Value           float64   `json:"value"`
	BuySell         BuySell   `json:"buy_sell"`
	Commission      float64   `json:"commission"`
	Currency        string    `json:"currency"`
	AccruedInterest float64   `json:"accrued_interest"`
}

// OrderBookRow — уровень стакана.
type OrderBookRow struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// OrderBookEvent — стакан инструмента.
type OrderBookEvent struct {
	SecurityCode  string         `json:"security_code"`
	SecurityBoard string         `json:"security_board"`
	Asks          []OrderBookRow `json:"asks"`
	Bids          []OrderBookRow `json:"bids"`
}

// Error — ошибка, приложенная сервером к ответу.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseEvent — ответ сервера на команду с тем же RequestID.
type ResponseEvent struct {
	RequestID string  `json:"request_id"`
	Success   bool    `json:"success"`
	Errors    []Error `json:"errors,omitempty"`
}

// Message склеивает тексты ошибок ответа.
func (r *ResponseEvent) Message() string {
	if len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Code != "" {
			parts = append(parts, e.Code+": "+e.Message)
		} else {
			parts = append(parts, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}
