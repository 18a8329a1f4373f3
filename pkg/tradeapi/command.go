package tradeapi

import "strings"

// CommandKind — дискриминант исходящей команды потока событий.
type CommandKind uint8

const (
	CommandUnknown CommandKind = iota
	CommandSubscribeOrdersTrades
	CommandUnsubscribeOrdersTrades
	CommandSubscribeOrderBook
	CommandUnsubscribeOrderBook
	CommandKeepAlive
)

func (k CommandKind) String() string {
	switch k {
	case CommandSubscribeOrdersTrades:
		return "subscribe_orders_trades"
	case CommandUnsubscribeOrdersTrades:
		return "unsubscribe_orders_trades"
	case CommandSubscribeOrderBook:
		return "subscribe_order_book"
	case CommandUnsubscribeOrderBook:
		return "unsubscribe_order_book"
	case CommandKeepAlive:
		return "keep_alive"
	default:
		return "unknown"
	}
}

// Command — одна команда SubscriptionRequest. Значение неизменяемо после
// создания конструкторами ниже: ClientIDs копируется.
// Какие поля значимы, определяет Kind.
type Command struct {
	Kind      CommandKind
	RequestID string

	// CommandSubscribeOrdersTrades
	ClientIDs     []string
	IncludeTrades bool
	IncludeOrders bool

	// CommandSubscribeOrderBook / CommandUnsubscribeOrderBook
	SecurityBoard string
	SecurityCode  string
}

// SubscribeOrdersTrades — подписка на заявки и/или сделки клиентов.
func SubscribeOrdersTrades(requestID string, clientIDs []string, includeTrades, includeOrders bool) Command {
	ids := make([]string, len(clientIDs))
	copy(ids, clientIDs)
	return Command{
		Kind:          CommandSubscribeOrdersTrades,
		RequestID:     requestID,
		ClientIDs:     ids,
		IncludeTrades: includeTrades,
		IncludeOrders: includeOrders,
	}
}

// UnsubscribeOrdersTrades — отмена подписки на заявки и сделки.
func UnsubscribeOrdersTrades(requestID string) Command {
	return Command{Kind: CommandUnsubscribeOrdersTrades, RequestID: requestID}
}

// SubscribeOrderBook — подписка на стакан инструмента.
func SubscribeOrderBook(requestID, board, code string) Command {
	return Command{
		Kind:          CommandSubscribeOrderBook,
		RequestID:     requestID,
		SecurityBoard: board,
		SecurityCode:  code,
	}
}

// UnsubscribeOrderBook — отмена подписки на стакан.
func UnsubscribeOrderBook(requestID, board, code string) Command {
	return Command{
		Kind:          CommandUnsubscribeOrderBook,
		RequestID:     requestID,
		SecurityBoard: board,
		SecurityCode:  code,
	}
}

// KeepAlive — служебный пинг потока.
func KeepAlive(requestID string) Command {
	return Command{Kind: CommandKeepAlive, RequestID: requestID}
}

// Validate проверяет, что у команды заполнены обязательные поля.
func (c Command) Validate() error {
	if strings.TrimSpace(c.RequestID) == "" {
		return ErrEmptyRequestID
	}
	switch c.Kind {
	case CommandSubscribeOrdersTrades:
		if len(c.ClientIDs) == 0 {
			return invalidCommand(c.Kind, "at least one client id is required")
		}
		for _, id := range c.ClientIDs {
			if id == "" {
				return invalidCommand(c.Kind, "empty client id")
			}
		}
	case CommandSubscribeOrderBook, CommandUnsubscribeOrderBook:
		if c.SecurityBoard == "" || c.SecurityCode == "" {
			return invalidCommand(c.Kind, "security board and code are required")
		}
	case CommandUnsubscribeOrdersTrades, CommandKeepAlive:
	default:
		return invalidCommand(c.Kind, "unknown command kind")
	}
	return nil
}
