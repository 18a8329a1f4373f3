package subscribe

import "errors"

var (
	// ErrStopped — клиент остановлен, команда не принята.
	ErrStopped = errors.New("subscribe: client stopped")
	// ErrStreamClosed — сервер закрыл поток событий.
	ErrStreamClosed = errors.New("subscribe: event stream closed by server")
	// ErrReservedRequestID — пользовательская команда использует id keepalive.
	ErrReservedRequestID = errors.New("subscribe: request id is reserved for keepalive")
)
