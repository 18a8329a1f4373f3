package tradeapi

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRequestID — у команды не задан requestId.
	ErrEmptyRequestID = errors.New("tradeapi: empty request id")
	// ErrInvalidCommand — команда не прошла проверку полей.
	ErrInvalidCommand = errors.New("tradeapi: invalid command")
)

func invalidCommand(kind CommandKind, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidCommand, kind, reason)
}
