package domain

import "errors"

var (
	ErrMalformedPair     = errors.New("malformed trading pair")
	ErrInvalidPairSet    = errors.New("invalid pair set for triangular arbitrage")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOrderRejected     = errors.New("order rejected")
	ErrUnknownOrder      = errors.New("unknown order")
	ErrConnectorClosed   = errors.New("connector closed")
	ErrWSDisconnect      = errors.New("websocket disconnected")
)
