package sim

import "errors"

// Ledger commands fail with one of these, wrapped with context. They are
// ordinary results: the ledger state is unchanged when one is returned.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidSide      = errors.New("invalid side")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrPositionNotFound = errors.New("position not found")
	ErrAlreadyClosed    = errors.New("position already closed")
	ErrPairMismatch     = errors.New("tick pair does not match ledger pair")
)
