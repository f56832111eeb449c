// Package matcherrors holds the sentinel error kinds of the board engine.
// It is its own package so that card, board, and api can all depend on it
// without creating an import cycle between card and board.
package matcherrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match against these with errors.Is, not string comparison.
var (
	// ErrCardRemoved is returned by a first flip on a card that is already Gone.
	ErrCardRemoved = errors.New("card removed")

	// ErrRestrictedAccess is returned by a second flip on a card that is
	// Controlled (by any player, the caller included) or Gone.
	ErrRestrictedAccess = errors.New("restricted card access")

	// ErrInvalidAddress is returned by the façade for an out-of-grid row/column.
	ErrInvalidAddress = errors.New("invalid card address")

	// ErrCancelled is returned when a blocked FlipUpAsFirst or Watch is
	// interrupted by context cancellation before it could complete.
	ErrCancelled = errors.New("operation cancelled")
)

// RestrictedAccess wraps ErrRestrictedAccess with the player who was denied.
func RestrictedAccess(playerID string) error {
	return fmt.Errorf("player %q: %w", playerID, ErrRestrictedAccess)
}

// WithIndex wraps any of the above with the card index it happened at, for
// callers (board.Flip) that know the index but not the rest of the context.
func WithIndex(err error, index int) error {
	return fmt.Errorf("card %d: %w", index, err)
}

// InvalidAddress wraps ErrInvalidAddress with the offending row/column.
func InvalidAddress(row, column int) error {
	return fmt.Errorf("row=%d column=%d: %w", row, column, ErrInvalidAddress)
}

// Cancelled wraps ErrCancelled with the context's error.
func Cancelled(cause error) error {
	return fmt.Errorf("%w: %v", ErrCancelled, cause)
}
