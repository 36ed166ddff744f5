package calculator

import "errors"

var (
	// ErrInvalidReceipt is returned when a receipt can't be allocated or
	// derived: non-positive subtotal or total, or no payer.
	ErrInvalidReceipt = errors.New("calculator: invalid receipt")

	// ErrInvalidClaim is returned for a claim whose portion isn't a
	// positive finite number.
	ErrInvalidClaim = errors.New("calculator: invalid claim")

	// ErrNoUnsettledDebts is returned by SimplifyGroupDebts when there is
	// nothing to simplify in the requested currency. Callers treat it as a
	// no-op rather than a failure.
	ErrNoUnsettledDebts = errors.New("calculator: no unsettled debts")
)
