package errors

import "errors"

var (
	ErrInsufficientSeats      = errors.New("insufficient seats")
	ErrInvalidCategory        = errors.New("ticket category does not belong to event")
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrQuantityTooLarge       = errors.New("quantity exceeds the per-purchase limit")
	ErrPaymentDetailsRequired = errors.New("payment details are required")
	ErrPurchaseFailed         = errors.New("purchase failed")

	// ErrLedgerCorruption means a seat ledger invariant was violated. The category
	// stops accepting reservations until it is reloaded from durable state.
	ErrLedgerCorruption = errors.New("seat ledger corruption")
)
