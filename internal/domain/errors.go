package domain

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrEventNameRequired   = errors.New("event name required")
	ErrInvalidCapacity     = errors.New("invalid capacity")
	ErrInsufficientTickets = errors.New("insufficient tickets")
	ErrVersionConflict     = errors.New("inventory version conflict")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidID           = errors.New("invalid id")

	ErrHoldNotFound = errors.New("hold not found")
	ErrHoldExpired  = errors.New("hold expired")

	ErrNotAdmitted        = errors.New("user not admitted")
	ErrQueueEntryNotFound = errors.New("queue entry not found")
	ErrUserIDRequired     = errors.New("user id required")
	ErrInvalidBatchSize   = errors.New("invalid batch size")

	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAccessDenied   = errors.New("order access denied")
	ErrOrderNotCancellable = errors.New("order cannot be cancelled")
)
