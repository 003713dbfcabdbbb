package domain

import "errors"

var (
	ErrInsufficientResource = errors.New("insufficient resource capacity")
	ErrDuplicateHold        = errors.New("hold already exists for holder")
	ErrHoldNotFound         = errors.New("hold not found")
	ErrStaleState           = errors.New("state changed concurrently")
	ErrUnsupported          = errors.New("operation not supported for this resource")

	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrResourceExists      = errors.New("resource already exists")
	ErrTheaterNotFound     = errors.New("theater not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrCartNotFound        = errors.New("cart not found")
	ErrCartExists          = errors.New("cart already exists")
	ErrCartNotActive       = errors.New("cart not active")
	ErrCartEmpty           = errors.New("cart has no items")
	ErrItemNotFound        = errors.New("item not in cart")
	ErrOrderExists         = errors.New("order already exists for cart")
	ErrOrderNotFound       = errors.New("order not found")

	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidSeat     = errors.New("seat out of range")
	ErrSameAccount     = errors.New("source and destination are the same account")
)
