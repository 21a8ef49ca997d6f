package order

import "errors"

// Sentinel errors for the order service layer.
var (
	ErrNotFound          = errors.New("order not found")
	ErrDuplicate         = errors.New("purchase already recorded for this payment")
	ErrInvalidTransition = errors.New("status transition not allowed")
)
