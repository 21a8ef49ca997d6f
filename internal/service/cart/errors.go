package cart

import "errors"

// Sentinel errors for the cart service layer.
var (
	ErrNotFound     = errors.New("cart item not found")
	ErrBookNotFound = errors.New("storybook not found")
)
