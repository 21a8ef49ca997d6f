package storybook

import "errors"

// Sentinel errors for the storybook service layer.
var (
	ErrNotFound  = errors.New("storybook not found")
	ErrForbidden = errors.New("storybook belongs to another user")
)
