// Package cart implements the shopping cart: one line per
// {user, storybook, product type, book size}, priced in cents at add time.
package cart
