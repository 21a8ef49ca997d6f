// Package order implements checkout, purchase settlement, and the print
// fulfillment lifecycle. Print orders move through a fixed state machine
// (creating, pending, in_progress, shipped, delivered, cancelled) and every
// transition is recorded in an append-only status history.
package order
