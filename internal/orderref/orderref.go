// Package orderref generates customer-facing order references.
package orderref

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

const (
	prefix  = "ORDER-"
	charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length  = 8
)

// Pattern matches a well-formed order reference.
var Pattern = regexp.MustCompile(`^ORDER-[A-Z0-9]{8}$`)

// New returns a fresh order reference of the form ORDER-XXXXXXXX where X is
// an uppercase letter or digit. References are random, not sequential, so
// they leak no order volume. Uniqueness is enforced by the database; callers
// retry on collision.
func New() (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate order reference: %w", err)
	}
	out := make([]byte, length)
	for i, v := range b {
		out[i] = charset[int(v)%len(charset)]
	}
	return prefix + string(out), nil
}

// Valid reports whether ref is a well-formed order reference.
func Valid(ref string) bool {
	return Pattern.MatchString(ref)
}
