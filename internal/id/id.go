// Package id generates and validates the 8-digit account identifiers shown
// to users.
package id

import (
	"crypto/rand"
	"fmt"
)

// AccountIDLength is the fixed number of digits in an account identifier.
const AccountIDLength = 8

// NewAccountID returns a random 8-digit identifier. The first digit is never
// zero so the ID survives numeric round trips in external tools.
func NewAccountID() (string, error) {
	buf := make([]byte, AccountIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	digits := make([]byte, AccountIDLength)
	digits[0] = '1' + buf[0]%9
	for i := 1; i < AccountIDLength; i++ {
		digits[i] = '0' + buf[i]%10
	}
	return string(digits), nil
}

// Valid reports whether s has the canonical account ID shape.
func Valid(s string) bool {
	if len(s) != AccountIDLength {
		return false
	}
	if s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
