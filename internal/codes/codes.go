// Package codes issues the short numeric codes receivers type in to locate
// a transfer.
package codes

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// Length is the exact number of digits in a transfer code.
const Length = 6

const (
	min  = 100000
	span = 900000 // codes are drawn from [100000, 999999]
)

// Generate returns a uniformly distributed 6-digit decimal code. Leading
// zeros are disallowed so codes are always exactly six digits on screen.
// Uniqueness is not guaranteed here; the transfer store's unique index on
// code is the arbiter, and callers retry on a collision.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(min+n.Int64(), 10), nil
}

// Valid reports whether s has the shape of a transfer code: exactly six
// ASCII digits, the first of which is non-zero.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	if s[0] < '1' || s[0] > '9' {
		return false
	}
	for i := 1; i < Length; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
