// Package rate implements overflow-checked basis-point arithmetic.
// Every percentage split in the protocol is built from Apply, so rounding
// behavior (floor division, remainder to the last bucket) is decided in one
// place.
package rate

import (
	"errors"
	"math/bits"
)

// Base is the fixed-point denominator: rates are parts per 10,000.
const Base = 10_000

// ErrOverflow is returned when monetary arithmetic would wrap. It aborts
// the whole operation; wraparound is never acceptable for funds.
var ErrOverflow = errors.New("math overflow")

// Apply returns amount * rateBps / Base with a 128-bit intermediate and
// truncating division. rateBps above Base is rejected so a single call can
// never mint value.
func Apply(amount uint64, rateBps uint64) (uint64, error) {
	if rateBps > Base {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(amount, rateBps)
	// hi < Base always holds here since rateBps <= Base, so Div64 cannot
	// trap; the check keeps the invariant explicit.
	if hi >= Base {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, Base)
	return q, nil
}

// Add returns a + b, failing on wraparound.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a - b, failing if b exceeds a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// AddU32 returns a + b for counters, failing on wraparound.
func AddU32(a, b uint32) (uint32, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}
