// Package identity validates the base58 account addresses used for users,
// referrers, and vaults.
package identity

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLen is the raw key length in bytes.
const AddressLen = 32

// Validate checks that addr is base58 text decoding to exactly 32 bytes.
func Validate(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != AddressLen {
		return fmt.Errorf("address %q: expected %d bytes, got %d", addr, AddressLen, len(raw))
	}
	return nil
}

// IsOnCurve reports whether addr decodes to a valid ed25519 point.
// Wallet keys are on the curve; program-derived vault addresses are not.
func IsOnCurve(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != AddressLen {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

// ValidateWallet checks that addr is a well-formed on-curve wallet key,
// i.e. an account a caller can actually control.
func ValidateWallet(addr string) error {
	if err := Validate(addr); err != nil {
		return err
	}
	if !IsOnCurve(addr) {
		return fmt.Errorf("address %q is not a wallet key (off curve)", addr)
	}
	return nil
}
