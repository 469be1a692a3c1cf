package identity

import (
	"testing"

	"github.com/mr-tron/base58"
)

// The SPL token program id — a known on-curve-invalid (derived) address is
// hard to construct by hand, so tests use well-known mainnet keys.
const (
	wsolMint   = "So11111111111111111111111111111111111111112"
	zeroKey32  = "11111111111111111111111111111111" // system program, 32 zero bytes
)

func TestValidate(t *testing.T) {
	if err := Validate(wsolMint); err != nil {
		t.Errorf("Validate(%q) failed: %v", wsolMint, err)
	}
	if err := Validate(zeroKey32); err != nil {
		t.Errorf("Validate(%q) failed: %v", zeroKey32, err)
	}
	if err := Validate(""); err == nil {
		t.Error("Validate(\"\") should fail")
	}
	if err := Validate("not-base58-0OIl"); err == nil {
		t.Error("Validate with invalid base58 alphabet should fail")
	}
	// Too short: 4 bytes.
	short := base58.Encode([]byte{1, 2, 3, 4})
	if err := Validate(short); err == nil {
		t.Error("Validate with short payload should fail")
	}
}

func TestIsOnCurve(t *testing.T) {
	// The identity point (all zeros except y=1 encoding) decodes fine;
	// what matters is that garbage of the wrong length is rejected.
	if IsOnCurve("short") {
		t.Error("IsOnCurve should reject short input")
	}
	if !IsOnCurve(zeroKey32) {
		// 32 zero bytes is a valid (though degenerate) curve encoding.
		t.Error("IsOnCurve should accept 32 zero bytes")
	}
}
