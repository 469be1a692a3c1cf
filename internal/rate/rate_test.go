package rate

import (
	"math"
	"testing"
)

func TestApply_BasicSplits(t *testing.T) {
	cases := []struct {
		amount uint64
		bps    uint64
		want   uint64
	}{
		{10_000, 300, 300},          // 3%
		{10_000, 200, 200},          // 2%
		{10_000, 10_000, 10_000},    // 100%
		{10_000, 0, 0},              // 0%
		{1, 9_999, 0},               // floors to zero
		{33, 300, 0},                // 0.99 floors to 0
		{34, 300, 1},                // 1.02 floors to 1
		{1_000_000_000_000, 800, 80_000_000_000}, // 8% referral on 1000 units
	}

	for _, tc := range cases {
		got, err := Apply(tc.amount, tc.bps)
		if err != nil {
			t.Fatalf("Apply(%d, %d) unexpected error: %v", tc.amount, tc.bps, err)
		}
		if got != tc.want {
			t.Errorf("Apply(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestApply_WideIntermediate(t *testing.T) {
	// amount * bps overflows 64 bits but the quotient fits.
	got, err := Apply(math.MaxUint64, 5_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uint64(math.MaxUint64 / 2) // floor(MaxUint64 * 0.5)
	if got != want {
		t.Errorf("Apply(MaxUint64, 5000) = %d, want %d", got, want)
	}
}

func TestApply_RateAboveBaseRejected(t *testing.T) {
	if _, err := Apply(100, Base+1); err != ErrOverflow {
		t.Errorf("expected ErrOverflow for rate above base, got %v", err)
	}
}

func TestAddSub_Checked(t *testing.T) {
	if _, err := Add(math.MaxUint64, 1); err != ErrOverflow {
		t.Errorf("Add overflow not detected: %v", err)
	}
	if _, err := Sub(0, 1); err != ErrOverflow {
		t.Errorf("Sub underflow not detected: %v", err)
	}
	sum, err := Add(40, 2)
	if err != nil || sum != 42 {
		t.Errorf("Add(40, 2) = %d, %v", sum, err)
	}
	diff, err := Sub(42, 2)
	if err != nil || diff != 40 {
		t.Errorf("Sub(42, 2) = %d, %v", diff, err)
	}
}

func TestAddU32_Checked(t *testing.T) {
	if _, err := AddU32(math.MaxUint32, 1); err != ErrOverflow {
		t.Errorf("AddU32 overflow not detected: %v", err)
	}
	n, err := AddU32(11, 1)
	if err != nil || n != 12 {
		t.Errorf("AddU32(11, 1) = %d, %v", n, err)
	}
}
