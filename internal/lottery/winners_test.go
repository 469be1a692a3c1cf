package lottery

import (
	"testing"

	"tykhepot-engine/internal/domain"
)

func seedFromByte(b byte) [32]byte {
	var s [32]byte
	s[0] = b
	return s
}

func TestSelectWinnersDeterministic(t *testing.T) {
	seed := seedFromByte(7)

	first, err := SelectWinners(seed, 15)
	if err != nil {
		t.Fatalf("select winners: %v", err)
	}
	second, err := SelectWinners(seed, 15)
	if err != nil {
		t.Fatalf("select winners again: %v", err)
	}

	if len(first) != domain.WinnerCount {
		t.Fatalf("expected %d winners, got %d", domain.WinnerCount, len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between identical runs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestSelectWinnersDistinctAndInRange(t *testing.T) {
	for _, n := range []int{11, 12, 15, 100, 1000} {
		winners, err := SelectWinners(seedFromByte(42), n)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		seen := make(map[int]bool, len(winners))
		for _, w := range winners {
			if w < 0 || w >= n {
				t.Fatalf("n=%d: winner index %d out of range", n, w)
			}
			if seen[w] {
				t.Fatalf("n=%d: winner index %d selected twice", n, w)
			}
			seen[w] = true
		}
	}
}

func TestSelectWinnersSeedSensitivity(t *testing.T) {
	// Different seeds should not all collapse onto one outcome.
	outcomes := make(map[int]bool)
	for b := 0; b < 256; b++ {
		winners, err := SelectWinners(seedFromByte(byte(b)), 100)
		if err != nil {
			t.Fatalf("seed byte %d: %v", b, err)
		}
		outcomes[winners[0]] = true
	}
	if len(outcomes) < 2 {
		t.Fatalf("256 distinct seeds produced a single first-prize index")
	}
}

func TestSelectWinnersTooFewParticipants(t *testing.T) {
	if _, err := SelectWinners(seedFromByte(1), domain.WinnerCount-1); err == nil {
		t.Fatal("expected error for fewer participants than winners")
	}
}

func TestIsWinner(t *testing.T) {
	winners := []int{3, 7, 11}
	if !IsWinner(winners, 7) {
		t.Fatal("7 should be a winner")
	}
	if IsWinner(winners, 5) {
		t.Fatal("5 should not be a winner")
	}
}
