package lottery

import (
	"encoding/binary"
	"fmt"

	"tykhepot-engine/internal/domain"
)

// Knuth MMIX linear congruential generator constants.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

// SelectWinners picks domain.WinnerCount distinct positions out of n
// participants using a partial Fisher-Yates shuffle driven by an LCG seeded
// from the first eight bytes of seed (little-endian). Anyone holding the
// seed and the participant count can recompute the exact same positions.
//
// Returned slots: [0] first prize, [1..2] second, [3..5] third, [6..10]
// lucky. Positions not listed fall into the universal tier.
func SelectWinners(seed [32]byte, n int) ([]int, error) {
	if n < domain.WinnerCount {
		return nil, fmt.Errorf("select winners: %d participants, need at least %d", n, domain.WinnerCount)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	state := binary.LittleEndian.Uint64(seed[0:8])
	winners := make([]int, domain.WinnerCount)
	for i := 0; i < domain.WinnerCount; i++ {
		state = state*lcgMultiplier + lcgIncrement
		// Upper bits of the LCG state have the longest period.
		j := i + int((state>>33)%uint64(n-i))
		indices[i], indices[j] = indices[j], indices[i]
		winners[i] = indices[i]
	}
	return winners, nil
}

// IsWinner reports whether position idx is one of the selected winners.
func IsWinner(winners []int, idx int) bool {
	for _, w := range winners {
		if w == idx {
			return true
		}
	}
	return false
}
