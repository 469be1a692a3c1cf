package lottery

import (
	"testing"

	"tykhepot-engine/internal/domain"
)

func TestComputeBreakdownExact(t *testing.T) {
	// 10,000,000 base units, 15 participants.
	bd, err := ComputeBreakdown(10_000_000, 15)
	if err != nil {
		t.Fatalf("compute breakdown: %v", err)
	}

	checks := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"burn", bd.Burn, 300_000},
		{"platform", bd.PlatformFee, 200_000},
		{"prize pool", bd.PrizePool, 9_500_000},
		{"rollover", bd.Rollover, 475_000},
		{"distributable", bd.Distributable, 9_025_000},
		{"first", bd.FirstPrize, 2_707_500},
		{"second", bd.SecondPrize, 902_500},
		{"third", bd.ThirdPrize, 451_250},
		{"lucky", bd.LuckyPrize, 180_500},
		{"universal total", bd.UniversalTotal, 2_256_250},
		{"universal each", bd.UniversalPrize, 564_062},
		{"universal count", bd.UniversalCount, 4},
		{"top total", bd.TopTotal(), 5_866_250},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestComputeBreakdownConservation(t *testing.T) {
	totals := []uint64{10_000_000, 12_345_678_901, 6_300_000_000_000, 1}
	counts := []int{12, 15, 23, 1000}

	for _, total := range totals {
		for _, n := range counts {
			bd, err := ComputeBreakdown(total, n)
			if err != nil {
				t.Fatalf("total=%d n=%d: %v", total, n, err)
			}

			paid := bd.Burn + bd.PlatformFee + bd.Rollover + bd.TopTotal() +
				domain.LuckyPrizeWinners*bd.LuckyPrize +
				bd.UniversalCount*bd.UniversalPrize
			if paid > total {
				t.Fatalf("total=%d n=%d: paid %d exceeds pool", total, n, paid)
			}
			// Everything unaccounted for is floor-division dust.
			dust := total - paid
			if dust > bd.UniversalCount+9 {
				t.Fatalf("total=%d n=%d: dust %d exceeds bound %d", total, n, dust, bd.UniversalCount+9)
			}

			if bd.Burn+bd.PlatformFee+bd.PrizePool != total {
				t.Fatalf("total=%d n=%d: fee split does not reconstruct pool", total, n)
			}
			if bd.Rollover+bd.Distributable != bd.PrizePool {
				t.Fatalf("total=%d n=%d: rollover split does not reconstruct prize pool", total, n)
			}
			if bd.UniversalCount > 0 && bd.UniversalPrize*bd.UniversalCount > bd.UniversalTotal {
				t.Fatalf("total=%d n=%d: universal payouts exceed their bucket", total, n)
			}
		}
	}
}

func TestComputeBreakdownMinimumParticipants(t *testing.T) {
	bd, err := ComputeBreakdown(1_000_000, domain.MinParticipants)
	if err != nil {
		t.Fatalf("at threshold: %v", err)
	}
	if bd.UniversalCount != domain.MinParticipants-domain.WinnerCount {
		t.Fatalf("universal count: got %d", bd.UniversalCount)
	}

	if _, err := ComputeBreakdown(1_000_000, domain.MinParticipants-1); err == nil {
		t.Fatal("expected error below the draw threshold")
	}
}
