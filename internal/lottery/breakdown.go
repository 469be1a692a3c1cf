package lottery

import (
	"fmt"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/rate"
)

// Breakdown is the full prize split for one round. All amounts are in base
// units and every bucket is derived from TotalPool with floor division, so
// the buckets never sum to more than TotalPool.
type Breakdown struct {
	TotalPool uint64 // regular deposits + free-bet deposits + rollover from the previous round

	Burn        uint64 // destroyed outright
	PlatformFee uint64
	PrizePool   uint64 // TotalPool - Burn - PlatformFee

	Rollover      uint64 // retained in the pool vault for the next round
	Distributable uint64 // PrizePool - Rollover

	FirstPrize     uint64
	SecondPrize    uint64 // per winner, two winners
	ThirdPrize     uint64 // per winner, three winners
	LuckyPrize     uint64 // per winner, five winners
	UniversalTotal uint64 // remainder of Distributable after the fixed tiers
	UniversalPrize uint64 // per non-winner; zero when UniversalCount is zero

	UniversalCount uint64 // participants - 11
}

// TopTotal is the amount escrowed for vesting: first, second and third tier
// prizes combined.
func (b *Breakdown) TopTotal() uint64 {
	return b.FirstPrize +
		domain.SecondPrizeWinners*b.SecondPrize +
		domain.ThirdPrizeWinners*b.ThirdPrize
}

// ComputeBreakdown splits totalPool across the tiers for a round with
// participants entrants. The universal bucket is computed by subtraction,
// so flooring losses from the fixed tiers accrue to the universal bucket
// rather than leaking out of the split. The per-head universal floor
// remainder stays in the pool vault.
func ComputeBreakdown(totalPool uint64, participants int) (*Breakdown, error) {
	if participants < domain.MinParticipants {
		return nil, fmt.Errorf("compute breakdown: %d participants is below the draw threshold", participants)
	}

	burn, err := rate.Apply(totalPool, domain.BurnRate)
	if err != nil {
		return nil, err
	}
	platform, err := rate.Apply(totalPool, domain.PlatformRate)
	if err != nil {
		return nil, err
	}
	prizePool, err := rate.Sub(totalPool, burn)
	if err != nil {
		return nil, err
	}
	prizePool, err = rate.Sub(prizePool, platform)
	if err != nil {
		return nil, err
	}

	rollover, err := rate.Apply(prizePool, domain.RolloverRate)
	if err != nil {
		return nil, err
	}
	distributable, err := rate.Sub(prizePool, rollover)
	if err != nil {
		return nil, err
	}

	first, err := rate.Apply(distributable, domain.FirstPrizeRate)
	if err != nil {
		return nil, err
	}
	second, err := rate.Apply(distributable, domain.SecondPrizeRate)
	if err != nil {
		return nil, err
	}
	third, err := rate.Apply(distributable, domain.ThirdPrizeRate)
	if err != nil {
		return nil, err
	}
	lucky, err := rate.Apply(distributable, domain.LuckyPrizeRate)
	if err != nil {
		return nil, err
	}

	fixed := first +
		domain.SecondPrizeWinners*second +
		domain.ThirdPrizeWinners*third +
		domain.LuckyPrizeWinners*lucky
	universalTotal, err := rate.Sub(distributable, fixed)
	if err != nil {
		return nil, err
	}

	universalCount := uint64(participants - domain.WinnerCount)
	var universalEach uint64
	if universalCount > 0 {
		universalEach = universalTotal / universalCount
	}

	return &Breakdown{
		TotalPool:      totalPool,
		Burn:           burn,
		PlatformFee:    platform,
		PrizePool:      prizePool,
		Rollover:       rollover,
		Distributable:  distributable,
		FirstPrize:     first,
		SecondPrize:    second,
		ThirdPrize:     third,
		LuckyPrize:     lucky,
		UniversalTotal: universalTotal,
		UniversalPrize: universalEach,
		UniversalCount: universalCount,
	}, nil
}
