package domain

import "fmt"

// PoolType identifies one of the three independently scheduled pools.
type PoolType uint8

const (
	PoolMin30  PoolType = 0
	PoolHourly PoolType = 1
	PoolDaily  PoolType = 2
)

// Duration returns the round length in seconds.
func (p PoolType) Duration() int64 {
	switch p {
	case PoolMin30:
		return DurationMin30
	case PoolHourly:
		return DurationHourly
	default:
		return DurationDaily
	}
}

// MinDeposit returns the minimum regular deposit in base units.
func (p PoolType) MinDeposit() uint64 {
	switch p {
	case PoolMin30:
		return MinDepositMin30
	case PoolHourly:
		return MinDepositHourly
	default:
		return MinDepositDaily
	}
}

// HasReserveMatching reports whether deposits into this pool receive 1:1
// reserve matching. Only the daily pool does.
func (p PoolType) HasReserveMatching() bool {
	return p == PoolDaily
}

func (p PoolType) String() string {
	switch p {
	case PoolMin30:
		return "MIN30"
	case PoolHourly:
		return "HOURLY"
	case PoolDaily:
		return "DAILY"
	default:
		return fmt.Sprintf("POOL(%d)", uint8(p))
	}
}

// PoolTypeFromUint8 validates a raw pool type value.
func PoolTypeFromUint8(v uint8) (PoolType, error) {
	switch PoolType(v) {
	case PoolMin30, PoolHourly, PoolDaily:
		return PoolType(v), nil
	default:
		return 0, fmt.Errorf("invalid pool type %d (must be 0, 1, or 2)", v)
	}
}

// PoolTypes lists all pools in schedule order.
func PoolTypes() []PoolType {
	return []PoolType{PoolMin30, PoolHourly, PoolDaily}
}

// PoolState is the per-pool mutable round aggregate. One record per pool
// type, overwritten in place as rounds advance. Never deleted.
type PoolState struct {
	PoolType       PoolType
	RoundNumber    uint64 // starts at 1, +1 per draw or refund
	RoundStartTime int64  // unix seconds
	RoundEndTime   int64  // unix seconds
	TotalDeposited uint64 // sum of regular deposits (incl. reserve match) this round
	FreeBetTotal   uint64 // sum of active free-bet stakes held in the vault
	RegularCount   uint32 // regular depositors this round
	FreeCount      uint32 // active free-bet holders (survives refunded rounds)
	Vault          string // pool vault account address
	Rollover       uint64 // carried from the last successful draw
}

// ParticipantCount is the draw-eligibility count for the current round.
func (p *PoolState) ParticipantCount() uint32 {
	return p.RegularCount + p.FreeCount
}

// DepositsOpen reports whether a deposit at time now is accepted.
// Deposits close LockWindow seconds before the draw.
func (p *PoolState) DepositsOpen(now int64) bool {
	return now < p.RoundEndTime-LockWindow
}

// Drawable reports whether the round can be settled at time now.
func (p *PoolState) Drawable(now int64) bool {
	return now >= p.RoundEndTime
}
