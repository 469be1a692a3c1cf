package domain

// Top-winner slot layout inside a DrawResult:
// [0] = 1st prize, [1..2] = 2nd prize, [3..5] = 3rd prize.
const (
	SlotFirst   = 0
	SlotSecondA = 1
	SlotSecondB = 2
	SlotThirdA  = 3
	SlotThirdB  = 4
	SlotThirdC  = 5
)

// DrawResult is the permanent record of one successful draw. It doubles as
// the vesting ledger for the six top winners and as the existence proof that
// (pool, round) drew rather than refunded. Created once, never deleted;
// only TopClaimed advances afterwards.
type DrawResult struct {
	PoolType    PoolType
	RoundNumber uint64

	TopWinners [TopWinnerCount]string // winner wallet addresses
	TopAmounts [TopWinnerCount]uint64 // fixed at creation
	TopClaimed [TopWinnerCount]uint64 // monotone, never exceeds TopAmounts

	DrawTimestamp int64    // unix seconds; vesting clock origin
	Seed          [32]byte // public draw seed, kept for auditability
}

// VestingComplete reports whether every top slot has been fully claimed.
func (d *DrawResult) VestingComplete() bool {
	for i := 0; i < TopWinnerCount; i++ {
		if d.TopClaimed[i] < d.TopAmounts[i] {
			return false
		}
	}
	return true
}
