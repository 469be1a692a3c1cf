package domain

// All percentage splits are expressed in basis points (parts per 10,000).
const (
	RateBase = 10_000

	// Draw-time splits of the total pool.
	BurnRate     = 300 // 3%, only on successful draw
	PlatformRate = 200 // 2%, only on successful draw

	// Rollover taken from the prize pool before tier distribution.
	RolloverRate = 500 // 5%

	// Prize tiers, as shares of the distributable amount.
	FirstPrizeRate  = 3000 // 30%, 1 winner, vested
	SecondPrizeRate = 1000 // 10% each, 2 winners, vested
	ThirdPrizeRate  = 500  // 5% each, 3 winners, vested
	LuckyPrizeRate  = 200  // 2% each, 5 winners, paid immediately
	// The universal bucket takes everything the fixed tiers leave behind
	// (nominally 20%) so that no remainder is lost to rounding.

	ReferralRate = 800 // 8% of the referred deposit
)

// Participant thresholds. The final protocol iteration fixed the minimum at
// 12; earlier drafts used 10.
const (
	MinParticipants = 12
	WinnerCount     = 11 // 1 first + 2 second + 3 third + 5 lucky

	SecondPrizeWinners = 2
	ThirdPrizeWinners  = 3
	LuckyPrizeWinners  = 5
	TopWinnerCount     = 6 // vested slots: 1 + 2 + 3
)

// Round scheduling (seconds).
const (
	DurationMin30  = 1_800
	DurationHourly = 3_600
	DurationDaily  = 86_400

	// Deposits close this long before round end.
	LockWindow = 300
)

// Deposit minimums and the fixed free-bet stake, in 9-decimal base units.
const (
	MinDepositMin30  = 500_000_000_000
	MinDepositHourly = 200_000_000_000
	MinDepositDaily  = 100_000_000_000

	FreeBetAmount = 100_000_000_000
)

// Top-tier prize vesting: linear over 20 days, with day 0 already
// unlocking the first day's share (5%).
const (
	VestingDays       = 20
	SecondsPerDay     = 86_400
	VestingReleaseBps = 500 // 5% per day
)
