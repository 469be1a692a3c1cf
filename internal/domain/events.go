package domain

// Audit event kinds, one per state-changing operation. Events are what
// off-chain indexers consume; they carry no state the stores don't already
// hold.
const (
	EventDeposited        = "DEPOSITED"
	EventFreeBetActivated = "FREE_BET_ACTIVATED"
	EventDrawExecuted     = "DRAW_EXECUTED"
	EventRoundRefunded    = "ROUND_REFUNDED"
	EventVestingClaimed   = "VESTING_CLAIMED"
	EventReferralPaid     = "REFERRAL_PAID"
)

// AuditEvent is the flat record published to the audit stream.
// Unused fields stay at their zero values for kinds that don't carry them.
type AuditEvent struct {
	Kind        string   `json:"kind"`
	PoolType    PoolType `json:"pool_type"`
	RoundNumber uint64   `json:"round_number"`
	Timestamp   int64    `json:"timestamp"` // unix seconds

	User   string `json:"user,omitempty"`
	Amount uint64 `json:"amount,omitempty"`

	// Draw fields.
	TotalPool        uint64   `json:"total_pool,omitempty"`
	BurnAmount       uint64   `json:"burn_amount,omitempty"`
	PlatformAmount   uint64   `json:"platform_amount,omitempty"`
	RolloverAmount   uint64   `json:"rollover_amount,omitempty"`
	EscrowAmount     uint64   `json:"escrow_amount,omitempty"`
	ParticipantCount uint32   `json:"participant_count,omitempty"`
	Winners          []string `json:"winners,omitempty"`
	Seed             string   `json:"seed,omitempty"` // hex-encoded draw seed

	// Refund fields.
	RegularRefunded uint32 `json:"regular_refunded,omitempty"`
	FreeCarriedOver uint32 `json:"free_carried_over,omitempty"`
	TotalRefunded   uint64 `json:"total_refunded,omitempty"`

	// Claim fields.
	WinnerSlot int    `json:"winner_slot,omitempty"`
	Referrer   string `json:"referrer,omitempty"`
}
