package domain

// UserDeposit is the exclusive per-(pool, round, user) regular deposit
// record. Creating a second record for the same key fails with
// storage.ErrDuplicateKey, which is the sole double-deposit guard.
type UserDeposit struct {
	User         string // depositor wallet address
	PoolType     PoolType
	RoundNumber  uint64
	Amount       uint64 // amount the user paid in, excluding any match
	ReserveMatch uint64 // 1:1 reserve match added to the pool, 0 if none
	Referrer     string // empty = no referral; cleared once the fee is paid
	CreatedAt    int64  // unix seconds
}

// HasReferrer reports whether a referral fee is still owed for this deposit.
func (d *UserDeposit) HasReferrer() bool {
	return d.Referrer != ""
}

// FreeDeposit is the per-(pool, user) promotional stake. It persists across
// refunded rounds; a successful draw consumes it by clearing Active.
type FreeDeposit struct {
	User         string
	PoolType     PoolType
	Amount       uint64 // always FreeBetAmount; kept for auditability
	ReserveMatch uint64 // 1:1 reserve match added to the pool, 0 if none
	Active       bool
	CreatedAt    int64
}

// FreeBetGrant is the one-time eligibility record created by
// claim_free_eligibility and consumed when the free bet is activated.
type FreeBetGrant struct {
	User      string
	Available bool
	CreatedAt int64
}
