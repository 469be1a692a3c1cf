package lottery

import "errors"

// Engine errors. Each maps to one distinguishable rejection reason; every
// failure aborts the whole operation with no partial effects.
var (
	// Validation — rejected before any state mutation.
	ErrBettingClosed = errors.New("betting is closed for this round")
	ErrBelowMinimum  = errors.New("deposit amount is below the pool minimum")
	ErrSelfReferral  = errors.New("referrer must differ from depositor")

	// Exclusive-creation conflicts.
	ErrAlreadyDeposited     = errors.New("already deposited in this round")
	ErrFreeBetAlreadyActive = errors.New("free bet is already active in this pool")
	ErrEligibilityClaimed   = errors.New("free-bet eligibility already claimed")
	ErrNoFreeBetAvailable   = errors.New("no free bet available: claim eligibility first")
	ErrAlreadyDrawn         = errors.New("round already drawn")

	// Consistency — rejected mid-validation.
	ErrTooEarlyForDraw          = errors.New("draw time has not arrived yet")
	ErrParticipantCountMismatch = errors.New("participant list does not match pool state")
	ErrInvalidParticipant       = errors.New("invalid or mismatched participant record")
	ErrWrongRoundNumber         = errors.New("wrong round number in participant record")
	ErrThresholdNotMet          = errors.New("not enough participants: round must refund")
	ErrThresholdMet             = errors.New("enough participants: round must draw")
)
