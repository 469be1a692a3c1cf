package observability

import (
	"context"

	"tykhepot-engine/internal/domain"
)

// EventSink translates audit events into metrics. Attach it to the audit
// fanout so every state change is counted exactly once, no matter which
// component produced it.
type EventSink struct{}

func (EventSink) Emit(_ context.Context, ev *domain.AuditEvent) {
	pool := ev.PoolType.String()
	switch ev.Kind {
	case domain.EventDeposited:
		RecordDeposit(pool, ev.Amount)
	case domain.EventFreeBetActivated:
		RecordFreeBet(pool)
	case domain.EventDrawExecuted:
		RecordDraw(pool, ev.BurnAmount, ev.PlatformAmount, ev.EscrowAmount)
	case domain.EventRoundRefunded:
		RecordRefund(pool)
	case domain.EventVestingClaimed:
		RecordVestingClaim(ev.Amount)
	case domain.EventReferralPaid:
		RecordReferralPaid(ev.Amount)
	}
}
