// Package referral pays the deferred finder's fee on deposits that carried
// a referrer. The fee is owed only once the deposit's round has actually
// drawn; refunded rounds never pay.
package referral

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/rate"
	"tykhepot-engine/internal/storage"
	"tykhepot-engine/internal/vault"
)

var (
	ErrNoReferralRecorded = errors.New("no referral recorded for this deposit")
	ErrRoundNotDrawn      = errors.New("round has not drawn: no referral owed")
)

// EventSink receives one audit event per paid referral.
type EventSink interface {
	Emit(ctx context.Context, ev *domain.AuditEvent)
}

// Payer settles referral fees from the referral vault. Claims are
// permissionless and one-shot: the deposit's referrer field is cleared the
// moment its fee is paid, so a second claim finds nothing.
type Payer struct {
	deposits storage.DepositStore
	draws    storage.DrawResultStore
	ledger   vault.Ledger
	vault    string // referral fee vault
	events   EventSink
	logger   *log.Logger

	now func() int64
}

// NewPayer creates a referral payer. sink and logger may be nil.
func NewPayer(deposits storage.DepositStore, draws storage.DrawResultStore, ledger vault.Ledger, vaultAccount string, sink EventSink, logger *log.Logger) *Payer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Payer{
		deposits: deposits,
		draws:    draws,
		ledger:   ledger,
		vault:    vaultAccount,
		events:   sink,
		logger:   logger,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// Claim pays the referral fee for one deposit record, identified by its
// (pool, round, user) key. The fee is 8% of the recorded deposit amount,
// capped at whatever the referral vault still holds; a depleted vault
// still clears the referrer, settling the obligation at the capped value.
// Returns the amount actually paid.
func (p *Payer) Claim(ctx context.Context, pool domain.PoolType, round uint64, user string) (uint64, error) {
	d, err := p.deposits.Get(ctx, pool, round, user)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNoReferralRecorded
		}
		return 0, fmt.Errorf("claim referral: load deposit: %w", err)
	}
	if !d.HasReferrer() {
		return 0, ErrNoReferralRecorded
	}

	// Existence of the draw result is the proof the round drew rather
	// than refunded.
	if _, err := p.draws.Get(ctx, pool, round); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrRoundNotDrawn
		}
		return 0, fmt.Errorf("claim referral: check draw: %w", err)
	}

	fee, err := rate.Apply(d.Amount, domain.ReferralRate)
	if err != nil {
		return 0, fmt.Errorf("claim referral: %w", err)
	}
	bal, err := p.ledger.Balance(ctx, p.vault)
	if err != nil {
		return 0, fmt.Errorf("claim referral: vault balance: %w", err)
	}
	if fee > bal {
		fee = bal
	}

	// The one-shot clear commits the claim before any funds move: of two
	// racing claims, exactly one sees the clear succeed and pays.
	if err := p.deposits.ClearReferrer(ctx, pool, round, user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNoReferralRecorded
		}
		return 0, fmt.Errorf("claim referral: clear referrer: %w", err)
	}

	if fee > 0 {
		if err := p.ledger.Transfer(ctx, p.vault, d.Referrer, fee); err != nil {
			return 0, fmt.Errorf("claim referral: pay %s: %w", d.Referrer, err)
		}
	}

	p.logger.Printf("[referral] pool=%s round=%d user=%s referrer=%s fee=%d", pool, round, user, d.Referrer, fee)
	if p.events != nil {
		p.events.Emit(ctx, &domain.AuditEvent{
			Kind:        domain.EventReferralPaid,
			PoolType:    pool,
			RoundNumber: round,
			Timestamp:   p.now(),
			User:        user,
			Referrer:    d.Referrer,
			Amount:      fee,
		})
	}
	return fee, nil
}

// ClaimPending sweeps every deposit in a pool that still carries a referrer
// and whose round has drawn. Deposits of refunded or unsettled rounds are
// left for later. Used by the crank. Returns the total paid.
func (p *Payer) ClaimPending(ctx context.Context, pool domain.PoolType) (uint64, error) {
	pending, err := p.deposits.ListWithReferrer(ctx, pool)
	if err != nil {
		return 0, fmt.Errorf("claim pending referrals: %w", err)
	}

	var total uint64
	for _, d := range pending {
		fee, err := p.Claim(ctx, pool, d.RoundNumber, d.User)
		if err != nil {
			if errors.Is(err, ErrRoundNotDrawn) || errors.Is(err, ErrNoReferralRecorded) {
				continue
			}
			return total, err
		}
		total += fee
	}
	return total, nil
}
