// Package vesting releases the top-tier prizes recorded by a draw linearly
// over twenty days, five percent per day, with the first tranche unlocked
// immediately at draw time.
package vesting

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
	ErrRoundNotDrawn  = errors.New("no draw result for this round")
	ErrInvalidSlot    = errors.New("winner slot out of range")
	ErrEmptySlot      = errors.New("no winner recorded in this slot")
	ErrNothingToClaim = errors.New("nothing to claim yet")
)

// EventSink receives one audit event per successful claim.
type EventSink interface {
	Emit(ctx context.Context, ev *domain.AuditEvent)
}

// Claimer pays out vested prize tranches from the escrow vault. Claims are
// permissionless; the payment always goes to the winner recorded at draw
// time, so calling on someone else's behalf only does them a favor.
type Claimer struct {
	draws  storage.DrawResultStore
	ledger vault.Ledger
	escrow string // prize escrow account funded by ExecuteDraw
	events EventSink
	logger *log.Logger

	now func() int64
}

// NewClaimer creates a vesting claimer. sink and logger may be nil.
func NewClaimer(draws storage.DrawResultStore, ledger vault.Ledger, escrow string, sink EventSink, logger *log.Logger) *Claimer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Claimer{
		draws:  draws,
		ledger: ledger,
		escrow: escrow,
		events: sink,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// SetClock overrides the time source. Intended for tests.
func (c *Claimer) SetClock(now func() int64) {
	c.now = now
}

// VestedDays returns how many daily tranches are unlocked at time now for a
// draw executed at drawTime. Day zero already unlocks the first tranche.
func VestedDays(drawTime, now int64) uint64 {
	if now < drawTime {
		return 0
	}
	days := uint64((now-drawTime)/domain.SecondsPerDay) + 1
	if days > domain.VestingDays {
		days = domain.VestingDays
	}
	return days
}

// Claimable returns the amount slot can withdraw right now: the vested
// portion of the total award minus everything already claimed.
func Claimable(r *domain.DrawResult, slot int, now int64) (uint64, error) {
	days := VestedDays(r.DrawTimestamp, now)
	vested, err := rate.Apply(r.TopAmounts[slot], days*domain.VestingReleaseBps)
	if err != nil {
		return 0, err
	}
	if vested <= r.TopClaimed[slot] {
		return 0, nil
	}
	return vested - r.TopClaimed[slot], nil
}

// claimRetries bounds the reload-and-retry loop when concurrent claims keep
// invalidating the read.
const claimRetries = 5

// Claim pays out the currently claimable tranche for one winner slot of a
// drawn round. Returns the amount paid. The claimed counter only advances
// by compare-and-swap against the value the claimable amount was computed
// from, so concurrent claims settle the tranche exactly once and can never
// exceed the recorded award.
func (c *Claimer) Claim(ctx context.Context, pool domain.PoolType, round uint64, slot int) (uint64, error) {
	if slot < 0 || slot >= domain.TopWinnerCount {
		return 0, ErrInvalidSlot
	}

	var (
		winner string
		amount uint64
		now    int64
	)
	for attempt := 0; ; attempt++ {
		r, err := c.draws.Get(ctx, pool, round)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return 0, ErrRoundNotDrawn
			}
			return 0, fmt.Errorf("claim vested: load draw: %w", err)
		}
		winner = r.TopWinners[slot]
		if winner == "" {
			return 0, ErrEmptySlot
		}

		now = c.now()
		amount, err = Claimable(r, slot, now)
		if err != nil {
			return 0, fmt.Errorf("claim vested: %w", err)
		}
		if amount == 0 {
			return 0, ErrNothingToClaim
		}

		err = c.draws.AddClaimed(ctx, pool, round, slot, r.TopClaimed[slot], amount)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrStaleUpdate) && attempt < claimRetries {
			continue
		}
		return 0, fmt.Errorf("claim vested: record claim: %w", err)
	}
	if err := c.ledger.Transfer(ctx, c.escrow, winner, amount); err != nil {
		return 0, fmt.Errorf("claim vested: pay out: %w", err)
	}

	c.logger.Printf("[vesting] pool=%s round=%d slot=%d winner=%s amount=%d", pool, round, slot, winner, amount)
	if c.events != nil {
		c.events.Emit(ctx, &domain.AuditEvent{
			Kind:        domain.EventVestingClaimed,
			PoolType:    pool,
			RoundNumber: round,
			Timestamp:   now,
			User:        winner,
			Amount:      amount,
			WinnerSlot:  slot,
		})
	}
	return amount, nil
}

// ClaimAll sweeps every slot with a claimable balance, skipping slots that
// have nothing unlocked. Used by the crank. Returns the total paid.
func (c *Claimer) ClaimAll(ctx context.Context, pool domain.PoolType, round uint64) (uint64, error) {
	var total uint64
	for slot := 0; slot < domain.TopWinnerCount; slot++ {
		amount, err := c.Claim(ctx, pool, round, slot)
		if err != nil {
			if errors.Is(err, ErrNothingToClaim) || errors.Is(err, ErrEmptySlot) {
				continue
			}
			return total, err
		}
		total += amount
	}
	return total, nil
}
