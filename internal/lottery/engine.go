package lottery

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/identity"
	"tykhepot-engine/internal/rate"
	"tykhepot-engine/internal/storage"
	"tykhepot-engine/internal/vault"
)

// EventSink receives one audit event per completed state change. Emission is
// best-effort and never fails the operation that produced the event.
type EventSink interface {
	Emit(ctx context.Context, ev *domain.AuditEvent)
}

// Stores bundles the persistence interfaces the engine needs.
type Stores struct {
	Pools        storage.PoolStore
	Deposits     storage.DepositStore
	FreeDeposits storage.FreeDepositStore
	Grants       storage.GrantStore
	Draws        storage.DrawResultStore
}

// Participant is one entry of the settlement list the caller supplies to
// ExecuteDraw/ExecuteRefund. It collapses the (ownership proof, payout
// destination) account pair into one record: User/PoolType/RoundNumber are
// the proof reference checked against the stored deposit, Payout is where
// immediate winnings or refunds go.
type Participant struct {
	User        string
	PoolType    domain.PoolType
	RoundNumber uint64
	Payout      string
}

// Engine orchestrates the full round lifecycle for all pools: deposits,
// free-bet activation, and the draw/refund settlement. All operations
// validate fully before mutating anything; every mutation path is
// serialized per pool.
type Engine struct {
	stores   Stores
	ledger   vault.Ledger
	accounts vault.Accounts
	events   EventSink
	logger   *log.Logger

	now func() int64

	mu [3]sync.Mutex // one per pool type
}

// NewEngine creates an engine. sink and logger may be nil.
func NewEngine(stores Stores, ledger vault.Ledger, accounts vault.Accounts, sink EventSink, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		stores:   stores,
		ledger:   ledger,
		accounts: accounts,
		events:   sink,
		logger:   logger,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// SetClock overrides the engine's time source. Intended for tests.
func (e *Engine) SetClock(now func() int64) {
	e.now = now
}

// InitPool registers a pool at round 1 with its vault account. Called once
// per pool at setup; a second call fails with storage.ErrDuplicateKey.
func (e *Engine) InitPool(ctx context.Context, pool domain.PoolType, vaultAccount string) (*domain.PoolState, error) {
	if err := identity.Validate(vaultAccount); err != nil {
		return nil, fmt.Errorf("init pool %s: vault: %w", pool, err)
	}
	now := e.now()
	p := &domain.PoolState{
		PoolType:       pool,
		RoundNumber:    1,
		RoundStartTime: now,
		RoundEndTime:   now + pool.Duration(),
		Vault:          vaultAccount,
	}
	if err := e.stores.Pools.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("init pool %s: %w", pool, err)
	}
	e.logger.Printf("[init] pool=%s vault=%s round_end=%d", pool, vaultAccount, p.RoundEndTime)
	return p, nil
}

func (e *Engine) poolMu(pool domain.PoolType) *sync.Mutex {
	return &e.mu[int(pool)%len(e.mu)]
}

func (e *Engine) emit(ctx context.Context, ev *domain.AuditEvent) {
	if e.events != nil {
		e.events.Emit(ctx, ev)
	}
}

// Deposit places a regular stake for the pool's current round. Funds move
// before the record insert so a failed transfer leaves no orphan record; a
// duplicate (pool, round, user) key refunds the transfers and reports
// ErrAlreadyDeposited. Daily-pool deposits are matched 1:1 from the reserve
// vault, capped at the reserve's remaining balance.
func (e *Engine) Deposit(ctx context.Context, pool domain.PoolType, user string, amount uint64, referrer string) (*domain.UserDeposit, error) {
	if err := identity.ValidateWallet(user); err != nil {
		return nil, fmt.Errorf("deposit: depositor: %w", err)
	}
	if referrer != "" {
		if err := identity.Validate(referrer); err != nil {
			return nil, fmt.Errorf("deposit: referrer: %w", err)
		}
		if referrer == user {
			return nil, fmt.Errorf("deposit: %w", ErrSelfReferral)
		}
	}

	mu := e.poolMu(pool)
	mu.Lock()
	defer mu.Unlock()

	p, err := e.stores.Pools.Get(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("deposit: load pool %s: %w", pool, err)
	}

	now := e.now()
	if !p.DepositsOpen(now) {
		return nil, ErrBettingClosed
	}
	if amount < pool.MinDeposit() {
		return nil, ErrBelowMinimum
	}

	match, err := e.reserveMatch(ctx, pool, amount)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	total, err := rate.Add(amount, match)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	newTotal, err := rate.Add(p.TotalDeposited, total)
	if err != nil {
		return nil, fmt.Errorf("deposit: pool total: %w", err)
	}
	newCount, err := rate.AddU32(p.RegularCount, 1)
	if err != nil {
		return nil, fmt.Errorf("deposit: pool count: %w", err)
	}

	if err := e.ledger.Transfer(ctx, user, p.Vault, amount); err != nil {
		return nil, fmt.Errorf("deposit: fund vault: %w", err)
	}
	if match > 0 {
		if err := e.ledger.Transfer(ctx, e.accounts.Reserve, p.Vault, match); err != nil {
			e.unwind(ctx, p.Vault, user, amount, "deposit")
			return nil, fmt.Errorf("deposit: reserve match: %w", err)
		}
	}

	d := &domain.UserDeposit{
		User:         user,
		PoolType:     pool,
		RoundNumber:  p.RoundNumber,
		Amount:       amount,
		ReserveMatch: match,
		Referrer:     referrer,
		CreatedAt:    now,
	}
	if err := e.stores.Deposits.Insert(ctx, d); err != nil {
		e.unwind(ctx, p.Vault, user, amount, "deposit")
		e.unwind(ctx, p.Vault, e.accounts.Reserve, match, "deposit")
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrAlreadyDeposited
		}
		return nil, fmt.Errorf("deposit: insert record: %w", err)
	}

	p.TotalDeposited = newTotal
	p.RegularCount = newCount
	if err := e.stores.Pools.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("deposit: update pool: %w", err)
	}

	e.logger.Printf("[deposit] pool=%s round=%d user=%s amount=%d match=%d", pool, p.RoundNumber, user, amount, match)
	e.emit(ctx, &domain.AuditEvent{
		Kind:        domain.EventDeposited,
		PoolType:    pool,
		RoundNumber: p.RoundNumber,
		Timestamp:   now,
		User:        user,
		Amount:      amount,
	})
	return d, nil
}

// unwind sends compensation for an already-applied transfer after a later
// step failed. Failure here is logged, not returned: the caller's original
// error is the one that matters.
func (e *Engine) unwind(ctx context.Context, from, to string, amount uint64, op string) {
	if amount == 0 {
		return
	}
	if err := e.ledger.Transfer(ctx, from, to, amount); err != nil {
		e.logger.Printf("[%s] unwind %d %s -> %s failed: %v", op, amount, from, to, err)
	}
}

// ClaimFreeEligibility registers a user's one-time free-bet grant. The grant
// insert is the one-time guard.
func (e *Engine) ClaimFreeEligibility(ctx context.Context, user string) error {
	if err := identity.ValidateWallet(user); err != nil {
		return fmt.Errorf("claim eligibility: %w", err)
	}
	g := &domain.FreeBetGrant{User: user, Available: true, CreatedAt: e.now()}
	if err := e.stores.Grants.Insert(ctx, g); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return ErrEligibilityClaimed
		}
		return fmt.Errorf("claim eligibility: %w", err)
	}
	e.logger.Printf("[eligibility] user=%s", user)
	return nil
}

// ActivateFreeBet converts a user's eligibility grant into a protocol-funded
// stake in the pool's current round. The stake survives refunded rounds and
// is consumed only by a successful draw.
func (e *Engine) ActivateFreeBet(ctx context.Context, pool domain.PoolType, user string) error {
	if err := identity.ValidateWallet(user); err != nil {
		return fmt.Errorf("activate free bet: %w", err)
	}

	mu := e.poolMu(pool)
	mu.Lock()
	defer mu.Unlock()

	g, err := e.stores.Grants.Get(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoFreeBetAvailable
		}
		return fmt.Errorf("activate free bet: load grant: %w", err)
	}
	if !g.Available {
		return ErrNoFreeBetAvailable
	}

	p, err := e.stores.Pools.Get(ctx, pool)
	if err != nil {
		return fmt.Errorf("activate free bet: load pool %s: %w", pool, err)
	}
	now := e.now()
	if !p.DepositsOpen(now) {
		return ErrBettingClosed
	}

	// A consumed record from an earlier draw may still occupy the slot.
	if prev, err := e.stores.FreeDeposits.Get(ctx, pool, user); err == nil {
		if prev.Active {
			return ErrFreeBetAlreadyActive
		}
		if err := e.stores.FreeDeposits.Delete(ctx, pool, user); err != nil {
			return fmt.Errorf("activate free bet: clear consumed record: %w", err)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("activate free bet: check record: %w", err)
	}

	match, err := e.reserveMatch(ctx, pool, domain.FreeBetAmount)
	if err != nil {
		return fmt.Errorf("activate free bet: %w", err)
	}
	total, err := rate.Add(domain.FreeBetAmount, match)
	if err != nil {
		return fmt.Errorf("activate free bet: %w", err)
	}
	newTotal, err := rate.Add(p.FreeBetTotal, total)
	if err != nil {
		return fmt.Errorf("activate free bet: pool total: %w", err)
	}
	newCount, err := rate.AddU32(p.FreeCount, 1)
	if err != nil {
		return fmt.Errorf("activate free bet: pool count: %w", err)
	}

	if err := e.ledger.Transfer(ctx, e.accounts.Promo, p.Vault, domain.FreeBetAmount); err != nil {
		return fmt.Errorf("activate free bet: fund vault: %w", err)
	}
	if match > 0 {
		if err := e.ledger.Transfer(ctx, e.accounts.Reserve, p.Vault, match); err != nil {
			e.unwind(ctx, p.Vault, e.accounts.Promo, domain.FreeBetAmount, "freebet")
			return fmt.Errorf("activate free bet: reserve match: %w", err)
		}
	}

	fd := &domain.FreeDeposit{
		User:         user,
		PoolType:     pool,
		Amount:       domain.FreeBetAmount,
		ReserveMatch: match,
		Active:       true,
		CreatedAt:    now,
	}
	if err := e.stores.FreeDeposits.Insert(ctx, fd); err != nil {
		e.unwind(ctx, p.Vault, e.accounts.Promo, domain.FreeBetAmount, "freebet")
		e.unwind(ctx, p.Vault, e.accounts.Reserve, match, "freebet")
		if errors.Is(err, storage.ErrDuplicateKey) {
			return ErrFreeBetAlreadyActive
		}
		return fmt.Errorf("activate free bet: insert record: %w", err)
	}
	if err := e.stores.Grants.Consume(ctx, user); err != nil {
		if derr := e.stores.FreeDeposits.Delete(ctx, pool, user); derr != nil {
			e.logger.Printf("[freebet] clear record for %s failed: %v", user, derr)
		}
		e.unwind(ctx, p.Vault, e.accounts.Promo, domain.FreeBetAmount, "freebet")
		e.unwind(ctx, p.Vault, e.accounts.Reserve, match, "freebet")
		return fmt.Errorf("activate free bet: consume grant: %w", err)
	}

	p.FreeBetTotal = newTotal
	p.FreeCount = newCount
	if err := e.stores.Pools.Update(ctx, p); err != nil {
		return fmt.Errorf("activate free bet: update pool: %w", err)
	}

	e.logger.Printf("[freebet] pool=%s round=%d user=%s amount=%d match=%d", pool, p.RoundNumber, user, domain.FreeBetAmount, match)
	e.emit(ctx, &domain.AuditEvent{
		Kind:        domain.EventFreeBetActivated,
		PoolType:    pool,
		RoundNumber: p.RoundNumber,
		Timestamp:   now,
		User:        user,
		Amount:      domain.FreeBetAmount,
	})
	return nil
}

// ExecuteDraw settles a round that reached the participant threshold:
// extracts burn and platform fee, escrows the top three tiers for vesting,
// pays lucky and universal tiers immediately, consumes free-bet stakes, and
// advances the round. Permissionless; parts must match the recorded entrants
// in order (regulars by creation time, then free-bet holders).
func (e *Engine) ExecuteDraw(ctx context.Context, pool domain.PoolType, seed [32]byte, parts []Participant) (*domain.DrawResult, error) {
	mu := e.poolMu(pool)
	mu.Lock()
	defer mu.Unlock()

	p, err := e.stores.Pools.Get(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("draw: load pool %s: %w", pool, err)
	}
	now := e.now()
	if !p.Drawable(now) {
		return nil, ErrTooEarlyForDraw
	}

	total := int(p.ParticipantCount())
	if total < domain.MinParticipants {
		return nil, ErrThresholdNotMet
	}
	if len(parts) != total {
		return nil, ErrParticipantCountMismatch
	}
	if _, err := e.stores.Draws.Get(ctx, pool, p.RoundNumber); err == nil {
		return nil, ErrAlreadyDrawn
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("draw: check result: %w", err)
	}

	regulars, frees, err := e.loadEntrants(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("draw: %w", err)
	}
	if err := e.validateParticipants(p, parts, regulars, frees); err != nil {
		return nil, err
	}

	totalPool, err := rate.Add(p.TotalDeposited, p.FreeBetTotal)
	if err != nil {
		return nil, fmt.Errorf("draw: total pool: %w", err)
	}
	totalPool, err = rate.Add(totalPool, p.Rollover)
	if err != nil {
		return nil, fmt.Errorf("draw: total pool: %w", err)
	}

	bd, err := ComputeBreakdown(totalPool, total)
	if err != nil {
		return nil, fmt.Errorf("draw: %w", err)
	}
	winners, err := SelectWinners(seed, total)
	if err != nil {
		return nil, fmt.Errorf("draw: %w", err)
	}

	result := &domain.DrawResult{
		PoolType:      pool,
		RoundNumber:   p.RoundNumber,
		DrawTimestamp: now,
		Seed:          seed,
	}
	topAmounts := [domain.TopWinnerCount]uint64{
		bd.FirstPrize,
		bd.SecondPrize, bd.SecondPrize,
		bd.ThirdPrize, bd.ThirdPrize, bd.ThirdPrize,
	}
	for slot := 0; slot < domain.TopWinnerCount; slot++ {
		result.TopWinners[slot] = parts[winners[slot]].User
		result.TopAmounts[slot] = topAmounts[slot]
	}

	// The insert is the double-draw guard; everything after it is the
	// settlement of a round that is now committed as drawn.
	if err := e.stores.Draws.Insert(ctx, result); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrAlreadyDrawn
		}
		return nil, fmt.Errorf("draw: insert result: %w", err)
	}

	if err := e.ledger.Burn(ctx, p.Vault, bd.Burn); err != nil {
		return nil, fmt.Errorf("draw: burn: %w", err)
	}
	if err := e.ledger.Transfer(ctx, p.Vault, e.accounts.PlatformFee, bd.PlatformFee); err != nil {
		return nil, fmt.Errorf("draw: platform fee: %w", err)
	}
	if err := e.ledger.Transfer(ctx, p.Vault, e.accounts.PrizeEscrow, bd.TopTotal()); err != nil {
		return nil, fmt.Errorf("draw: escrow top prizes: %w", err)
	}
	for _, w := range winners[domain.TopWinnerCount:] {
		if err := e.ledger.Transfer(ctx, p.Vault, parts[w].Payout, bd.LuckyPrize); err != nil {
			return nil, fmt.Errorf("draw: lucky prize: %w", err)
		}
	}
	if bd.UniversalPrize > 0 {
		for idx := range parts {
			if IsWinner(winners, idx) {
				continue
			}
			if err := e.ledger.Transfer(ctx, p.Vault, parts[idx].Payout, bd.UniversalPrize); err != nil {
				return nil, fmt.Errorf("draw: universal prize: %w", err)
			}
		}
	}

	for _, fd := range frees {
		if err := e.stores.FreeDeposits.Deactivate(ctx, pool, fd.User); err != nil {
			return nil, fmt.Errorf("draw: consume free bet: %w", err)
		}
	}

	e.advanceRound(p, now)
	p.TotalDeposited = 0
	p.FreeBetTotal = 0
	p.RegularCount = 0
	p.FreeCount = 0
	p.Rollover = bd.Rollover
	if err := e.stores.Pools.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("draw: update pool: %w", err)
	}

	winnerUsers := make([]string, len(winners))
	for i, w := range winners {
		winnerUsers[i] = parts[w].User
	}
	e.logger.Printf("[draw] pool=%s round=%d participants=%d total=%d burn=%d platform=%d rollover=%d",
		pool, result.RoundNumber, total, totalPool, bd.Burn, bd.PlatformFee, bd.Rollover)
	e.emit(ctx, &domain.AuditEvent{
		Kind:             domain.EventDrawExecuted,
		PoolType:         pool,
		RoundNumber:      result.RoundNumber,
		Timestamp:        now,
		TotalPool:        totalPool,
		BurnAmount:       bd.Burn,
		PlatformAmount:   bd.PlatformFee,
		RolloverAmount:   bd.Rollover,
		EscrowAmount:     bd.TopTotal(),
		ParticipantCount: uint32(total),
		Winners:          winnerUsers,
		Seed:             hex.EncodeToString(seed[:]),
	})
	return result, nil
}

// ExecuteRefund settles a round that stayed below the participant threshold:
// every regular depositor gets back exactly what they paid in, reserve
// matches flow back to the reserve vault, and free-bet stakes stay active
// and carry into the next round. Permissionless.
func (e *Engine) ExecuteRefund(ctx context.Context, pool domain.PoolType, parts []Participant) error {
	mu := e.poolMu(pool)
	mu.Lock()
	defer mu.Unlock()

	p, err := e.stores.Pools.Get(ctx, pool)
	if err != nil {
		return fmt.Errorf("refund: load pool %s: %w", pool, err)
	}
	now := e.now()
	if !p.Drawable(now) {
		return ErrTooEarlyForDraw
	}
	if int(p.ParticipantCount()) >= domain.MinParticipants {
		return ErrThresholdMet
	}
	if len(parts) != int(p.ParticipantCount()) {
		return ErrParticipantCountMismatch
	}

	regulars, frees, err := e.loadEntrants(ctx, p)
	if err != nil {
		return fmt.Errorf("refund: %w", err)
	}
	if err := e.validateParticipants(p, parts, regulars, frees); err != nil {
		return err
	}

	var refunded, matchReturned uint64
	for i, d := range regulars {
		if err := e.ledger.Transfer(ctx, p.Vault, parts[i].Payout, d.Amount); err != nil {
			return fmt.Errorf("refund: pay back %s: %w", d.User, err)
		}
		refunded += d.Amount
		if d.ReserveMatch > 0 {
			if err := e.ledger.Transfer(ctx, p.Vault, e.accounts.Reserve, d.ReserveMatch); err != nil {
				return fmt.Errorf("refund: return match for %s: %w", d.User, err)
			}
			matchReturned += d.ReserveMatch
		}
	}

	freeCount := p.FreeCount
	e.advanceRound(p, now)
	p.TotalDeposited = 0
	p.RegularCount = 0
	if err := e.stores.Pools.Update(ctx, p); err != nil {
		return fmt.Errorf("refund: update pool: %w", err)
	}

	e.logger.Printf("[refund] pool=%s round=%d regulars=%d free_carried=%d total=%d match_returned=%d",
		pool, p.RoundNumber-1, len(regulars), freeCount, refunded, matchReturned)
	e.emit(ctx, &domain.AuditEvent{
		Kind:            domain.EventRoundRefunded,
		PoolType:        pool,
		RoundNumber:     p.RoundNumber - 1,
		Timestamp:       now,
		RegularRefunded: uint32(len(regulars)),
		FreeCarriedOver: freeCount,
		TotalRefunded:   refunded,
	})
	return nil
}

// reserveMatch returns the 1:1 reserve match for a stake, capped at the
// reserve vault's remaining balance. Zero for pools without matching.
func (e *Engine) reserveMatch(ctx context.Context, pool domain.PoolType, amount uint64) (uint64, error) {
	if !pool.HasReserveMatching() {
		return 0, nil
	}
	bal, err := e.ledger.Balance(ctx, e.accounts.Reserve)
	if err != nil {
		return 0, fmt.Errorf("reserve balance: %w", err)
	}
	if bal < amount {
		return bal, nil
	}
	return amount, nil
}

// loadEntrants returns the round's canonical participant ordering: regular
// deposits by creation time, then active free-bet stakes.
func (e *Engine) loadEntrants(ctx context.Context, p *domain.PoolState) ([]*domain.UserDeposit, []*domain.FreeDeposit, error) {
	regulars, err := e.stores.Deposits.ListByRound(ctx, p.PoolType, p.RoundNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("list deposits: %w", err)
	}
	if len(regulars) != int(p.RegularCount) {
		return nil, nil, fmt.Errorf("pool %s round %d: %d deposit records, pool counts %d",
			p.PoolType, p.RoundNumber, len(regulars), p.RegularCount)
	}
	frees, err := e.stores.FreeDeposits.ListActive(ctx, p.PoolType)
	if err != nil {
		return nil, nil, fmt.Errorf("list free deposits: %w", err)
	}
	if len(frees) != int(p.FreeCount) {
		return nil, nil, fmt.Errorf("pool %s round %d: %d free records, pool counts %d",
			p.PoolType, p.RoundNumber, len(frees), p.FreeCount)
	}
	return regulars, frees, nil
}

// validateParticipants checks the caller-supplied list against the stored
// records, position by position. Any mismatch aborts the settlement.
func (e *Engine) validateParticipants(p *domain.PoolState, parts []Participant, regulars []*domain.UserDeposit, frees []*domain.FreeDeposit) error {
	for i, part := range parts {
		if part.PoolType != p.PoolType {
			return fmt.Errorf("participant %d: %w", i, ErrInvalidParticipant)
		}
		if part.RoundNumber != p.RoundNumber {
			return fmt.Errorf("participant %d: %w", i, ErrWrongRoundNumber)
		}
		var expected string
		if i < len(regulars) {
			expected = regulars[i].User
		} else {
			expected = frees[i-len(regulars)].User
		}
		if part.User != expected {
			return fmt.Errorf("participant %d: %w", i, ErrInvalidParticipant)
		}
		if err := identity.Validate(part.Payout); err != nil {
			return fmt.Errorf("participant %d payout: %w", i, ErrInvalidParticipant)
		}
	}
	return nil
}

// advanceRound opens the next round on the fixed schedule: the new round
// runs from the old boundary, not from settlement time, so a late crank does
// not drift the draw times. Boundaries already in the past are skipped.
func (e *Engine) advanceRound(p *domain.PoolState, now int64) {
	d := p.PoolType.Duration()
	start := p.RoundEndTime
	for start+d <= now {
		start += d
	}
	p.RoundNumber++
	p.RoundStartTime = start
	p.RoundEndTime = start + d
}
