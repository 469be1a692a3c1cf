// Package crank runs the permissionless maintenance sweeps: settling rounds
// whose end time has passed, advancing vesting payouts, and paying pending
// referral fees. Anyone could run these; the crank just makes sure somebody
// does.
package crank

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/lottery"
	"tykhepot-engine/internal/observability"
	"tykhepot-engine/internal/referral"
	"tykhepot-engine/internal/storage"
	"tykhepot-engine/internal/vesting"
)

// SeedSource produces the public draw seed. The default reads crypto/rand;
// tests inject fixed seeds.
type SeedSource func() ([32]byte, error)

func randomSeed() ([32]byte, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("draw seed: %w", err)
	}
	return seed, nil
}

// Crank sweeps all pools on a fixed interval. Sweeps never overlap; a slow
// sweep makes the next tick a no-op.
type Crank struct {
	engine   *lottery.Engine
	claimer  *vesting.Claimer
	payer    *referral.Payer
	stores   lottery.Stores
	logger   *log.Logger
	seed     SeedSource
	interval time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a crank.
func New(engine *lottery.Engine, claimer *vesting.Claimer, payer *referral.Payer, stores lottery.Stores, interval time.Duration, logger *log.Logger) *Crank {
	return &Crank{
		engine:   engine,
		claimer:  claimer,
		payer:    payer,
		stores:   stores,
		logger:   logger,
		seed:     randomSeed,
		interval: interval,
	}
}

// SetSeedSource overrides the draw seed source. Intended for tests.
func (c *Crank) SetSeedSource(src SeedSource) {
	c.seed = src
}

// Run sweeps on every tick until ctx is cancelled.
func (c *Crank) Run(ctx context.Context) error {
	c.logger.Printf("[crank] started, interval=%s", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Println("[crank] stopped")
			return ctx.Err()
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// Sweep runs one full pass immediately. Used by the one-shot crank command.
func (c *Crank) Sweep(ctx context.Context) {
	c.sweep(ctx)
}

func (c *Crank) sweep(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.logger.Println("[crank] previous sweep still running, skipping")
		return
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	start := time.Now()
	err := c.settleRounds(ctx)
	observability.RecordCrankRun("settle", time.Since(start).Seconds(), err)
	if err != nil {
		c.logger.Printf("[crank] settle: %v", err)
	}

	start = time.Now()
	err = c.sweepVesting(ctx)
	observability.RecordCrankRun("vesting", time.Since(start).Seconds(), err)
	if err != nil {
		c.logger.Printf("[crank] vesting: %v", err)
	}

	start = time.Now()
	err = c.sweepReferrals(ctx)
	observability.RecordCrankRun("referrals", time.Since(start).Seconds(), err)
	if err != nil {
		c.logger.Printf("[crank] referrals: %v", err)
	}
}

// settleRounds draws or refunds every pool whose round end has passed.
func (c *Crank) settleRounds(ctx context.Context) error {
	var firstErr error
	for _, pool := range domain.PoolTypes() {
		if err := c.settlePool(ctx, pool); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Crank) settlePool(ctx context.Context, pool domain.PoolType) error {
	p, err := c.stores.Pools.Get(ctx, pool)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil // pool not initialized yet
		}
		return fmt.Errorf("pool %s: %w", pool, err)
	}
	observability.UpdatePoolState(pool.String(), p.RoundNumber, p.ParticipantCount(), p.TotalDeposited+p.FreeBetTotal)
	if !p.Drawable(time.Now().Unix()) {
		return nil
	}

	parts, err := c.buildParticipants(ctx, p)
	if err != nil {
		return fmt.Errorf("pool %s: %w", pool, err)
	}

	if int(p.ParticipantCount()) >= domain.MinParticipants {
		seed, err := c.seed()
		if err != nil {
			return err
		}
		result, err := c.engine.ExecuteDraw(ctx, pool, seed, parts)
		if err != nil {
			// Someone else settled this round first; not a fault.
			if errors.Is(err, lottery.ErrAlreadyDrawn) || errors.Is(err, lottery.ErrTooEarlyForDraw) {
				return nil
			}
			return fmt.Errorf("draw pool %s: %w", pool, err)
		}
		c.logger.Printf("[crank] drew pool=%s round=%d winners=%v", pool, result.RoundNumber, result.TopWinners)
		return nil
	}

	if err := c.engine.ExecuteRefund(ctx, pool, parts); err != nil {
		if errors.Is(err, lottery.ErrTooEarlyForDraw) {
			return nil
		}
		return fmt.Errorf("refund pool %s: %w", pool, err)
	}
	c.logger.Printf("[crank] refunded pool=%s round=%d", pool, p.RoundNumber)
	return nil
}

// buildParticipants assembles the settlement list from the stored records:
// regulars in creation order, then active free-bet stakes, each paying out
// to the entrant's own wallet.
func (c *Crank) buildParticipants(ctx context.Context, p *domain.PoolState) ([]lottery.Participant, error) {
	regulars, err := c.stores.Deposits.ListByRound(ctx, p.PoolType, p.RoundNumber)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	frees, err := c.stores.FreeDeposits.ListActive(ctx, p.PoolType)
	if err != nil {
		return nil, fmt.Errorf("list free deposits: %w", err)
	}

	parts := make([]lottery.Participant, 0, len(regulars)+len(frees))
	for _, d := range regulars {
		parts = append(parts, lottery.Participant{
			User:        d.User,
			PoolType:    p.PoolType,
			RoundNumber: p.RoundNumber,
			Payout:      d.User,
		})
	}
	for _, fd := range frees {
		parts = append(parts, lottery.Participant{
			User:        fd.User,
			PoolType:    p.PoolType,
			RoundNumber: p.RoundNumber,
			Payout:      fd.User,
		})
	}
	return parts, nil
}

// sweepVesting pays out every unlocked tranche of every unfinished draw.
func (c *Crank) sweepVesting(ctx context.Context) error {
	unfinished, err := c.stores.Draws.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("list unfinished draws: %w", err)
	}

	var firstErr error
	for _, r := range unfinished {
		paid, err := c.claimer.ClaimAll(ctx, r.PoolType, r.RoundNumber)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("vesting pool %s round %d: %w", r.PoolType, r.RoundNumber, err)
			}
			continue
		}
		if paid > 0 {
			c.logger.Printf("[crank] vested pool=%s round=%d paid=%d", r.PoolType, r.RoundNumber, paid)
		}
	}
	return firstErr
}

// sweepReferrals settles referral fees for every drawn round.
func (c *Crank) sweepReferrals(ctx context.Context) error {
	var firstErr error
	for _, pool := range domain.PoolTypes() {
		paid, err := c.payer.ClaimPending(ctx, pool)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("referrals pool %s: %w", pool, err)
			}
			continue
		}
		if paid > 0 {
			c.logger.Printf("[crank] referrals pool=%s paid=%d", pool, paid)
		}
	}
	return firstErr
}
