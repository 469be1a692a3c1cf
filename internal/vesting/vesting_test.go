package vesting

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage/memory"
	"tykhepot-engine/internal/vault"
)

const (
	testWinner = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	testEscrow = "So11111111111111111111111111111111111111112"
)

func newTestClaimer(t *testing.T, r *domain.DrawResult) (*Claimer, *vault.MemoryLedger, *int64) {
	t.Helper()
	ctx := context.Background()

	draws := memory.NewDrawResultStore()
	if err := draws.Insert(ctx, r); err != nil {
		t.Fatalf("insert draw: %v", err)
	}
	ledger := vault.NewMemoryLedger()
	var escrowTotal uint64
	for _, a := range r.TopAmounts {
		escrowTotal += a
	}
	if err := ledger.Credit(ctx, testEscrow, escrowTotal); err != nil {
		t.Fatalf("fund escrow: %v", err)
	}

	clock := r.DrawTimestamp
	c := NewClaimer(draws, ledger, testEscrow, nil, nil)
	c.SetClock(func() int64 { return clock })
	return c, ledger, &clock
}

func singleWinnerResult(total uint64) *domain.DrawResult {
	r := &domain.DrawResult{
		PoolType:      domain.PoolMin30,
		RoundNumber:   1,
		DrawTimestamp: 50_000,
	}
	r.TopWinners[domain.SlotFirst] = testWinner
	r.TopAmounts[domain.SlotFirst] = total
	return r
}

func TestVestedDays(t *testing.T) {
	const drawTime = 50_000
	cases := []struct {
		now  int64
		want uint64
	}{
		{drawTime - 1, 0},
		{drawTime, 1},
		{drawTime + domain.SecondsPerDay - 1, 1},
		{drawTime + domain.SecondsPerDay, 2},
		{drawTime + 19*domain.SecondsPerDay, 20},
		{drawTime + 400*domain.SecondsPerDay, 20},
	}
	for _, c := range cases {
		if got := VestedDays(drawTime, c.now); got != c.want {
			t.Errorf("VestedDays(%d, %d) = %d, want %d", drawTime, c.now, got, c.want)
		}
	}
}

// Day zero unlocks one tranche of five percent; twenty-five hours later a
// second tranche of the same size is claimable.
func TestClaimDailySchedule(t *testing.T) {
	const total = 1_000_000
	r := singleWinnerResult(total)
	c, ledger, clock := newTestClaimer(t, r)
	ctx := context.Background()

	got, err := c.Claim(ctx, domain.PoolMin30, 1, domain.SlotFirst)
	if err != nil {
		t.Fatalf("day 0 claim: %v", err)
	}
	if got != total/20 {
		t.Fatalf("day 0: got %d, want %d", got, total/20)
	}

	if _, err := c.Claim(ctx, domain.PoolMin30, 1, domain.SlotFirst); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("repeat claim same day: got %v", err)
	}

	*clock += 25 * 3600
	got, err = c.Claim(ctx, domain.PoolMin30, 1, domain.SlotFirst)
	if err != nil {
		t.Fatalf("day 1 claim: %v", err)
	}
	if got != total/20 {
		t.Fatalf("day 1: got %d, want %d", got, total/20)
	}

	if bal, _ := ledger.Balance(ctx, testWinner); bal != 2*total/20 {
		t.Fatalf("cumulative payout: got %d, want %d", bal, 2*total/20)
	}
}

// Claims after a missed stretch catch up in one call, and the lifetime total
// never exceeds the award.
func TestClaimCatchUpAndCompletion(t *testing.T) {
	const total uint64 = 999_999 // not divisible by 20, exercises flooring
	r := singleWinnerResult(total)
	c, ledger, clock := newTestClaimer(t, r)
	ctx := context.Background()

	*clock += 4 * domain.SecondsPerDay
	got, err := c.Claim(ctx, domain.PoolMin30, 1, domain.SlotFirst)
	if err != nil {
		t.Fatalf("catch-up claim: %v", err)
	}
	want := total * 5 / 20 // five tranches vested
	if got != want {
		t.Fatalf("catch-up: got %d, want %d", got, want)
	}

	*clock += 100 * domain.SecondsPerDay
	got, err = c.Claim(ctx, domain.PoolMin30, 1, domain.SlotFirst)
	if err != nil {
		t.Fatalf("final claim: %v", err)
	}
	if got != total-want {
		t.Fatalf("final: got %d, want %d", got, total-want)
	}

	if bal, _ := ledger.Balance(ctx, testWinner); bal != total {
		t.Fatalf("winner received %d, want %d", bal, total)
	}
	if _, err := c.Claim(ctx, domain.PoolMin30, 1, domain.SlotFirst); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("claim after completion: got %v", err)
	}
}

// Racing claims on the same slot settle the tranche exactly once: losers of
// the compare-and-swap reload, find nothing vested, and walk away.
func TestClaimConcurrentSingleTranche(t *testing.T) {
	const total uint64 = 20_000_000
	r := singleWinnerResult(total)
	c, ledger, _ := newTestClaimer(t, r)
	ctx := context.Background()

	const claimers = 4
	amounts := make([]uint64, claimers)
	errs := make([]error, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amounts[i], errs[i] = c.Claim(ctx, domain.PoolMin30, 1, domain.SlotFirst)
		}(i)
	}
	wg.Wait()

	var paid uint64
	var wins int
	for i := 0; i < claimers; i++ {
		switch {
		case errs[i] == nil:
			wins++
			paid += amounts[i]
		case errors.Is(errs[i], ErrNothingToClaim):
		default:
			t.Fatalf("claimer %d: %v", i, errs[i])
		}
	}
	if wins != 1 || paid != total/20 {
		t.Fatalf("wins=%d paid=%d, want one tranche of %d", wins, paid, total/20)
	}
	if bal, _ := ledger.Balance(ctx, testWinner); bal != total/20 {
		t.Fatalf("winner balance: got %d, want %d", bal, total/20)
	}
	got, err := c.draws.Get(ctx, domain.PoolMin30, 1)
	if err != nil {
		t.Fatalf("reload draw: %v", err)
	}
	if got.TopClaimed[domain.SlotFirst] != total/20 {
		t.Fatalf("claimed counter: got %d, want %d", got.TopClaimed[domain.SlotFirst], total/20)
	}
}

func TestClaimValidation(t *testing.T) {
	r := singleWinnerResult(1_000_000)
	c, _, _ := newTestClaimer(t, r)
	ctx := context.Background()

	if _, err := c.Claim(ctx, domain.PoolMin30, 2, domain.SlotFirst); !errors.Is(err, ErrRoundNotDrawn) {
		t.Fatalf("unknown round: got %v", err)
	}
	if _, err := c.Claim(ctx, domain.PoolMin30, 1, -1); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("negative slot: got %v", err)
	}
	if _, err := c.Claim(ctx, domain.PoolMin30, 1, domain.TopWinnerCount); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("slot past range: got %v", err)
	}
	if _, err := c.Claim(ctx, domain.PoolMin30, 1, domain.SlotSecondA); !errors.Is(err, ErrEmptySlot) {
		t.Fatalf("empty slot: got %v", err)
	}
}

func TestClaimAllSweepsPopulatedSlots(t *testing.T) {
	r := &domain.DrawResult{
		PoolType:      domain.PoolHourly,
		RoundNumber:   3,
		DrawTimestamp: 50_000,
	}
	winners := [domain.TopWinnerCount]string{
		"BPFLoaderUpgradeab1e11111111111111111111111",
		"Vote111111111111111111111111111111111111111",
		"Stake11111111111111111111111111111111111111",
		"SysvarC1ock11111111111111111111111111111111",
		"SysvarRent111111111111111111111111111111111",
		"Ed25519SigVerify111111111111111111111111111",
	}
	var want uint64
	for i := range winners {
		r.TopWinners[i] = winners[i]
		r.TopAmounts[i] = uint64(i+1) * 200_000
		want += r.TopAmounts[i] / 20
	}
	c, ledger, _ := newTestClaimer(t, r)
	ctx := context.Background()

	total, err := c.ClaimAll(ctx, domain.PoolHourly, 3)
	if err != nil {
		t.Fatalf("claim all: %v", err)
	}
	if total != want {
		t.Fatalf("claim all: got %d, want %d", total, want)
	}
	for i := range winners {
		bal, _ := ledger.Balance(ctx, winners[i])
		if bal != r.TopAmounts[i]/20 {
			t.Fatalf("slot %d payout: got %d", i, bal)
		}
	}

	// Nothing further unlocked today.
	total, err = c.ClaimAll(ctx, domain.PoolHourly, 3)
	if err != nil || total != 0 {
		t.Fatalf("second sweep: total=%d err=%v", total, err)
	}
}
