package memory

import (
	"context"
	"errors"
	"testing"

	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/storage"
)

func TestDrawResultStore_InsertExclusive(t *testing.T) {
	store := NewDrawResultStore()
	ctx := context.Background()

	r := &domain.DrawResult{PoolType: domain.PoolHourly, RoundNumber: 4, DrawTimestamp: 1000}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on double draw, got %v", err)
	}
}

func TestDrawResultStore_AddClaimedCap(t *testing.T) {
	store := NewDrawResultStore()
	ctx := context.Background()

	r := &domain.DrawResult{PoolType: domain.PoolDaily, RoundNumber: 1}
	r.TopAmounts[domain.SlotFirst] = 100
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := store.AddClaimed(ctx, domain.PoolDaily, 1, domain.SlotFirst, 0, 60); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := store.AddClaimed(ctx, domain.PoolDaily, 1, domain.SlotFirst, 60, 40); err != nil {
		t.Fatalf("second claim: %v", err)
	}

	// A stale expectation means someone else advanced the counter first.
	if err := store.AddClaimed(ctx, domain.PoolDaily, 1, domain.SlotFirst, 60, 1); !errors.Is(err, storage.ErrStaleUpdate) {
		t.Fatalf("expected ErrStaleUpdate on stale expectation, got %v", err)
	}

	// Any further claim would exceed the award and must be rejected.
	if err := store.AddClaimed(ctx, domain.PoolDaily, 1, domain.SlotFirst, 100, 1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput past the cap, got %v", err)
	}

	got, err := store.Get(ctx, domain.PoolDaily, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TopClaimed[domain.SlotFirst] != 100 {
		t.Errorf("claimed = %d, want 100", got.TopClaimed[domain.SlotFirst])
	}
}

func TestDrawResultStore_ListUnfinished(t *testing.T) {
	store := NewDrawResultStore()
	ctx := context.Background()

	done := &domain.DrawResult{PoolType: domain.PoolMin30, RoundNumber: 1, DrawTimestamp: 10}
	done.TopAmounts[0] = 50
	done.TopClaimed[0] = 50

	pending := &domain.DrawResult{PoolType: domain.PoolMin30, RoundNumber: 2, DrawTimestamp: 20}
	pending.TopAmounts[0] = 50

	for _, r := range []*domain.DrawResult{done, pending} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("insert round %d: %v", r.RoundNumber, err)
		}
	}

	got, err := store.ListUnfinished(ctx)
	if err != nil {
		t.Fatalf("ListUnfinished: %v", err)
	}
	if len(got) != 1 || got[0].RoundNumber != 2 {
		t.Fatalf("expected only round 2 pending, got %+v", got)
	}
}
