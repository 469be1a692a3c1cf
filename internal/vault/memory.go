package vault

import (
	"context"
	"sync"
)

// MemoryLedger is an in-memory Ledger. It also tracks the cumulative
// burned amount so conservation can be checked end to end in tests.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
	burned   uint64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]uint64),
	}
}

// Balance returns the account balance; unknown accounts report zero.
func (l *MemoryLedger) Balance(_ context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Credit adds amount to an account.
func (l *MemoryLedger) Credit(_ context.Context, account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	return nil
}

// Transfer moves amount between accounts, all or nothing.
func (l *MemoryLedger) Transfer(_ context.Context, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Burn destroys amount from an account.
func (l *MemoryLedger) Burn(_ context.Context, from string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.burned += amount
	return nil
}

// Burned returns the cumulative burned amount.
func (l *MemoryLedger) Burned() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burned
}

var _ Ledger = (*MemoryLedger)(nil)
