package txvalidator

import (
	"context"
	"strings"
	"sync"
)

// Ledger records which transactions have already been credited. Claim must be
// atomic: of two concurrent claims for one hash exactly one returns true.
type Ledger interface {
	IsProcessed(ctx context.Context, source, txHash string) (bool, error)
	Claim(ctx context.Context, source, txHash string) (bool, error)
}

type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func ledgerKey(source, txHash string) string {
	return source + ":" + strings.ToLower(txHash)
}

func (l *MemoryLedger) IsProcessed(ctx context.Context, source, txHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[ledgerKey(source, txHash)]
	return ok, nil
}

func (l *MemoryLedger) Claim(ctx context.Context, source, txHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey(source, txHash)
	if _, ok := l.seen[key]; ok {
		return false, nil
	}
	l.seen[key] = struct{}{}
	return true, nil
}
