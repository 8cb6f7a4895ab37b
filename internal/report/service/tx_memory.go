package service

import (
	"context"
	"sync"
)

// MemoryTxRunner serializes units of work over in-memory stores. There is no
// rollback: callers must order writes so that a failed step leaves nothing
// behind, which Submit does by inserting the report first (the only step that
// can conflict).
type MemoryTxRunner struct {
	mu     sync.Mutex
	stores TxStores
}

func NewMemoryTxRunner(stores TxStores) *MemoryTxRunner {
	return &MemoryTxRunner{stores: stores}
}

func (r *MemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, r.stores)
}
