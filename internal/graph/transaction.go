package graph

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Transaction accumulates node and edge writes for atomic commit via the
// driver's StoreGraphAtomic, and discards them on rollback. It models
// spec.md §4.3.7's session-backed transaction handle without requiring the
// underlying driver to expose raw sessions.
type Transaction struct {
	svc *Service

	mu      sync.Mutex
	open    bool
	nodes   []*CodeNode
	edges   []*CodeEdge
	onClose func()
}

// BeginTransaction opens a new Transaction and increments the service's
// active-transaction count. No pool session is held while writes are
// staged.
func (svc *Service) BeginTransaction(ctx context.Context) (*Transaction, error) {
	if !svc.breaker.allow() {
		return nil, ErrCircuitOpen
	}

	svc.mu.Lock()
	svc.activeTransactions++
	svc.mu.Unlock()

	tx := &Transaction{svc: svc, open: true}
	tx.onClose = func() {
		svc.mu.Lock()
		if svc.activeTransactions > 0 {
			svc.activeTransactions--
		}
		svc.mu.Unlock()
	}
	return tx, nil
}

// IsOpen reports whether the transaction can still accept writes.
func (tx *Transaction) IsOpen() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.open
}

// Run stages a node and/or edge write for this transaction. It is an
// error to call Run after Commit or Rollback.
func (tx *Transaction) Run(node *CodeNode, edge *CodeEdge) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if !tx.open {
		return fmt.Errorf("transaction is closed")
	}
	if node != nil {
		tx.nodes = append(tx.nodes, node)
	}
	if edge != nil {
		tx.edges = append(tx.edges, edge)
	}
	return nil
}

// Commit flushes all staged writes atomically and closes the transaction
// exactly once.
func (tx *Transaction) Commit(ctx context.Context) error {
	tx.mu.Lock()
	if !tx.open {
		tx.mu.Unlock()
		return fmt.Errorf("transaction already closed")
	}
	tx.open = false
	nodes, edges := tx.nodes, tx.edges
	tx.mu.Unlock()
	tx.onClose()

	if len(nodes) == 0 && len(edges) == 0 {
		return nil
	}
	return tx.svc.executeWithRetry(ctx, "commitTransaction", tx.svc.retryOpts(), func(ctx context.Context) error {
		return tx.svc.driver.StoreGraphAtomic(ctx, nodes, edges)
	})
}

// Rollback discards all staged writes and closes the transaction exactly
// once. Rollback failures are logged but never mask an original error —
// there is nothing to roll back server-side since nothing was flushed yet.
func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	if !tx.open {
		tx.mu.Unlock()
		return nil
	}
	tx.open = false
	tx.nodes, tx.edges = nil, nil
	tx.mu.Unlock()
	tx.onClose()
	return nil
}

// ExecuteInTransaction runs fn against a fresh Transaction, committing on
// return and rolling back on error. Rollback failures are logged, not
// propagated, so they don't mask fn's original error.
func (svc *Service) ExecuteInTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	tx, err := svc.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Printf("graph transaction rollback failed: %v", rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}
