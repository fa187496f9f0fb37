/*
validator.go - Admission control

PURPOSE:
  The pure read-side decision of whether a purchase attempt may proceed.
  Five checks run in order, short-circuiting on the first failure, and the
  first failing check determines the rejection reason:

    (a) the item is in the active set and its config is active
    (b) now falls inside [StartTime, EndTime], both endpoints inclusive
    (c) TotalSold + quantity fits within MaxSupply (no wrapping; the
        subtraction form cannot overflow because TotalSold <= MaxSupply)
    (d) the custody account holds at least quantity units
    (e) if a per-buyer quota is set, the buyer's current-version counter
        plus quantity fits within it

  admit never mutates anything. Batches re-run it independently for every
  entry; duplicate items are rejected up front by the orchestrator, so each
  entry's supply check is against disjoint counters.

SEE ALSO:
  - batch.go:  Calls admit for every staged entry before any movement
  - ledger.go: The counters consulted by checks (c) and (e)
*/
package engine

import (
	"context"
	"time"
)

// admit approves or rejects one purchase attempt. Read-only.
// Caller holds the read lock around the state accesses; the inventory
// query goes to the asset ledger outside any admission ordering concern
// because nothing has been mutated yet.
func (e *Engine) admit(ctx context.Context, item ItemID, quantity uint64, buyer AccountID, now time.Time) (*SaleConfig, error) {
	e.mu.RLock()
	cfg, ok := e.sales[item]
	if !ok {
		e.mu.RUnlock()
		return nil, ErrSaleNotFound
	}
	if !e.active.Contains(item) || !cfg.Active {
		e.mu.RUnlock()
		return nil, &AdmissionError{Item: item, Buyer: buyer, Check: "not_active", Err: ErrSaleNotActive}
	}
	if !cfg.InWindow(now) {
		e.mu.RUnlock()
		return nil, &AdmissionError{Item: item, Buyer: buyer, Check: "window", Err: ErrSaleNotActive}
	}
	if quantity > cfg.MaxSupply-cfg.TotalSold {
		e.mu.RUnlock()
		return nil, &AdmissionError{Item: item, Buyer: buyer, Check: "supply", Err: ErrExceedsMaxSupply}
	}
	purchased := e.bought(cfg, buyer)
	maxPer := cfg.MaxPerAddress
	e.mu.RUnlock()

	held, err := e.assets.BalanceOf(ctx, e.self, item)
	if err != nil {
		return nil, err
	}
	if held < quantity {
		return nil, &AdmissionError{Item: item, Buyer: buyer, Check: "inventory", Err: ErrInsufficientInventory}
	}

	if maxPer > 0 {
		next, err := addU64(purchased, quantity)
		if err != nil || next > maxPer {
			return nil, &AdmissionError{Item: item, Buyer: buyer, Check: "quota",
				Err: &QuotaExceededError{Item: item, Buyer: buyer, Purchased: purchased, Requested: quantity, Quota: maxPer}}
		}
	}

	return cfg, nil
}
