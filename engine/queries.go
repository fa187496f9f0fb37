/*
queries.go - Read-only views over engine state

PURPOSE:
  Everything a caller can ask without mutating anything: the active set,
  paginated configs, "live" sales (active, in window, not sold out), per-item
  snapshots, and per-buyer status. Queries take only the read lock and are
  deliberately outside the reentrancy guard, so a collaborator callback may
  consult them mid-request.
*/
package engine

import (
	"context"
	"time"
)

// BuyerStatus is the per-(item, buyer) snapshot: how much the buyer has
// purchased under the current sale version, how much quota remains, and
// whether a further purchase of one unit would currently be admitted.
type BuyerStatus struct {
	Item      ItemID
	Buyer     AccountID
	Version   uint64
	Purchased uint64
	// RemainingQuota is MaxPerAddress - Purchased; 0 with Unlimited set
	// means the sale imposes no per-buyer cap.
	RemainingQuota uint64
	Unlimited      bool
	Eligible       bool
}

// ActiveItems returns the identifiers of currently active sales.
func (e *Engine) ActiveItems() []ItemID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active.Items()
}

// IsActive reports whether the item's sale is currently active.
func (e *Engine) IsActive(item ItemID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active.Contains(item)
}

// Sale returns a snapshot of the item's current config.
func (e *Engine) Sale(item ItemID) (SaleConfig, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg, ok := e.sales[item]
	if !ok {
		return SaleConfig{}, ErrSaleNotFound
	}
	return cfg.clone(), nil
}

// RemainingSupply returns the unsold allotment of the item's current version.
func (e *Engine) RemainingSupply(item ItemID) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg, ok := e.sales[item]
	if !ok {
		return 0, ErrSaleNotFound
	}
	return cfg.Remaining(), nil
}

// ActiveSales returns one page of active sales with their configs.
// page is zero-based. Ordering follows the active set, which is stable
// between activations but not across removals.
func (e *Engine) ActiveSales(page, perPage int) []SaleConfig {
	if perPage <= 0 {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := page * perPage
	if start < 0 || start >= e.active.Len() {
		return nil
	}
	end := start + perPage
	if end > e.active.Len() {
		end = e.active.Len()
	}
	out := make([]SaleConfig, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, e.sales[e.active.At(i)].clone())
	}
	return out
}

// LiveSales returns the active sales that are inside their time window and
// not sold out at the given instant.
func (e *Engine) LiveSales(now time.Time) []SaleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []SaleConfig
	for _, item := range e.active.Items() {
		cfg := e.sales[item]
		if cfg.InWindow(now) && cfg.TotalSold < cfg.MaxSupply {
			out = append(out, cfg.clone())
		}
	}
	return out
}

// BuyerState returns the buyer's purchased/remaining/eligibility snapshot
// for one item. Eligibility mirrors admission for a single unit at now,
// including the inventory check against the asset ledger.
func (e *Engine) BuyerState(ctx context.Context, item ItemID, buyer AccountID) (BuyerStatus, error) {
	e.mu.RLock()
	cfg, ok := e.sales[item]
	if !ok {
		e.mu.RUnlock()
		return BuyerStatus{}, ErrSaleNotFound
	}
	status := BuyerStatus{
		Item:      item,
		Buyer:     buyer,
		Version:   cfg.SaleVersion,
		Purchased: e.bought(cfg, buyer),
		Unlimited: cfg.MaxPerAddress == 0,
	}
	if !status.Unlimited {
		if status.Purchased < cfg.MaxPerAddress {
			status.RemainingQuota = cfg.MaxPerAddress - status.Purchased
		}
	}
	wired := e.assets != nil
	e.mu.RUnlock()

	if wired {
		_, err := e.admit(ctx, item, 1, buyer, e.clock.Now())
		status.Eligible = err == nil
	}
	return status, nil
}

// SalesSnapshot returns a copy of every configured sale, active or not.
// Used by persistence and the API surface.
func (e *Engine) SalesSnapshot() []SaleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]SaleConfig, 0, len(e.sales))
	for _, cfg := range e.sales {
		out = append(out, cfg.clone())
	}
	return out
}
