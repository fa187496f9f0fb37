/*
registry.go - Sale configuration lifecycle

PURPOSE:
  Owns the item -> SaleConfig mapping and keeps the active set strictly in
  sync with SaleConfig.Active. A sale is created on first configuration
  (version 1) and only ever replaced wholesale by a later reconfiguration:
  the version increments, TotalSold resets to zero, and the previous
  version's quota entries become inert.

RULES (enforced here, see tests in registry_test.go):
  - Configure rejects zero price, zero max supply, start >= end, and any
    attempt to reconfigure while the current config is active; an in-flight
    sale's accounting must be retired deliberately, never silently discarded
  - Optional inventory verification requires held balance >= max supply
  - UpdateParams patches price and end time in place; the end time may only
    be extended, never shortened, so a window buyers rely on cannot close
    retroactively
  - Activating re-validates the window and that held inventory still covers
    the remaining allotment; deactivating is unconditional

SEE ALSO:
  - activeset.go: The index kept in sync here
  - validator.go: Consumes the configs written here
*/
package engine

import (
	"context"
	"time"
)

// ConfigureSaleParams carries the full parameter set for Configure.
type ConfigureSaleParams struct {
	Item            ItemID
	Price           Amount
	StartTime       time.Time
	EndTime         time.Time
	MaxSupply       uint64
	MaxPerAddress   uint64 // 0 means unlimited
	PaymentToken    TokenID
	VerifyInventory bool
}

// Configure creates or replaces the sale for an item. Admin only.
// On success the new version is active and enumerable immediately.
func (e *Engine) Configure(ctx context.Context, caller AccountID, p ConfigureSaleParams) (*SaleConfig, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller), e.initialized); err != nil {
		return nil, err
	}

	if !p.Price.IsPositive() {
		return nil, ErrZeroPrice
	}
	if p.MaxSupply == 0 {
		return nil, ErrZeroMaxSupply
	}
	if !p.StartTime.Before(p.EndTime) {
		return nil, ErrInvalidTimeRange
	}
	// An unset payment token means native currency; stored configs always
	// carry the explicit denomination.
	if p.PaymentToken == "" {
		p.PaymentToken = NativeToken
	}
	if !p.PaymentToken.IsNative() && e.tokens == nil {
		return nil, ErrNotInitialized
	}

	e.mu.RLock()
	prev := e.sales[p.Item]
	e.mu.RUnlock()
	if prev != nil && prev.Active {
		return nil, ErrSaleMustBeInactive
	}

	if p.VerifyInventory {
		held, err := e.assets.BalanceOf(ctx, e.self, p.Item)
		if err != nil {
			return nil, err
		}
		if held < p.MaxSupply {
			return nil, &AdmissionError{Item: p.Item, Check: "inventory", Err: ErrInsufficientInventory}
		}
	}

	version := uint64(1)
	if prev != nil {
		version = prev.SaleVersion + 1
	}

	cfg := &SaleConfig{
		Item:          p.Item,
		Price:         p.Price,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		MaxSupply:     p.MaxSupply,
		MaxPerAddress: p.MaxPerAddress,
		TotalSold:     0,
		PaymentToken:  p.PaymentToken,
		Active:        true,
		SaleVersion:   version,
	}

	e.mu.Lock()
	e.sales[p.Item] = cfg
	e.active.Add(p.Item)
	e.mu.Unlock()

	e.events.Emit(SaleConfigured{
		Item:          cfg.Item,
		Version:       cfg.SaleVersion,
		Price:         cfg.Price,
		StartTime:     cfg.StartTime,
		EndTime:       cfg.EndTime,
		MaxSupply:     cfg.MaxSupply,
		MaxPerAddress: cfg.MaxPerAddress,
		PaymentToken:  cfg.PaymentToken,
	})

	snapshot := cfg.clone()
	return &snapshot, nil
}

// UpdateParams patches price and end time of an existing sale in place.
// Admin only. Does not touch TotalSold, Active, or SaleVersion.
func (e *Engine) UpdateParams(caller AccountID, item ItemID, newPrice Amount, newEnd time.Time) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller)); err != nil {
		return err
	}

	e.mu.Lock()
	cfg, ok := e.sales[item]
	if !ok {
		e.mu.Unlock()
		return ErrSaleNotFound
	}
	if !newPrice.IsPositive() {
		e.mu.Unlock()
		return ErrZeroPrice
	}
	if newEnd.Before(cfg.EndTime) {
		e.mu.Unlock()
		return ErrEndTimeShortened
	}
	cfg.Price = newPrice
	cfg.EndTime = newEnd
	version := cfg.SaleVersion
	e.mu.Unlock()

	e.events.Emit(SaleParamsUpdated{Item: item, Version: version, NewPrice: newPrice, NewEnd: newEnd})
	return nil
}

// SetActive activates or deactivates a sale. Admin only.
// Activation re-validates the time range and that held inventory covers the
// remaining allotment; deactivation is unconditional and immediately removes
// the item from the active set.
func (e *Engine) SetActive(ctx context.Context, caller AccountID, item ItemID, active bool) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller)); err != nil {
		return err
	}

	e.mu.RLock()
	cfg, ok := e.sales[item]
	e.mu.RUnlock()
	if !ok {
		return ErrSaleNotFound
	}

	if active {
		if err := e.check(e.initialized); err != nil {
			return err
		}
		if !cfg.StartTime.Before(cfg.EndTime) {
			return ErrInvalidTimeRange
		}
		held, err := e.assets.BalanceOf(ctx, e.self, item)
		if err != nil {
			return err
		}
		if held < cfg.Remaining() {
			return &AdmissionError{Item: item, Check: "inventory", Err: ErrInsufficientInventory}
		}
	}

	e.mu.Lock()
	cfg.Active = active
	if active {
		e.active.Add(item)
	} else {
		e.active.Remove(item)
	}
	version := cfg.SaleVersion
	e.mu.Unlock()

	e.events.Emit(SaleStatusChanged{Item: item, Version: version, Active: active})
	return nil
}

// SweepExpired deactivates every active sale whose window has closed.
// Housekeeping only: admission already rejects out-of-window purchases,
// this just keeps the active set tidy for enumeration. Returns the items
// deactivated.
func (e *Engine) SweepExpired(ctx context.Context) ([]ItemID, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	now := e.clock.Now()

	e.mu.Lock()
	var expired []ItemID
	for _, item := range e.active.Items() {
		cfg := e.sales[item]
		if cfg != nil && now.After(cfg.EndTime) {
			cfg.Active = false
			e.active.Remove(item)
			expired = append(expired, item)
		}
	}
	e.mu.Unlock()

	for _, item := range expired {
		e.mu.RLock()
		version := e.sales[item].SaleVersion
		e.mu.RUnlock()
		e.events.Emit(SaleStatusChanged{Item: item, Version: version, Active: false})
	}
	return expired, nil
}
