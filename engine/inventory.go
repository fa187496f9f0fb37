/*
inventory.go - Administrator withdrawals and the inventory guard

PURPOSE:
  Maintenance path. The administrator can pull surplus inventory, stray
  native currency, and stray tokens out of the engine's custody account,
  but never inventory that active sales still require: an active sale
  reserves its remaining allotment (MaxSupply - TotalSold) and a withdrawal
  is refused unless held balance covers requested + reserved.

SEE ALSO:
  - registry.go: Where the reservation comes from
  - errors.go:   WithdrawalBlockedError
*/
package engine

import "context"

// checkWithdrawable applies the inventory guard for one item. Inactive or
// unconfigured items impose no constraint.
func (e *Engine) checkWithdrawable(ctx context.Context, item ItemID, requested uint64) error {
	e.mu.RLock()
	cfg, ok := e.sales[item]
	var needed uint64
	if ok && cfg.Active {
		needed = cfg.Remaining()
	}
	e.mu.RUnlock()
	if needed == 0 {
		return nil
	}

	held, err := e.assets.BalanceOf(ctx, e.self, item)
	if err != nil {
		return err
	}
	required, err := addU64(requested, needed)
	if err != nil || held < required {
		return &WithdrawalBlockedError{Item: item, Requested: requested, Held: held, Needed: needed}
	}
	return nil
}

// WithdrawItems transfers item units from custody to the administrator.
// Admin only. Every entry is checked against the inventory guard before any
// transfer is issued; the whole batch aborts on the first refusal.
func (e *Engine) WithdrawItems(ctx context.Context, caller AccountID, items []ItemID, amounts []uint64) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller), e.initialized); err != nil {
		return err
	}
	if len(items) != len(amounts) {
		return ErrLengthMismatch
	}
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	for _, a := range amounts {
		if a == 0 {
			return ErrZeroQuantity
		}
	}
	// Duplicates would each be checked against the same pre-transfer
	// balance and could jointly breach the reserved allotment.
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if items[i] == items[j] {
				return ErrDuplicateItem
			}
		}
	}

	for i, item := range items {
		if err := e.checkWithdrawable(ctx, item, amounts[i]); err != nil {
			return err
		}
	}

	if err := e.assets.TransferBatch(ctx, e.self, caller, items, amounts); err != nil {
		return err
	}

	e.events.Emit(ItemsWithdrawn{To: caller, Items: items, Amounts: amounts})
	return nil
}

// WithdrawNativeBalance sweeps the custody account's native balance to the
// administrator. Admin only. The balance is normally zero because every
// request forwards or refunds its tender; this recovers currency pushed in
// outside any purchase.
func (e *Engine) WithdrawNativeBalance(ctx context.Context, caller AccountID) (Amount, error) {
	if err := e.enter(); err != nil {
		return ZeroAmount(), err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller)); err != nil {
		return ZeroAmount(), err
	}

	balance, err := e.bank.BalanceOf(ctx, e.self)
	if err != nil {
		return ZeroAmount(), err
	}
	if !balance.IsPositive() {
		return ZeroAmount(), nil
	}
	if err := e.bank.Transfer(ctx, e.self, caller, balance); err != nil {
		return ZeroAmount(), err
	}

	e.events.Emit(NativeWithdrawn{To: caller, Amount: balance})
	return balance, nil
}

// WithdrawTokenBalance sweeps the custody account's balance of one token to
// the administrator. Admin only.
func (e *Engine) WithdrawTokenBalance(ctx context.Context, caller AccountID, token TokenID) (Amount, error) {
	if err := e.enter(); err != nil {
		return ZeroAmount(), err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller)); err != nil {
		return ZeroAmount(), err
	}
	if e.tokens == nil {
		return ZeroAmount(), ErrNotInitialized
	}

	balance, err := e.tokens.BalanceOf(ctx, token, e.self)
	if err != nil {
		return ZeroAmount(), err
	}
	if !balance.IsPositive() {
		return ZeroAmount(), nil
	}
	if err := e.tokens.Pull(ctx, token, e.self, caller, balance); err != nil {
		return ZeroAmount(), err
	}

	e.events.Emit(TokenWithdrawn{To: caller, Token: token, Amount: balance})
	return balance, nil
}
