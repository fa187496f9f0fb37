/*
batch.go - Purchase orchestration

PURPOSE:
  Composes admission control, the quota ledger, payment settlement, and the
  asset-ledger collaborator to process a purchase request atomically.

REQUEST FLOW:

  take reentrancy guard
      |
  shape checks          (length, bound, zero quantity, duplicates)
      |
  admission per entry   (read-only; whole batch aborts on first rejection)
      |
  tender check          (pure; native value vs plan cost)
      |
  move payment          (token pulls, native forward + refund)
      |
  commit ledger         (TotalSold + quota counters, checked arithmetic)
      |
  asset transfer        (one aggregated transfer to the buyer)
      |
  emit events, release guard

  Everything before "move payment" is side-effect free, so any rejection
  leaves the engine exactly as it was. Once external transfers begin there
  is no partial rollback; ordering keeps the validated window as wide as
  possible before the first transfer.

STRATEGIES:
  PurchaseBatch            per-item settlement: one token pull per entry
  PurchaseBatchAggregated  aggregated settlement: one pull per distinct token
  Both collect native currency once, with a single refund of any excess.

SEE ALSO:
  - validator.go:  The admission checks
  - settlement.go: Plan structure and payment movement
*/
package engine

import (
	"context"

	"github.com/google/uuid"
)

// Purchase buys quantity units of one item for buyer. tendered is the native
// value sent along with the request; it must be zero for token-denominated
// sales.
func (e *Engine) Purchase(ctx context.Context, buyer AccountID, item ItemID, quantity uint64, tendered Amount) (*Receipt, error) {
	return e.purchase(ctx, buyer, []ItemID{item}, []uint64{quantity}, tendered, true)
}

// PurchaseBatch processes an ordered list of (item, quantity) requests with
// per-item settlement: token-denominated entries are paid one transfer per
// entry. All entries commit or none do.
func (e *Engine) PurchaseBatch(ctx context.Context, buyer AccountID, items []ItemID, quantities []uint64, tendered Amount) (*Receipt, error) {
	return e.purchase(ctx, buyer, items, quantities, tendered, true)
}

// PurchaseBatchAggregated processes a batch with aggregated settlement: one
// token transfer per distinct payment token instead of one per entry.
func (e *Engine) PurchaseBatchAggregated(ctx context.Context, buyer AccountID, items []ItemID, quantities []uint64, tendered Amount) (*Receipt, error) {
	return e.purchase(ctx, buyer, items, quantities, tendered, false)
}

func (e *Engine) purchase(ctx context.Context, buyer AccountID, items []ItemID, quantities []uint64, tendered Amount, perEntry bool) (*Receipt, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()
	if err := e.check(e.notPaused, e.initialized); err != nil {
		return nil, err
	}

	if err := checkShape(items, quantities, e.maxBatch); err != nil {
		return nil, err
	}

	now := e.clock.Now()

	// Stage: admit every entry and compute all charges before anything moves.
	plan := &purchasePlan{buyer: buyer, nativeCost: ZeroAmount()}
	for i, item := range items {
		cfg, err := e.admit(ctx, item, quantities[i], buyer, now)
		if err != nil {
			return nil, err
		}
		cost := cfg.Price.MulUint(quantities[i])
		plan.entries = append(plan.entries, planEntry{
			item:     item,
			version:  cfg.SaleVersion,
			quantity: quantities[i],
			cost:     cost,
			token:    cfg.PaymentToken,
		})
		plan.addCharge(cfg.PaymentToken, cost)
	}

	if err := plan.checkTender(tendered); err != nil {
		return nil, err
	}
	// The claimed tender must actually sit in custody before any pull is
	// issued; a later native-forward failure could not unwind them.
	if plan.nativeCost.IsPositive() {
		held, err := e.bank.BalanceOf(ctx, e.self)
		if err != nil {
			return nil, err
		}
		if held.LessThan(plan.nativeCost) {
			return nil, &InsufficientPaymentError{Required: plan.nativeCost, Tendered: held}
		}
	}

	// Move payment.
	if err := e.settleTokens(ctx, plan, perEntry); err != nil {
		return nil, err
	}
	refund, err := e.settleNative(ctx, plan, tendered)
	if err != nil {
		return nil, err
	}

	// Commit ledger mutations.
	e.mu.Lock()
	for _, entry := range plan.entries {
		if err := e.record(e.sales[entry.item], buyer, entry.quantity); err != nil {
			// Unreachable after admission; kept as a hard stop on the
			// overflow invariant.
			e.mu.Unlock()
			return nil, err
		}
	}
	e.mu.Unlock()

	// One aggregated asset transfer to the buyer.
	if len(items) == 1 {
		err = e.assets.Transfer(ctx, e.self, buyer, items[0], quantities[0])
	} else {
		err = e.assets.TransferBatch(ctx, e.self, buyer, items, quantities)
	}
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ID:          uuid.NewString(),
		Buyer:       buyer,
		NativeSpent: plan.nativeCost,
		Refund:      refund,
		At:          now,
	}
	for _, entry := range plan.entries {
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			Item:     entry.item,
			Version:  entry.version,
			Quantity: entry.quantity,
			Cost:     entry.cost,
			Token:    entry.token,
		})
		e.events.Emit(PurchaseCompleted{
			ReceiptID: receipt.ID,
			Item:      entry.item,
			Version:   entry.version,
			Buyer:     buyer,
			Quantity:  entry.quantity,
			Cost:      entry.cost,
			Token:     entry.token,
			At:        now,
		})
	}
	return receipt, nil
}

// checkShape enforces the input-shape rules shared by all strategies.
// Duplicates are found by pairwise comparison; the batch bound keeps the
// quadratic scan trivial.
func checkShape(items []ItemID, quantities []uint64, maxBatch int) error {
	if len(items) != len(quantities) {
		return ErrLengthMismatch
	}
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	if len(items) > maxBatch {
		return ErrBatchTooLarge
	}
	for _, q := range quantities {
		if q == 0 {
			return ErrZeroQuantity
		}
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[i] == items[j] {
				return ErrDuplicateItem
			}
		}
	}
	return nil
}
