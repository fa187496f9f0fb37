/*
settlement.go - Payment settlement and staged purchase plans

PURPOSE:
  A purchase request is executed as a staged plan: admission computes every
  entry's cost and the aggregate charges first, and only once the whole plan
  is admitted does any money or inventory move. A late validation failure
  therefore never leaves partial state.

NATIVE CURRENCY:
  The hosting layer credits the engine's custody account with the tendered
  value before the call. Settlement requires tendered >= the plan's native
  cost, forwards exactly the cost to the payment recipient, and returns the
  excess to the buyer within the same request. Tendering native value on a
  plan with no native-denominated entries is rejected so stray currency is
  never silently absorbed.

TOKENS:
  Token charges pull exactly the cost from the buyer to the recipient.
  The per-item strategy issues one pull per entry; the aggregated strategy
  one pull per distinct token. The observable pull count differs between
  the two and both are kept as selectable strategies.

SEE ALSO:
  - batch.go: Builds plans and drives execution
*/
package engine

import (
	"context"
)

// planEntry is one admitted (item, quantity) pair with its computed charge.
type planEntry struct {
	item     ItemID
	version  uint64
	quantity uint64
	cost     Amount
	token    TokenID
}

// tokenTotal aggregates the charge for one distinct payment token.
type tokenTotal struct {
	token  TokenID
	amount Amount
}

// purchasePlan is the staged outcome of admitting a whole request.
type purchasePlan struct {
	buyer       AccountID
	entries     []planEntry
	nativeCost  Amount
	tokenTotals []tokenTotal // distinct tokens in first-seen order
}

// addCharge folds one entry's cost into the plan's aggregates. The distinct
// token scan is linear; the batch bound keeps it cheap.
func (p *purchasePlan) addCharge(token TokenID, cost Amount) {
	if token.IsNative() {
		p.nativeCost = p.nativeCost.Add(cost)
		return
	}
	for i := range p.tokenTotals {
		if p.tokenTotals[i].token == token {
			p.tokenTotals[i].amount = p.tokenTotals[i].amount.Add(cost)
			return
		}
	}
	p.tokenTotals = append(p.tokenTotals, tokenTotal{token: token, amount: cost})
}

// checkTender validates native tender against the plan before anything moves.
// Pure; safe to run ahead of any external transfer.
func (p *purchasePlan) checkTender(tendered Amount) error {
	if p.nativeCost.IsZero() {
		if tendered.IsPositive() {
			return ErrUnexpectedNativeTender
		}
		return nil
	}
	if !tendered.GreaterThanOrEqual(p.nativeCost) {
		return &InsufficientPaymentError{Required: p.nativeCost, Tendered: tendered}
	}
	return nil
}

// settleTokens moves token payments. perEntry selects the per-item strategy
// (one pull per entry) over the aggregated one (one pull per distinct token).
func (e *Engine) settleTokens(ctx context.Context, plan *purchasePlan, perEntry bool) error {
	if len(plan.tokenTotals) == 0 {
		return nil
	}
	if perEntry {
		for _, entry := range plan.entries {
			if entry.token.IsNative() {
				continue
			}
			if err := e.tokens.Pull(ctx, entry.token, plan.buyer, e.recipient, entry.cost); err != nil {
				return err
			}
		}
		return nil
	}
	for _, tt := range plan.tokenTotals {
		if err := e.tokens.Pull(ctx, tt.token, plan.buyer, e.recipient, tt.amount); err != nil {
			return err
		}
	}
	return nil
}

// settleNative forwards the plan's native cost to the recipient and refunds
// the excess tender to the buyer. Returns the refund issued.
func (e *Engine) settleNative(ctx context.Context, plan *purchasePlan, tendered Amount) (Amount, error) {
	refund := ZeroAmount()
	if plan.nativeCost.IsPositive() {
		if err := e.bank.Transfer(ctx, e.self, e.recipient, plan.nativeCost); err != nil {
			return ZeroAmount(), err
		}
		refund = tendered.Sub(plan.nativeCost)
	}
	if refund.IsPositive() {
		if err := e.bank.Transfer(ctx, e.self, plan.buyer, refund); err != nil {
			return ZeroAmount(), err
		}
	}
	return refund, nil
}
