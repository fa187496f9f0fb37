/*
collaborators.go - External collaborator contracts

PURPOSE:
  The engine does not own asset balances, token balances, native currency,
  or the wall clock. It consumes them through these interfaces. Production
  hosts wire real ledgers; tests and the dev server wire the in-memory
  doubles from engine/enginetest.

CUSTODY MODEL:
  The engine has its own account (Engine.self). Sale inventory is whatever
  the asset ledger reports that account as holding. Native tender is modeled
  as the hosting layer crediting the engine's native account before the call;
  the engine forwards the cost and refunds the excess within the same
  request, so its native balance returns to zero before the request ends.

SEE ALSO:
  - enginetest/memory.go: In-memory implementations
  - settlement.go:        How payments move through these interfaces
*/
package engine

import (
	"context"
	"time"
)

// Clock supplies the engine's notion of current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// AssetLedger tracks ownership of item units and moves them atomically.
// Transfers either fully succeed or fail with no effect.
type AssetLedger interface {
	// BalanceOf reports how many units of item the holder owns.
	BalanceOf(ctx context.Context, holder AccountID, item ItemID) (uint64, error)

	// Transfer moves quantity units of item from one account to another.
	Transfer(ctx context.Context, from, to AccountID, item ItemID, quantity uint64) error

	// TransferBatch moves several item quantities atomically.
	// len(items) must equal len(quantities).
	TransferBatch(ctx context.Context, from, to AccountID, items []ItemID, quantities []uint64) error
}

// TokenLedger moves fungible payment tokens. Pull either fully succeeds
// or fails; the engine never observes a partial token transfer.
type TokenLedger interface {
	BalanceOf(ctx context.Context, token TokenID, holder AccountID) (Amount, error)

	// Pull moves amount of token from payer to recipient.
	Pull(ctx context.Context, token TokenID, payer, recipient AccountID, amount Amount) error
}

// NativeBank moves native currency between accounts.
type NativeBank interface {
	BalanceOf(ctx context.Context, holder AccountID) (Amount, error)
	Transfer(ctx context.Context, from, to AccountID, amount Amount) error
}
