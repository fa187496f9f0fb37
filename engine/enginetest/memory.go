// Package enginetest provides in-memory collaborator implementations:
// an asset ledger, a token ledger, a native bank, a manual clock, and an
// event recorder. They back the engine's tests and the dev server; none of
// them is a production ledger.
package enginetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/sale-engine/engine"
)

// =============================================================================
// ASSET LEDGER - fungible item units per (holder, item)
// =============================================================================

type assetKey struct {
	Holder engine.AccountID
	Item   engine.ItemID
}

type AssetLedger struct {
	mu       sync.Mutex
	balances map[assetKey]uint64
}

func NewAssetLedger() *AssetLedger {
	return &AssetLedger{balances: make(map[assetKey]uint64)}
}

// Mint credits units out of thin air. Test/dev setup only.
func (l *AssetLedger) Mint(holder engine.AccountID, item engine.ItemID, quantity uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[assetKey{holder, item}] += quantity
}

func (l *AssetLedger) BalanceOf(_ context.Context, holder engine.AccountID, item engine.ItemID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[assetKey{holder, item}], nil
}

func (l *AssetLedger) Transfer(_ context.Context, from, to engine.AccountID, item engine.ItemID, quantity uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, item, quantity)
}

// TransferBatch moves several item quantities atomically: balances are
// checked for every entry before any entry moves.
func (l *AssetLedger) TransferBatch(_ context.Context, from, to engine.AccountID, items []engine.ItemID, quantities []uint64) error {
	if len(items) != len(quantities) {
		return fmt.Errorf("asset ledger: %d items vs %d quantities", len(items), len(quantities))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, item := range items {
		if l.balances[assetKey{from, item}] < quantities[i] {
			return fmt.Errorf("asset ledger: %s holds %d of %s, need %d",
				from, l.balances[assetKey{from, item}], item, quantities[i])
		}
	}
	for i, item := range items {
		if err := l.transferLocked(from, to, item, quantities[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *AssetLedger) transferLocked(from, to engine.AccountID, item engine.ItemID, quantity uint64) error {
	src := assetKey{from, item}
	if l.balances[src] < quantity {
		return fmt.Errorf("asset ledger: %s holds %d of %s, need %d", from, l.balances[src], item, quantity)
	}
	l.balances[src] -= quantity
	l.balances[assetKey{to, item}] += quantity
	return nil
}

// =============================================================================
// TOKEN LEDGER - fungible payment tokens, with pull-call recording
// =============================================================================

type tokenKey struct {
	Token  engine.TokenID
	Holder engine.AccountID
}

// PullCall records one Pull for assertions on transfer-call counts.
type PullCall struct {
	Token     engine.TokenID
	Payer     engine.AccountID
	Recipient engine.AccountID
	Amount    engine.Amount
}

type TokenLedger struct {
	mu       sync.Mutex
	balances map[tokenKey]engine.Amount
	pulls    []PullCall
}

func NewTokenLedger() *TokenLedger {
	return &TokenLedger{balances: make(map[tokenKey]engine.Amount)}
}

func (l *TokenLedger) Mint(token engine.TokenID, holder engine.AccountID, amount engine.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[tokenKey{token, holder}] = l.balance(token, holder).Add(amount)
}

func (l *TokenLedger) BalanceOf(_ context.Context, token engine.TokenID, holder engine.AccountID) (engine.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(token, holder), nil
}

// Pull moves amount from payer to recipient, failing with no effect when the
// payer cannot cover it.
func (l *TokenLedger) Pull(_ context.Context, token engine.TokenID, payer, recipient engine.AccountID, amount engine.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.balance(token, payer)
	if have.LessThan(amount) {
		return fmt.Errorf("token ledger: %s holds %s of %s, need %s", payer, have, token, amount)
	}
	l.balances[tokenKey{token, payer}] = have.Sub(amount)
	l.balances[tokenKey{token, recipient}] = l.balance(token, recipient).Add(amount)
	l.pulls = append(l.pulls, PullCall{Token: token, Payer: payer, Recipient: recipient, Amount: amount})
	return nil
}

// Pulls returns every Pull issued so far, in order.
func (l *TokenLedger) Pulls() []PullCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PullCall, len(l.pulls))
	copy(out, l.pulls)
	return out
}

func (l *TokenLedger) balance(token engine.TokenID, holder engine.AccountID) engine.Amount {
	if a, ok := l.balances[tokenKey{token, holder}]; ok {
		return a
	}
	return engine.ZeroAmount()
}

// =============================================================================
// NATIVE BANK
// =============================================================================

type NativeBank struct {
	mu       sync.Mutex
	balances map[engine.AccountID]engine.Amount
}

func NewNativeBank() *NativeBank {
	return &NativeBank{balances: make(map[engine.AccountID]engine.Amount)}
}

func (b *NativeBank) Deposit(holder engine.AccountID, amount engine.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[holder] = b.balance(holder).Add(amount)
}

func (b *NativeBank) BalanceOf(_ context.Context, holder engine.AccountID) (engine.Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(holder), nil
}

func (b *NativeBank) Transfer(_ context.Context, from, to engine.AccountID, amount engine.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	have := b.balance(from)
	if have.LessThan(amount) {
		return fmt.Errorf("native bank: %s holds %s, need %s", from, have, amount)
	}
	b.balances[from] = have.Sub(amount)
	b.balances[to] = b.balance(to).Add(amount)
	return nil
}

func (b *NativeBank) balance(holder engine.AccountID) engine.Amount {
	if a, ok := b.balances[holder]; ok {
		return a
	}
	return engine.ZeroAmount()
}

// =============================================================================
// MANUAL CLOCK
// =============================================================================

// Clock is a settable clock for deterministic tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// =============================================================================
// EVENT RECORDER
// =============================================================================

// EventRecorder captures emitted events for assertions.
type EventRecorder struct {
	mu     sync.Mutex
	events []engine.Event
}

func NewEventRecorder() *EventRecorder { return &EventRecorder{} }

func (r *EventRecorder) Emit(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *EventRecorder) Events() []engine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.Event, len(r.events))
	copy(out, r.events)
	return out
}
