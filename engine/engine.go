/*
engine.go - Engine state object, guard chain, admin wiring

PURPOSE:
  The Engine owns every piece of shared state (the sale table, the active
  set, the quota ledger) and exposes the mutating entry points. The hosting
  environment delivers requests one at a time; within a request, external
  collaborator calls could in principle re-enter the engine, so every
  mutating entry point holds a reentrancy guard for its full duration and
  rejects nested entry outright.

GUARD CHAIN:
  Cross-cutting checks compose as an ordered chain of predicates evaluated
  before the main body of each mutating operation, short-circuiting on the
  first rejection:

    reentrancy -> not paused -> initialized -> (admin, for admin-only ops)

LOCKING:
  - busy:  flips on for the full duration of every mutating entry point,
           released on every exit path. A nested mutating call while it is
           held fails with ErrReentrantCall.
  - mu:    RWMutex over the state maps, held only around state access,
           never across external collaborator calls. Read-only queries take
           the read side and are allowed to re-enter from collaborators.

SEE ALSO:
  - registry.go:  Sale configuration entry points
  - batch.go:     Purchase entry points
  - inventory.go: Withdrawal entry points
*/
package engine

import (
	"sync"
	"sync/atomic"
)

// DefaultMaxBatch caps the number of entries in one purchase batch.
// Bounds worst-case validation cost, including the pairwise duplicate scan.
const DefaultMaxBatch = 20

// Engine is the sale admission & settlement engine. Construct with New.
type Engine struct {
	busy atomic.Bool  // reentrancy guard for mutating entry points
	mu   sync.RWMutex // protects sales, active, quotas, paused, wiring

	admin     AccountID
	self      AccountID // custody account holding inventory and tender
	recipient AccountID // where payments are forwarded
	paused    bool

	clock  Clock
	assets AssetLedger
	tokens TokenLedger
	bank   NativeBank
	events EventSink

	maxBatch int

	sales  map[ItemID]*SaleConfig
	active *ActiveSet
	quotas quotaLedger
}

// Option customizes a new Engine.
type Option func(*Engine)

// WithClock replaces the system clock (tests use a manual clock).
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithEventSink wires an event sink. Default is NopSink.
func WithEventSink(s EventSink) Option { return func(e *Engine) { e.events = s } }

// WithTokenLedger wires the fungible payment-token collaborator.
func WithTokenLedger(t TokenLedger) Option { return func(e *Engine) { e.tokens = t } }

// WithMaxBatch overrides the batch length bound.
func WithMaxBatch(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBatch = n
		}
	}
}

// New creates an engine administered by admin, holding inventory and tender
// in the custody account self, paying out through bank. The asset ledger and
// payment recipient are wired separately (SetAssetLedger, SetPaymentRecipient)
// and purchases are rejected until both are set.
func New(admin, self AccountID, bank NativeBank, opts ...Option) *Engine {
	e := &Engine{
		admin:    admin,
		self:     self,
		clock:    SystemClock{},
		bank:     bank,
		events:   NopSink{},
		maxBatch: DefaultMaxBatch,
		sales:    make(map[ItemID]*SaleConfig),
		active:   NewActiveSet(),
		quotas:   make(quotaLedger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Admin returns the administrator account.
func (e *Engine) Admin() AccountID { return e.admin }

// Self returns the engine's custody account.
func (e *Engine) Self() AccountID { return e.self }

// =============================================================================
// GUARD CHAIN
// =============================================================================

type guard func() error

// enter takes the reentrancy guard. Callers must pair it with exit on
// every path.
func (e *Engine) enter() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (e *Engine) exit() { e.busy.Store(false) }

// check runs guards in order, short-circuiting on the first rejection.
func (e *Engine) check(guards ...guard) error {
	for _, g := range guards {
		if err := g(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) notPaused() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.paused {
		return ErrPaused
	}
	return nil
}

func (e *Engine) initialized() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.assets == nil || e.recipient == "" {
		return ErrNotInitialized
	}
	return nil
}

func (e *Engine) adminOnly(caller AccountID) guard {
	return func() error {
		if caller != e.admin {
			return ErrNotAdmin
		}
		return nil
	}
}

// =============================================================================
// ADMIN WIRING & MAINTENANCE
// =============================================================================

// SetAssetLedger wires the asset-ledger collaborator. Admin only.
func (e *Engine) SetAssetLedger(caller AccountID, ledger AssetLedger) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller)); err != nil {
		return err
	}
	e.mu.Lock()
	e.assets = ledger
	e.mu.Unlock()
	e.events.Emit(CollaboratorChanged{Kind: "asset_ledger", Account: e.self})
	return nil
}

// SetPaymentRecipient wires where payments are forwarded. Admin only.
func (e *Engine) SetPaymentRecipient(caller, recipient AccountID) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller)); err != nil {
		return err
	}
	e.mu.Lock()
	e.recipient = recipient
	e.mu.Unlock()
	e.events.Emit(CollaboratorChanged{Kind: "payment_recipient", Account: recipient})
	return nil
}

// SetPaused toggles the pause flag. Admin only. Paused engines reject every
// buyer-facing mutation; admin maintenance stays available.
func (e *Engine) SetPaused(caller AccountID, paused bool) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if err := e.check(e.adminOnly(caller)); err != nil {
		return err
	}
	e.mu.Lock()
	e.paused = paused
	e.mu.Unlock()
	e.events.Emit(PauseToggled{Paused: paused})
	return nil
}

// =============================================================================
// RESTORE - Rebuild state from a persisted snapshot
// =============================================================================

// QuotaEntry is one persisted quota counter.
type QuotaEntry struct {
	Item    ItemID
	Version uint64
	Buyer   AccountID
	Bought  uint64
}

// State is the persisted logical state of the engine.
type State struct {
	Sales  []SaleConfig
	Quotas []QuotaEntry
}

// Restore loads a persisted state into a freshly constructed engine.
// Must be called before the engine serves requests.
func (e *Engine) Restore(state State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range state.Sales {
		cfg := state.Sales[i]
		e.sales[cfg.Item] = &cfg
		if cfg.Active {
			e.active.Add(cfg.Item)
		}
	}
	for _, q := range state.Quotas {
		e.quotas[quotaKey{Item: q.Item, Version: q.Version, Buyer: q.Buyer}] = q.Bought
	}
}
