/*
events.go - Typed events emitted on state changes

PURPOSE:
  Off-engine observers (the sqlite journal, metrics, dashboards) learn about
  state changes through events. The engine emits after its own state has
  committed, still within the request; sinks must not fail the request, so
  Emit returns nothing and sinks handle their own errors.

SEE ALSO:
  - store/sqlite: Append-only journal consuming these events
*/
package engine

import "time"

// Event is implemented by every notification the engine emits.
type Event interface {
	EventName() string
}

// EventSink receives events after each committed state change.
// Implementations must be cheap and must not re-enter the engine.
type EventSink interface {
	Emit(ev Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// =============================================================================
// EVENT TYPES
// =============================================================================

type SaleConfigured struct {
	Item          ItemID
	Version       uint64
	Price         Amount
	StartTime     time.Time
	EndTime       time.Time
	MaxSupply     uint64
	MaxPerAddress uint64
	PaymentToken  TokenID
}

func (SaleConfigured) EventName() string { return "sale_configured" }

type SaleParamsUpdated struct {
	Item     ItemID
	Version  uint64
	NewPrice Amount
	NewEnd   time.Time
}

func (SaleParamsUpdated) EventName() string { return "sale_params_updated" }

type SaleStatusChanged struct {
	Item    ItemID
	Version uint64
	Active  bool
}

func (SaleStatusChanged) EventName() string { return "sale_status_changed" }

type PurchaseCompleted struct {
	ReceiptID string
	Item      ItemID
	Version   uint64
	Buyer     AccountID
	Quantity  uint64
	Cost      Amount
	Token     TokenID
	At        time.Time
}

func (PurchaseCompleted) EventName() string { return "purchase_completed" }

type CollaboratorChanged struct {
	Kind    string // "asset_ledger" or "payment_recipient"
	Account AccountID
}

func (CollaboratorChanged) EventName() string { return "collaborator_changed" }

type PauseToggled struct {
	Paused bool
}

func (PauseToggled) EventName() string { return "pause_toggled" }

type ItemsWithdrawn struct {
	To        AccountID
	Items     []ItemID
	Amounts   []uint64
}

func (ItemsWithdrawn) EventName() string { return "items_withdrawn" }

type NativeWithdrawn struct {
	To     AccountID
	Amount Amount
}

func (NativeWithdrawn) EventName() string { return "native_withdrawn" }

type TokenWithdrawn struct {
	To     AccountID
	Token  TokenID
	Amount Amount
}

func (TokenWithdrawn) EventName() string { return "token_withdrawn" }
