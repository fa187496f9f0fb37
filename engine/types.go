/*
Package engine implements the sale admission & settlement engine.

PURPOSE:
  This package contains the core types and algorithms for selling fixed-supply,
  time-boxed allotments of fungible item units: sale configuration, the
  versioned per-buyer quota ledger, admission control, payment settlement, and
  the batch purchase orchestrator.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A currency quantity backed by decimal.Decimal
  - ItemID/AccountID/TokenID: Type-safe identifiers
  - SaleConfig: One sale generation for one item
  - Receipt: The committed result of a purchase request

DESIGN PRINCIPLES:
  1. Exclusive ownership: all shared state lives inside Engine and is only
     mutated through its entry points, never through ambient globals
  2. Precision: decimal.Decimal for currency, never floating point
  3. Checked arithmetic: supply and quota counters are uint64 and every
     increment is overflow-checked; reject rather than wrap
  4. All-or-nothing: a request either fully commits or leaves no trace

SEE ALSO:
  - registry.go:   Sale configuration lifecycle
  - validator.go:  Admission control
  - batch.go:      Purchase orchestration and staged plans
  - errors.go:     Error taxonomy
*/
package engine

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ItemID identifies one fungible item kind in the asset ledger.
type ItemID string

// AccountID identifies a buyer, the administrator, the payment recipient,
// or the engine's own custody account.
type AccountID string

// TokenID identifies the currency a sale is denominated in.
type TokenID string

// NativeToken denominates a sale in the hosting environment's native
// currency. Every other TokenID value names a fungible payment token.
const NativeToken TokenID = "native"

// IsNative reports whether the token denotes native currency.
func (t TokenID) IsNative() bool { return t == NativeToken }

// =============================================================================
// AMOUNT - Currency quantity
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value int64) Amount        { return Amount{Value: decimal.NewFromInt(value)} }
func ZeroAmount() Amount                  { return Amount{Value: decimal.Zero} }
func NewAmountFromDecimal(d decimal.Decimal) Amount { return Amount{Value: d} }

// MustParseAmount parses a decimal string, returning zero on failure.
// Intended for literals in tests and config seeds.
func MustParseAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroAmount()
	}
	return Amount{Value: d}
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) MulUint(q uint64) Amount   { return Amount{Value: a.Value.Mul(decimal.NewFromUint64(q))} }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.Value.GreaterThanOrEqual(b.Value) }
func (a Amount) String() string            { return a.Value.String() }

// =============================================================================
// SALE CONFIG - One sale generation for one item
// =============================================================================

// SaleConfig describes the current generation of a sale for one item.
//
// INVARIANTS:
//   - TotalSold <= MaxSupply at all times
//   - Active implies StartTime before EndTime
//   - SaleVersion strictly increases across reconfigurations and is never reused
type SaleConfig struct {
	Item          ItemID
	Price         Amount // unit price, positive while configured
	StartTime     time.Time
	EndTime       time.Time
	MaxSupply     uint64
	MaxPerAddress uint64 // 0 means unlimited per buyer
	TotalSold     uint64 // monotonic within a version, reset on reconfiguration
	PaymentToken  TokenID
	Active        bool
	SaleVersion   uint64
}

// Remaining returns the unsold allotment of the current version.
func (c *SaleConfig) Remaining() uint64 { return c.MaxSupply - c.TotalSold }

// InWindow reports whether now falls inside [StartTime, EndTime], both
// endpoints inclusive.
func (c *SaleConfig) InWindow(now time.Time) bool {
	return !now.Before(c.StartTime) && !now.After(c.EndTime)
}

// clone returns a copy safe to hand to callers outside the lock.
func (c *SaleConfig) clone() SaleConfig { return *c }

// =============================================================================
// RECEIPT - Committed result of a purchase request
// =============================================================================

// ReceiptLine records one settled batch entry.
type ReceiptLine struct {
	Item     ItemID
	Version  uint64
	Quantity uint64
	Cost     Amount
	Token    TokenID
}

// Receipt is returned to the buyer after a purchase request commits.
// NativeSpent is the native currency forwarded to the payment recipient;
// Refund is the excess tender returned to the buyer in the same request.
type Receipt struct {
	ID          string
	Buyer       AccountID
	Lines       []ReceiptLine
	NativeSpent Amount
	Refund      Amount
	At          time.Time
}

// =============================================================================
// CHECKED ARITHMETIC
// =============================================================================

// addU64 adds two counters, rejecting overflow instead of wrapping.
func addU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrCounterOverflow
	}
	return a + b, nil
}
