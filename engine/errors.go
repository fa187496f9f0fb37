/*
errors.go - Centralized error types for the sale engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every rejection carries a specific, distinguishable signal so callers
  and tests can assert on the exact cause with errors.Is().

ERROR CATEGORIES:
  1. Input-shape errors  - zero quantity, mismatched lists, batch too large,
                           duplicate item in a batch
  2. State errors        - sale not found, sale not active, reconfigure while
                           active, collaborators unset, engine paused
  3. Admission errors    - payment shortfall, currency/token mismatch, supply
                           or quota exceeded, insufficient inventory,
                           invalid time range
  4. Arithmetic errors   - counter overflow on supply or quota increment
  5. Authorization error - caller is not the administrator, nested reentry

PROPAGATION:
  Every error aborts the whole request with no partial mutation and no
  partial external transfer. There is no retry inside the engine.

SEE ALSO:
  - validator.go: Produces admission errors
  - batch.go:     Produces input-shape errors
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Input shape.
	ErrZeroQuantity   = errors.New("quantity must be positive")
	ErrLengthMismatch = errors.New("items and quantities differ in length")
	ErrBatchTooLarge  = errors.New("batch exceeds maximum length")
	ErrEmptyBatch     = errors.New("empty batch")
	ErrDuplicateItem  = errors.New("duplicate item in batch")

	// State.
	ErrSaleNotFound       = errors.New("sale not found")
	ErrSaleNotActive      = errors.New("sale not active")
	ErrSaleMustBeInactive = errors.New("sale must be inactive to reconfigure")
	ErrNotInitialized     = errors.New("engine collaborators not configured")
	ErrPaused             = errors.New("engine is paused")

	// Configuration validity.
	ErrZeroPrice        = errors.New("price must be positive")
	ErrZeroMaxSupply    = errors.New("max supply must be positive")
	ErrInvalidTimeRange = errors.New("start time must be before end time")
	ErrEndTimeShortened = errors.New("end time may only be extended")

	// Admission.
	ErrExceedsMaxSupply       = errors.New("exceeds max supply")
	ErrExceedsMaxPerAddress   = errors.New("exceeds max per-address allocation")
	ErrInsufficientInventory  = errors.New("insufficient held inventory")
	ErrInsufficientPayment    = errors.New("insufficient payment")
	ErrUnexpectedNativeTender = errors.New("native currency tendered for token sale")

	// Maintenance.
	ErrActiveSaleInventory = errors.New("active sale still requires inventory")

	// Arithmetic.
	ErrCounterOverflow = errors.New("counter overflow")

	// Authorization / reentrancy.
	ErrNotAdmin      = errors.New("caller is not the administrator")
	ErrReentrantCall = errors.New("reentrant call rejected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AdmissionError reports which check rejected a purchase attempt.
// Check is one of "not_active", "window", "supply", "inventory", "quota".
type AdmissionError struct {
	Item  ItemID
	Buyer AccountID
	Check string
	Err   error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected for item %s (%s): %v", e.Item, e.Check, e.Err)
}

func (e *AdmissionError) Unwrap() error { return e.Err }

// InsufficientPaymentError details a native-currency shortfall.
type InsufficientPaymentError struct {
	Required Amount
	Tendered Amount
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: required %s, tendered %s", e.Required, e.Tendered)
}

func (e *InsufficientPaymentError) Unwrap() error { return ErrInsufficientPayment }

// QuotaExceededError details a per-buyer allocation violation.
type QuotaExceededError struct {
	Item      ItemID
	Buyer     AccountID
	Purchased uint64
	Requested uint64
	Quota     uint64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s on item %s: purchased %d, requested %d, quota %d",
		e.Buyer, e.Item, e.Purchased, e.Requested, e.Quota)
}

func (e *QuotaExceededError) Unwrap() error { return ErrExceedsMaxPerAddress }

// WithdrawalBlockedError explains why an inventory withdrawal was refused.
type WithdrawalBlockedError struct {
	Item      ItemID
	Requested uint64
	Held      uint64
	Needed    uint64
}

func (e *WithdrawalBlockedError) Error() string {
	return fmt.Sprintf("withdrawal of %d item %s blocked: held %d, active sale needs %d",
		e.Requested, e.Item, e.Held, e.Needed)
}

func (e *WithdrawalBlockedError) Unwrap() error { return ErrActiveSaleInventory }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a business-rule rejection, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrZeroQuantity) ||
		errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrDuplicateItem) ||
		errors.Is(err, ErrSaleNotActive) ||
		errors.Is(err, ErrSaleMustBeInactive) ||
		errors.Is(err, ErrZeroPrice) ||
		errors.Is(err, ErrZeroMaxSupply) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrEndTimeShortened) ||
		errors.Is(err, ErrExceedsMaxSupply) ||
		errors.Is(err, ErrExceedsMaxPerAddress) ||
		errors.Is(err, ErrInsufficientInventory) ||
		errors.Is(err, ErrInsufficientPayment) ||
		errors.Is(err, ErrUnexpectedNativeTender) ||
		errors.Is(err, ErrActiveSaleInventory) ||
		errors.Is(err, ErrCounterOverflow)
}

// IsNotFound returns true if the error indicates a missing sale.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSaleNotFound)
}

// IsUnauthorized returns true for authorization rejections. Reentrancy
// is a conflict, not a permissions failure, and is classified separately.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrNotAdmin)
}
