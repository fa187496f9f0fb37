/*
ledger.go - Versioned per-buyer quota ledger

PURPOSE:
  Tracks how much each buyer has purchased under the current sale version of
  each item. The key includes the sale version, so reconfiguring a sale
  implicitly resets every buyer's quota: validation simply consults the new
  version's entries and the old ones become permanently inert. No enumeration
  or clearing of prior buyers is ever needed.

INVARIANTS:
  - Entries are created lazily on first purchase and never deleted
  - Counters only ever increase, with overflow-checked arithmetic
  - record() runs only after admission has accepted the same
    (item, quantity, buyer) in the same request

SEE ALSO:
  - validator.go: Reads these counters during admission
  - batch.go:     Calls record() while committing a staged plan
*/
package engine

// quotaKey is the composite ledger key. A native tuple key in a map replaces
// the hashed storage key the structure is usually flattened into.
type quotaKey struct {
	Item    ItemID
	Version uint64
	Buyer   AccountID
}

type quotaLedger map[quotaKey]uint64

// bought returns the buyer's purchased quantity under the item's current
// sale version. Caller holds at least the read lock.
func (e *Engine) bought(cfg *SaleConfig, buyer AccountID) uint64 {
	return e.quotas[quotaKey{Item: cfg.Item, Version: cfg.SaleVersion, Buyer: buyer}]
}

// record increments the supply counter and the buyer's quota counter with
// checked arithmetic. Caller holds the write lock and has already passed
// admission for this exact (item, quantity, buyer); no rollback primitive
// exists because the whole request aborts atomically on any earlier failure.
func (e *Engine) record(cfg *SaleConfig, buyer AccountID, quantity uint64) error {
	sold, err := addU64(cfg.TotalSold, quantity)
	if err != nil {
		return err
	}
	k := quotaKey{Item: cfg.Item, Version: cfg.SaleVersion, Buyer: buyer}
	total, err := addU64(e.quotas[k], quantity)
	if err != nil {
		return err
	}
	cfg.TotalSold = sold
	e.quotas[k] = total
	return nil
}

// QuotaEntries returns a copy of all quota counters, current and superseded.
// Used by persistence and diagnostics.
func (e *Engine) QuotaEntries() []QuotaEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]QuotaEntry, 0, len(e.quotas))
	for k, v := range e.quotas {
		out = append(out, QuotaEntry{Item: k.Item, Version: k.Version, Buyer: k.Buyer, Bought: v})
	}
	return out
}
