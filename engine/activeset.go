/*
activeset.go - Ordered set of currently active items

PURPOSE:
  The engine enumerates active sales constantly (queries, pagination,
  sweeping), so membership, insert and removal must all be O(1). The
  structure is the classic dense-list + position-map pair: a slice holding
  the members in insertion order (removal swaps with the last element) and
  a map from member to its slice position.

INVARIANTS:
  - An item appears in the list at most once
  - positions[items[i]] == i for every i
  - The set equals exactly the items whose SaleConfig.Active is true
    (maintained by registry.go; the set itself is a dumb container)

SEE ALSO:
  - registry.go: The only writer of this structure
  - queries.go:  Enumeration and pagination over it
*/
package engine

// ActiveSet is an ordered set over item identifiers with O(1) membership,
// O(1) insert, and O(1) remove-by-swap-with-last.
//
// Not safe for concurrent use; the engine guards it with its own lock.
type ActiveSet struct {
	items     []ItemID
	positions map[ItemID]int
}

func NewActiveSet() *ActiveSet {
	return &ActiveSet{positions: make(map[ItemID]int)}
}

// Contains reports membership.
func (s *ActiveSet) Contains(item ItemID) bool {
	_, ok := s.positions[item]
	return ok
}

// Add inserts the item if absent. Returns true if it was inserted.
func (s *ActiveSet) Add(item ItemID) bool {
	if s.Contains(item) {
		return false
	}
	s.positions[item] = len(s.items)
	s.items = append(s.items, item)
	return true
}

// Remove deletes the item if present by swapping it with the last element.
// Returns true if it was removed. Order of the remaining elements is not
// preserved across removals.
func (s *ActiveSet) Remove(item ItemID) bool {
	pos, ok := s.positions[item]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	moved := s.items[last]
	s.items[pos] = moved
	s.positions[moved] = pos
	s.items = s.items[:last]
	delete(s.positions, item)
	return true
}

// Len returns the number of members.
func (s *ActiveSet) Len() int { return len(s.items) }

// At returns the member at position i. Panics if out of range, matching
// slice semantics; callers bound i with Len.
func (s *ActiveSet) At(i int) ItemID { return s.items[i] }

// Items returns a copy of the members in current order.
func (s *ActiveSet) Items() []ItemID {
	out := make([]ItemID, len(s.items))
	copy(out, s.items)
	return out
}
