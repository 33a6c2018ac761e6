package sim

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// TryReserve is the correctness-critical primitive of the whole engine: an
// all-or-nothing check-then-commit over every (node, sku) row a selection
// set touches.
//
// Phase 1 verifies that every row holds sufficient free stock
// (on_hand_true - allocated - safety_stock) for its aggregated demand,
// failing with no mutation if any single row falls short. Phase 2, entered
// only when Phase 1 passed, raises `allocated` by the demanded quantity on
// every row.
//
// Both phases run while holding every touched row's lock, acquired in the
// rows' fixed global (sorted-key) order, so concurrent reservations over
// overlapping row sets serialize without deadlock and can never interleave
// between check and commit.
func TryReserve(selections []AllocationSelection, state *NetworkState) bool {
	// Aggregate demand per row: one selection set may touch a row through
	// several lines, and the feasibility check must see the sum.
	demand := make(map[invKey]int)
	for _, sel := range selections {
		for _, line := range sel.Lines {
			demand[invKey{sel.NodeID, line.SKU}] += line.Qty
		}
	}
	if len(demand) == 0 {
		return false
	}

	keys := make([]invKey, 0, len(demand))
	for k := range demand {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	slots := make([]*inventorySlot, 0, len(keys))
	for _, k := range keys {
		slot, ok := state.inv[k]
		if !ok {
			// A row vanished between shortlist and reservation means the
			// candidate was built from stale data; fail cleanly.
			logrus.Debugf("TryReserve: no ledger row for %s/%s", k.NodeID, k.SKU)
			return false
		}
		slots = append(slots, slot)
	}

	for _, slot := range slots {
		slot.mu.Lock()
	}
	defer func() {
		for i := len(slots) - 1; i >= 0; i-- {
			slots[i].mu.Unlock()
		}
	}()

	// Phase 1: feasibility scan, no mutation.
	for i, k := range keys {
		rec := &slots[i].rec
		free := rec.OnHandTrue - rec.Allocated - rec.SafetyStock
		if free < demand[k] {
			logrus.Debugf("TryReserve: %s/%s free=%d < demand=%d", k.NodeID, k.SKU, free, demand[k])
			return false
		}
	}

	// Phase 2: commit the hold on every row.
	for i, k := range keys {
		state.applyDeltaLocked(slots[i], 0, demand[k])
	}
	return true
}
