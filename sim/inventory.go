package sim

import "time"

// InventoryRecord is the per-(node, sku) inventory ledger row.
//
// Invariants (enforced by NetworkState, the sole mutator):
//   - OnHandTrue >= 0 and Allocated >= 0 at all times
//   - immediately after any successful reservation commit,
//     OnHandTrue - Allocated - SafetyStock >= 0
type InventoryRecord struct {
	NodeID         string
	SKU            string
	OnHandTrue     int
	Allocated      int
	SafetyStock    int
	LastCycleCount time.Time

	// ObservedOnHand is the possibly-noisy quantity a downstream system
	// would see; recomputed by NetworkState.UpdateInventory.
	ObservedOnHand int
}

// ATP returns the Available-To-Promise quantity with no inbound windowing:
// on-hand minus holds minus protected safety stock. May be negative.
func (r *InventoryRecord) ATP() int {
	return r.OnHandTrue - r.Allocated - r.SafetyStock
}

// InboundShipment is a scheduled replenishment heading to a node. It is
// consumed (removed from the inbound queue) once its ETA window closes, at
// which point its quantity folds into the destination's on-hand.
type InboundShipment struct {
	NodeID   string
	SKU      string
	Qty      int
	ETAStart time.Time
	ETAEnd   time.Time
}

// InboundWindow is the read-only projection of one qualifying inbound
// shipment inside an ATP-within-window computation.
type InboundWindow struct {
	Qty      int
	ETAStart time.Time
	ETAEnd   time.Time
}

// NodeInventoryState is a read-only projection of one ledger row plus the
// inbound shipments whose ETA window closes at or before the order's
// promise-by deadline. Not persisted; recomputed per query.
type NodeInventoryState struct {
	NodeID      string
	SKU         string
	OnHand      int
	Allocated   int
	SafetyStock int
	Inbound     []InboundWindow
}

// ATP returns on-hand minus holds minus safety stock.
func (s *NodeInventoryState) ATP() int {
	return s.OnHand - s.Allocated - s.SafetyStock
}

// ATPWithinWindow additionally counts inbound quantities that qualify
// within the projection's window.
func (s *NodeInventoryState) ATPWithinWindow() int {
	atp := s.ATP()
	for _, in := range s.Inbound {
		atp += in.Qty
	}
	return atp
}

// StoreHours is a node's weekly opening calendar. Minutes are measured from
// midnight in the node's own timezone. A zero-valued day (open == close)
// means closed all day.
type StoreHours struct {
	NodeID   string
	Timezone string
	// OpenMinutes/CloseMinutes indexed by time.Weekday (Sunday = 0).
	OpenMinutes  [7]int
	CloseMinutes [7]int
}

// OpenAt reports whether the store is open at the given instant, evaluated
// in the store's timezone. Falls back to UTC if the zone cannot be loaded.
func (h *StoreHours) OpenAt(t time.Time) bool {
	if loc, err := time.LoadLocation(h.Timezone); err == nil {
		t = t.In(loc)
	}
	wd := int(t.Weekday())
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= h.OpenMinutes[wd] && minutes < h.CloseMinutes[wd]
}
