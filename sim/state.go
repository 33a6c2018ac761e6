package sim

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// invKey addresses one inventory ledger row. The flat keying (instead of
// nested maps) gives every row its own lock and a total order for deadlock-
// free multi-row acquisition.
type invKey struct {
	NodeID string
	SKU    string
}

func (k invKey) less(o invKey) bool {
	if k.NodeID != o.NodeID {
		return k.NodeID < o.NodeID
	}
	return k.SKU < o.SKU
}

// inventorySlot pairs a ledger row with its lock.
type inventorySlot struct {
	mu  sync.Mutex
	rec InventoryRecord
}

// NetworkState is the single mutable store of truth: node registry,
// per-(node,sku) inventory ledgers, inbound shipment queue, store-hours
// calendars, and the table of in-flight allocations. All other components
// read and mutate exclusively through its accessor methods.
//
// The node registry and inventory key set are fixed after Prepare; only
// row contents, backlogs, the inbound queue, and the allocation table
// mutate afterwards.
type NetworkState struct {
	cfg *Config

	nodes     map[string]*Node
	nodeOrder []string // deterministic iteration order (DCs first, then stores)
	backlogMu sync.Mutex

	inv map[invKey]*inventorySlot

	inboundMu sync.Mutex
	inbound   []InboundShipment

	hours map[string]*StoreHours

	allocMu     sync.Mutex
	allocations map[string]*Allocation

	obsMu  sync.Mutex
	obsRNG *rand.Rand
}

// NewNetworkState creates an empty state. obsRNG drives observed on-hand
// noise; pass the SubsystemObservation stream.
func NewNetworkState(cfg *Config, obsRNG *rand.Rand) *NetworkState {
	return &NetworkState{
		cfg:         cfg,
		nodes:       make(map[string]*Node),
		inv:         make(map[invKey]*inventorySlot),
		hours:       make(map[string]*StoreHours),
		allocations: make(map[string]*Allocation),
		obsRNG:      obsRNG,
	}
}

// AddNode registers a node. Prepare-time only; not safe once hooks run.
func (st *NetworkState) AddNode(n *Node) {
	if _, exists := st.nodes[n.ID]; exists {
		panic(fmt.Sprintf("AddNode: duplicate node id %q", n.ID))
	}
	st.nodes[n.ID] = n
	st.nodeOrder = append(st.nodeOrder, n.ID)
}

// Node returns the node by id, or nil.
func (st *NetworkState) Node(id string) *Node {
	return st.nodes[id]
}

// NodeIDs returns node ids in registration order.
func (st *NetworkState) NodeIDs() []string {
	out := make([]string, len(st.nodeOrder))
	copy(out, st.nodeOrder)
	return out
}

// SeedInventory creates the ledger row for (node, sku). Prepare-time only.
func (st *NetworkState) SeedInventory(nodeID, sku string, onHand, safetyStock int, lastCount time.Time) {
	key := invKey{nodeID, sku}
	if _, exists := st.inv[key]; exists {
		panic(fmt.Sprintf("SeedInventory: duplicate row %s/%s", nodeID, sku))
	}
	st.inv[key] = &inventorySlot{rec: InventoryRecord{
		NodeID:         nodeID,
		SKU:            sku,
		OnHandTrue:     onHand,
		SafetyStock:    safetyStock,
		LastCycleCount: lastCount,
		ObservedOnHand: onHand,
	}}
}

// InventorySummary returns a read-only projection for (node, sku), including
// the inbound shipments whose ETA window closes at or before promiseBy when
// inbound windowing is enabled. Returns nil when the node has no ledger row
// for the sku — callers treat that as "cannot serve", never an error.
func (st *NetworkState) InventorySummary(nodeID, sku string, promiseBy time.Time) *NodeInventoryState {
	slot, ok := st.inv[invKey{nodeID, sku}]
	if !ok {
		return nil
	}
	slot.mu.Lock()
	summary := &NodeInventoryState{
		NodeID:      nodeID,
		SKU:         sku,
		OnHand:      slot.rec.OnHandTrue,
		Allocated:   slot.rec.Allocated,
		SafetyStock: slot.rec.SafetyStock,
	}
	slot.mu.Unlock()

	if st.cfg.Routing.InboundWindowing {
		st.inboundMu.Lock()
		for _, in := range st.inbound {
			if in.NodeID == nodeID && in.SKU == sku && !in.ETAEnd.After(promiseBy) {
				summary.Inbound = append(summary.Inbound, InboundWindow{
					Qty:      in.Qty,
					ETAStart: in.ETAStart,
					ETAEnd:   in.ETAEnd,
				})
			}
		}
		st.inboundMu.Unlock()
	}
	return summary
}

// UpdateInventory applies deltas to one ledger row, clamping both fields at
// zero, and recomputes the observed on-hand. This and the reservation commit
// in TryReserve are the only inventory mutators.
func (st *NetworkState) UpdateInventory(nodeID, sku string, deltaOnHand, deltaAllocated int) {
	slot, ok := st.inv[invKey{nodeID, sku}]
	if !ok {
		logrus.Warnf("UpdateInventory: no ledger row for %s/%s, delta dropped", nodeID, sku)
		return
	}
	slot.mu.Lock()
	st.applyDeltaLocked(slot, deltaOnHand, deltaAllocated)
	slot.mu.Unlock()
}

// applyDeltaLocked mutates a row the caller has locked.
func (st *NetworkState) applyDeltaLocked(slot *inventorySlot, deltaOnHand, deltaAllocated int) {
	slot.rec.OnHandTrue += deltaOnHand
	if slot.rec.OnHandTrue < 0 {
		slot.rec.OnHandTrue = 0
	}
	slot.rec.Allocated += deltaAllocated
	if slot.rec.Allocated < 0 {
		slot.rec.Allocated = 0
	}
	slot.rec.ObservedOnHand = st.observe(slot.rec.NodeID, slot.rec.OnHandTrue)
}

// observe returns the on-hand quantity as a downstream system would see it:
// exact for perfectly accurate nodes, off by one unit with probability
// (1 - accuracy) otherwise.
func (st *NetworkState) observe(nodeID string, onHand int) int {
	node := st.nodes[nodeID]
	if node == nil {
		return onHand
	}
	st.obsMu.Lock()
	defer st.obsMu.Unlock()
	if st.obsRNG.Float64() >= 1-node.AccuracyScore {
		return onHand
	}
	observed := onHand + 1
	if st.obsRNG.Float64() < 0.5 {
		observed = onHand - 1
	}
	if observed < 0 {
		observed = 0
	}
	return observed
}

// InventoryRecordCopy returns a copy of the ledger row, or false when the
// row does not exist. Test and snapshot helper; never hands out the live row.
func (st *NetworkState) InventoryRecordCopy(nodeID, sku string) (InventoryRecord, bool) {
	slot, ok := st.inv[invKey{nodeID, sku}]
	if !ok {
		return InventoryRecord{}, false
	}
	slot.mu.Lock()
	rec := slot.rec
	slot.mu.Unlock()
	return rec, true
}

// InventoryKeys returns every (node, sku) key in sorted order.
func (st *NetworkState) InventoryKeys() []invKey {
	keys := make([]invKey, 0, len(st.inv))
	for k := range st.inv {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// AddInbound queues a replenishment shipment.
func (st *NetworkState) AddInbound(s InboundShipment) {
	st.inboundMu.Lock()
	st.inbound = append(st.inbound, s)
	st.inboundMu.Unlock()
}

// PendingInbound returns a copy of the inbound queue.
func (st *NetworkState) PendingInbound() []InboundShipment {
	st.inboundMu.Lock()
	out := make([]InboundShipment, len(st.inbound))
	copy(out, st.inbound)
	st.inboundMu.Unlock()
	return out
}

// MatureInbound consumes every shipment whose ETA window has closed at or
// before now, folding its quantity into the destination's on-hand. Returns
// the consumed shipments.
func (st *NetworkState) MatureInbound(now time.Time) []InboundShipment {
	st.inboundMu.Lock()
	var matured []InboundShipment
	remaining := st.inbound[:0]
	for _, in := range st.inbound {
		if !in.ETAEnd.After(now) {
			matured = append(matured, in)
		} else {
			remaining = append(remaining, in)
		}
	}
	st.inbound = remaining
	st.inboundMu.Unlock()

	for _, in := range matured {
		st.UpdateInventory(in.NodeID, in.SKU, in.Qty, 0)
		logrus.Debugf("inbound matured: %d x %s -> %s", in.Qty, in.SKU, in.NodeID)
	}
	return matured
}

// SetStoreHours registers a node's opening calendar. Prepare-time only.
func (st *NetworkState) SetStoreHours(h *StoreHours) {
	st.hours[h.NodeID] = h
}

// StoreHoursFor returns the node's calendar, or nil (DCs have none).
func (st *NetworkState) StoreHoursFor(nodeID string) *StoreHours {
	return st.hours[nodeID]
}

// NodeBacklog reads a node's current backlog under the backlog lock.
func (st *NetworkState) NodeBacklog(nodeID string) int {
	st.backlogMu.Lock()
	defer st.backlogMu.Unlock()
	if n := st.nodes[nodeID]; n != nil {
		return n.BacklogUnits
	}
	return 0
}

// AddBacklog adjusts a node's backlog, clamping at zero.
func (st *NetworkState) AddBacklog(nodeID string, delta int) {
	st.backlogMu.Lock()
	defer st.backlogMu.Unlock()
	n := st.nodes[nodeID]
	if n == nil {
		return
	}
	n.BacklogUnits += delta
	if n.BacklogUnits < 0 {
		n.BacklogUnits = 0
	}
}

// TrackAllocation records an in-flight allocation for later lookup by
// Realize and the expiry sweep.
func (st *NetworkState) TrackAllocation(a *Allocation) {
	st.allocMu.Lock()
	st.allocations[a.ID] = a
	st.allocMu.Unlock()
}

// LookupAllocation returns a copy of the tracked allocation.
func (st *NetworkState) LookupAllocation(id string) (Allocation, bool) {
	st.allocMu.Lock()
	defer st.allocMu.Unlock()
	a, ok := st.allocations[id]
	if !ok {
		return Allocation{}, false
	}
	return *a, true
}

// ClaimRealize atomically marks a RESERVED allocation as realized and
// returns a copy for processing. Fails if the allocation is unknown, was
// never reserved, already realized, or released by the expiry sweep. The
// claim guarantees Realize and the sweep never both release the same hold.
func (st *NetworkState) ClaimRealize(id string, now time.Time) (Allocation, error) {
	st.allocMu.Lock()
	defer st.allocMu.Unlock()
	a, ok := st.allocations[id]
	if !ok {
		return Allocation{}, fmt.Errorf("unknown allocation %q", id)
	}
	if a.Status != AllocationReserved {
		return Allocation{}, fmt.Errorf("allocation %q is %s, not %s", id, a.Status, AllocationReserved)
	}
	if a.ReleasedAt != nil {
		return Allocation{}, fmt.Errorf("allocation %q expired at %s", id, a.ExpiresAt)
	}
	if a.RealizedAt != nil {
		return Allocation{}, fmt.Errorf("allocation %q already realized", id)
	}
	t := now
	a.RealizedAt = &t
	return *a, nil
}

// ReleaseExpired sweeps the allocation table, releasing the hold of every
// RESERVED allocation past its ExpiresAt that was never realized. Returns
// the number of allocations released. Without this sweep, abandoned
// reservations would leak allocated units forever.
func (st *NetworkState) ReleaseExpired(now time.Time) int {
	st.allocMu.Lock()
	var expired []*Allocation
	ids := make([]string, 0, len(st.allocations))
	for id := range st.allocations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a := st.allocations[id]
		if a.Status == AllocationReserved && a.RealizedAt == nil && a.ReleasedAt == nil && a.ExpiresAt.Before(now) {
			t := now
			a.ReleasedAt = &t
			expired = append(expired, a)
		}
	}
	st.allocMu.Unlock()

	for _, a := range expired {
		for _, sel := range a.Selections {
			for _, line := range sel.Lines {
				st.UpdateInventory(sel.NodeID, line.SKU, 0, -line.Qty)
			}
			st.AddBacklog(sel.NodeID, -sel.Units())
		}
		logrus.Infof("released expired reservation %s (order %s)", a.ID, a.OrderID)
	}
	return len(expired)
}
