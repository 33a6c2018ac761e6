package sim

import (
	"math/rand"
	"time"
)

// InventorySnapshot is the per-(node, sku) ledger view surfaced to
// downstream consumers on each EmitSupply tick. OnHand carries the observed
// (possibly noisy) quantity, not ground truth.
type InventorySnapshot struct {
	AsOf        time.Time
	NodeID      string
	SKU         string
	OnHand      int
	Allocated   int
	SafetyStock int
}

// ObservedOnHand satisfies the OnHandCarrier capability used by Perturb.
func (s *InventorySnapshot) ObservedOnHand() int { return s.OnHand }

// SetObservedOnHand overwrites the snapshot quantity (noise injection only).
func (s *InventorySnapshot) SetObservedOnHand(v int) { s.OnHand = v }

// EventTime satisfies the EventTimed capability used by Perturb.
func (s *InventorySnapshot) EventTime() time.Time { return s.AsOf }

// SetEventTime overwrites the snapshot timestamp (noise injection only).
func (s *InventorySnapshot) SetEventTime(t time.Time) { s.AsOf = t }

// NodeCapacity is the per-node capacity view surfaced on each tick.
type NodeCapacity struct {
	AsOf         time.Time
	NodeID       string
	PicksPerHour float64
	BacklogUnits int
}

// SupplyBatch is the full output of one EmitSupply tick.
type SupplyBatch struct {
	AsOf             time.Time
	Snapshots        []*InventorySnapshot
	Inbound          []InboundShipment
	Capacity         []NodeCapacity
	Hours            []StoreHours
	MaturedInbound   int
	ExpiredReleases  int
	BacklogShockHits int
}

// emitSupply applies matured inbound shipments, sweeps expired reservations,
// applies backlog shocks, and surfaces the current network state for
// downstream consumers. Called once per snapshot tick; supplyRNG is the
// SubsystemSupply stream, advanced deterministically per tick.
func emitSupply(now time.Time, state *NetworkState, cfg *Config, supplyRNG *rand.Rand) *SupplyBatch {
	batch := &SupplyBatch{AsOf: now}

	batch.MaturedInbound = len(state.MatureInbound(now))
	batch.ExpiredReleases = state.ReleaseExpired(now)

	for _, nodeID := range state.NodeIDs() {
		node := state.Node(nodeID)

		// Backlog shock: a burst of walk-in work lands on the node.
		if node.Type == NodeTypeStore && supplyRNG.Float64() < cfg.Capacity.BacklogShockProb {
			shock := 1 + supplyRNG.Intn(int(cfg.Capacity.StorePickRateMean)+1)
			state.AddBacklog(nodeID, shock)
			batch.BacklogShockHits++
		}

		batch.Capacity = append(batch.Capacity, NodeCapacity{
			AsOf:         now,
			NodeID:       nodeID,
			PicksPerHour: node.PicksPerHour,
			BacklogUnits: state.NodeBacklog(nodeID),
		})
		if hours := state.StoreHoursFor(nodeID); hours != nil {
			batch.Hours = append(batch.Hours, *hours)
		}
	}

	for _, key := range state.InventoryKeys() {
		rec, ok := state.InventoryRecordCopy(key.NodeID, key.SKU)
		if !ok {
			continue
		}
		batch.Snapshots = append(batch.Snapshots, &InventorySnapshot{
			AsOf:        now,
			NodeID:      rec.NodeID,
			SKU:         rec.SKU,
			OnHand:      rec.ObservedOnHand,
			Allocated:   rec.Allocated,
			SafetyStock: rec.SafetyStock,
		})
	}

	batch.Inbound = state.PendingInbound()
	return batch
}
