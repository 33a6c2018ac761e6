package sim

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// maxPickJitterHours bounds the random spread added to pick-ready times.
	maxPickJitterHours = 0.25

	shipTransitDelay   = 2 * 24 * time.Hour // SHIPPED -> DELIVERED
	shipStagingDelay   = time.Hour          // PICK_CONFIRMED -> SHIPPED
	pickupStagingDelay = 30 * time.Minute   // PICK_CONFIRMED -> READY_FOR_PICKUP
	pickupDwellDelay   = 2 * time.Hour      // READY_FOR_PICKUP -> PICKED_UP
)

// RealizeAllocation advances a RESERVED allocation through its physical
// fulfillment timeline, per selection:
//
//   - compute a pick-ready time from the node's pick rate plus jitter;
//   - draw pick failure with probability pick_fail_rate * (1 - accuracy);
//     on failure emit PICK_FAILED and release the hold (allocated only —
//     the units never left the shelf);
//   - on success emit PICK_CONFIRMED and commit the consumption (on-hand
//     and allocated both drop — the Phase-2 hold was a hold, not a sale),
//     then emit the mode's downstream chain: SHIPPED/DELIVERED for carrier
//     modes, READY_FOR_PICKUP/PICKED_UP for pickup modes.
//
// Pick failure is the designed compensation path, not an error. The returned
// events are merged chronologically across selections; timestamps within a
// selection's chain are non-decreasing by construction.
func RealizeAllocation(allocationID string, now time.Time, state *NetworkState, cfg *Config, key SimulationKey) ([]*FulfillmentEvent, error) {
	alloc, err := state.ClaimRealize(allocationID, now)
	if err != nil {
		return nil, fmt.Errorf("realize: %w", err)
	}

	timeline := &EventTimeline{}
	heap.Init(timeline)

	for _, sel := range alloc.Selections {
		node := state.Node(sel.NodeID)
		if node == nil {
			return nil, fmt.Errorf("realize %s: selection references unknown node %q", allocationID, sel.NodeID)
		}
		rng := DerivedRand(key, SubsystemRealize, allocationID+"/"+sel.NodeID)

		skus := make([]string, 0, len(sel.Lines))
		for _, line := range sel.Lines {
			skus = append(skus, line.SKU)
		}
		emit := func(t FulfillmentEventType, at time.Time) {
			heap.Push(timeline, &FulfillmentEvent{
				AllocationID: alloc.ID,
				OrderID:      alloc.OrderID,
				NodeID:       sel.NodeID,
				Mode:         sel.Mode,
				SKUs:         skus,
				Type:         t,
				At:           at,
			})
		}

		pickHours := 0.0
		if node.PicksPerHour > 0 {
			pickHours = float64(sel.Units()) / node.PicksPerHour
		}
		jitter := rng.Float64() * maxPickJitterHours
		pickReady := alloc.ReservedAt.Add(time.Duration((pickHours + jitter) * float64(time.Hour)))

		failProb := cfg.Noise.PickFailRate * (1 - node.AccuracyScore)
		if rng.Float64() < failProb {
			emit(EventPickFailed, pickReady)
			for _, line := range sel.Lines {
				state.UpdateInventory(sel.NodeID, line.SKU, 0, -line.Qty)
			}
			state.AddBacklog(sel.NodeID, -sel.Units())
			logrus.Infof("realize %s: pick failed at %s, hold released", alloc.ID, sel.NodeID)
			continue
		}

		emit(EventPickConfirmed, pickReady)
		for _, line := range sel.Lines {
			state.UpdateInventory(sel.NodeID, line.SKU, -line.Qty, -line.Qty)
		}
		state.AddBacklog(sel.NodeID, -sel.Units())

		if sel.Mode.IsShipping() {
			shipped := pickReady.Add(shipStagingDelay)
			emit(EventShipped, shipped)
			emit(EventDelivered, shipped.Add(shipTransitDelay))
		} else {
			ready := pickReady.Add(pickupStagingDelay)
			emit(EventReadyForPickup, ready)
			emit(EventPickedUp, ready.Add(pickupDwellDelay))
		}
	}

	return timeline.Drain(), nil
}
