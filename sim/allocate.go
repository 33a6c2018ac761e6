package sim

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AllocateOrder attempts to reserve inventory for the requested selection
// set. Reservation failure is ordinary contention, modeled as data, never an
// error: when rerouting is enabled the order is re-quoted and every
// subsequent ranked candidate's selection is attempted in turn until one
// commits or all are exhausted. The resulting Allocation carries status
// RESERVED or FAILED; successful allocations are registered with the state
// for later realization.
func AllocateOrder(order *Order, selections []AllocationSelection, now time.Time, state *NetworkState, cfg *Config) (*AllocationBundle, error) {
	bundle := &AllocationBundle{}

	committed := selections
	bundle.Attempts = 1
	ok := TryReserve(selections, state)

	if !ok && cfg.Noise.RerouteEnabled {
		// The shortlist behind the chosen plan may be stale or contended;
		// fall back through the current ranking.
		quote, err := QuoteOrder(order, state, cfg)
		if err == nil {
			for i := range quote.Candidates {
				bundle.Attempts++
				if TryReserve(quote.Candidates[i].Selections, state) {
					committed = quote.Candidates[i].Selections
					bundle.Rerouted = true
					ok = true
					break
				}
			}
		} else {
			logrus.Debugf("allocate %s: fallback re-quote failed: %v", order.ID, err)
		}
	}

	allocation := Allocation{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		Selections: committed,
		ReservedAt: now,
		ExpiresAt:  now.Add(time.Duration(cfg.Routing.ReservationTTLHours * float64(time.Hour))),
		Status:     AllocationFailed,
	}
	if ok {
		allocation.Status = AllocationReserved
		for _, sel := range committed {
			state.AddBacklog(sel.NodeID, sel.Units())
		}
		state.TrackAllocation(&allocation)
		logrus.Debugf("allocate %s: reserved %s across %d selection(s), attempts=%d",
			order.ID, allocation.ID, len(committed), bundle.Attempts)
	} else {
		logrus.Infof("allocate %s: all candidates exhausted after %d attempt(s)", order.ID, bundle.Attempts)
	}

	bundle.Allocation = allocation
	return bundle, nil
}
