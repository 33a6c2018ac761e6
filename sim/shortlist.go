package sim

import (
	"sort"
	"time"
)

// eligibleModes intersects a node's capabilities with the order's allowed
// modes: DCs ship from DC; stores with the ship capability ship from store;
// stores with bopis/curbside capabilities serve the respective pickup modes
// when the channel is enabled.
func eligibleModes(cfg *Config, node *Node, constraints OrderConstraints) []FulfillmentMode {
	var modes []FulfillmentMode
	switch node.Type {
	case NodeTypeDC:
		if constraints.Allows(ModeShipFromDC) {
			modes = append(modes, ModeShipFromDC)
		}
	case NodeTypeStore:
		if node.Can(CapabilityShip) && constraints.Allows(ModeShipFromStore) {
			modes = append(modes, ModeShipFromStore)
		}
		if cfg.Bopis.Enabled && node.Can(CapabilityBOPIS) && constraints.Allows(ModeBOPIS) {
			modes = append(modes, ModeBOPIS)
		}
		if cfg.Bopis.Enabled && cfg.Bopis.CurbsideEnabled && node.Can(CapabilityCurbside) && constraints.Allows(ModeCurbside) {
			modes = append(modes, ModeCurbside)
		}
	}
	return modes
}

// Shortlist returns the top-K candidate (node, mode) pairings able to serve
// one order line, ranked ascending by (distance, eta). Nodes without a
// ledger row for the sku, without an eligible mode, with insufficient
// ATP-within-window, or under an active outage are silently excluded —
// "cannot serve" is never an error.
func Shortlist(order *Order, line OrderLine, state *NetworkState, cfg *Config) []NodeCandidate {
	now := order.CreatedAt
	var candidates []NodeCandidate

	for _, nodeID := range state.NodeIDs() {
		node := state.Node(nodeID)
		if scenarioNodeOut(cfg, nodeID, now) {
			continue
		}

		summary := state.InventorySummary(nodeID, line.SKU, order.Constraints.PromiseBy)
		if summary == nil {
			continue
		}

		modes := eligibleModes(cfg, node, order.Constraints)
		if len(modes) == 0 {
			continue
		}

		atp := summary.ATP()
		if cfg.Routing.InboundWindowing {
			atp = summary.ATPWithinWindow()
		}
		if atp < line.Qty {
			continue
		}

		dist := Distance(node, order.Destination)
		backlog := state.NodeBacklog(nodeID)
		for _, mode := range modes {
			eta := ETAHours(cfg, node, order.Destination, mode, now, node.PicksPerHour, backlog)

			// Pickup promises are only made while the store will be open.
			if mode.IsPickup() && cfg.Bopis.RejectIfClosed {
				if hours := state.StoreHoursFor(nodeID); hours != nil {
					ready := now.Add(time.Duration(eta * float64(time.Hour)))
					if !hours.OpenAt(ready) {
						continue
					}
				}
			}

			candidates = append(candidates, NodeCandidate{
				NodeID:     nodeID,
				Mode:       mode,
				ATP:        atp,
				ETAHours:   eta,
				DistanceKm: dist,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].ETAHours < candidates[j].ETAHours
	})
	if len(candidates) > cfg.Routing.ShortlistK {
		candidates = candidates[:cfg.Routing.ShortlistK]
	}
	return candidates
}

// MeetsSLA reports whether every candidate in the combination completes at
// or before the order's promise deadline.
func MeetsSLA(nodeSet []NodeCandidate, order *Order) bool {
	for _, cand := range nodeSet {
		eta := order.CreatedAt.Add(time.Duration(cand.ETAHours * float64(time.Hour)))
		if eta.After(order.Constraints.PromiseBy) {
			return false
		}
	}
	return true
}

// NodeCombinations expands per-line candidate shortlists into full
// combinations, one candidate per line. When splitting is disallowed, only
// combinations where every line maps to the same node survive; otherwise
// the full cross product is generated and combinations touching more than
// maxNodes distinct nodes are discarded.
//
// Worst-case output is shortlistK^lines, both configuration-bounded, so the
// expansion stays small and predictable.
func NodeCombinations(perLine [][]NodeCandidate, allowSplit bool, maxNodes int) [][]NodeCandidate {
	if len(perLine) == 0 {
		return nil
	}
	for _, cands := range perLine {
		if len(cands) == 0 {
			return nil
		}
	}

	var out [][]NodeCandidate
	combo := make([]NodeCandidate, len(perLine))

	var expand func(lineIdx int)
	expand = func(lineIdx int) {
		if lineIdx == len(perLine) {
			distinct := distinctNodes(combo)
			if !allowSplit && distinct > 1 {
				return
			}
			if allowSplit && maxNodes > 0 && distinct > maxNodes {
				return
			}
			picked := make([]NodeCandidate, len(combo))
			copy(picked, combo)
			out = append(out, picked)
			return
		}
		for _, cand := range perLine[lineIdx] {
			combo[lineIdx] = cand
			expand(lineIdx + 1)
		}
	}
	expand(0)
	return out
}

func distinctNodes(combo []NodeCandidate) int {
	seen := make(map[string]bool, len(combo))
	for _, c := range combo {
		seen[c.NodeID] = true
	}
	return len(seen)
}
