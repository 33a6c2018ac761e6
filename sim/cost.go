package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// shipSpeedKmh is the effective linehaul speed for carrier modes.
	shipSpeedKmh = 60.0

	// pickupSpeedFactor discounts the effective speed for BOPIS/curbside
	// to model the customer's own drive time.
	pickupSpeedFactor = 0.5

	// moneyScale is the decimal places every cost term is rounded to.
	moneyScale = 4
)

// money converts a computed float term to an exact decimal amount.
func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(moneyScale)
}

// ETAHours estimates the hours from now until an order line is in the
// customer's hands when served by the node in the given mode: travel time
// (distance over effective speed), queueing delay (backlog over pick rate,
// scaled by seasonality), and a fixed staging buffer for pickup modes.
// Active capacity-side scenario effects multiply the result.
func ETAHours(cfg *Config, node *Node, dest OrderDestination, mode FulfillmentMode, now time.Time, picksPerHour float64, backlog int) float64 {
	speed := shipSpeedKmh
	if mode.IsPickup() {
		speed = shipSpeedKmh * pickupSpeedFactor
	}
	travel := Distance(node, dest) / speed

	queue := 0.0
	if picksPerHour > 0 {
		queue = float64(backlog) / picksPerHour * seasonalityFactor(cfg, now)
	}

	staging := 0.0
	if mode.IsPickup() {
		staging = float64(cfg.Bopis.PromiseBufferMinutes) / 60.0
	}

	return (travel + queue + staging) * scenarioETAMultiplier(cfg, node.ID, now)
}

// ShippingCost prices the linehaul for one node's share of an order:
// base cost + per-km rate * distance + per-kg rate * total weight.
func ShippingCost(node *Node, lines []OrderLine, distanceKm float64) decimal.Decimal {
	weight := 0.0
	for _, l := range lines {
		weight += l.TotalWeightKg()
	}
	cost := node.Costs.BaseShipCost.
		Add(node.Costs.PerKmRate.Mul(money(distanceKm))).
		Add(node.Costs.PerKgRate.Mul(money(weight)))
	return cost.Round(moneyScale)
}

// HandlingCost prices the pick labor for one node's share of an order.
func HandlingCost(node *Node, lines []OrderLine) decimal.Decimal {
	units := 0
	for _, l := range lines {
		units += l.Qty
	}
	return node.Costs.HandlingCost.Mul(decimal.NewFromInt(int64(units))).Round(moneyScale)
}

// SLARiskPenalty prices the risk of missing the promise deadline:
// lambda * max(0, hours late). Zero when the ETA lands on time.
func SLARiskPenalty(eta, promiseBy time.Time, lambda float64) decimal.Decimal {
	if !eta.After(promiseBy) {
		return decimal.Zero
	}
	hoursLate := eta.Sub(promiseBy).Hours()
	return money(lambda * hoursLate)
}

// OpportunityCost prices the risk of stranding future walk-in demand at the
// node. Zero when post-allocation stock stays at or above safety stock;
// otherwise grows with the shortfall ratio and with the node's inventory
// inaccuracy, scaled by the split-penalty constant.
func OpportunityCost(node *Node, postAllocationStock int, cfg *Config) decimal.Decimal {
	if postAllocationStock >= node.SafetyStock {
		return decimal.Zero
	}
	denom := node.SafetyStock
	if denom < 1 {
		denom = 1
	}
	shortfallRatio := float64(node.SafetyStock-postAllocationStock) / float64(denom)
	return money(cfg.Routing.SplitPenalty * shortfallRatio * (1 + (1 - node.AccuracyScore)))
}

// TotalCost prices a full combination: one candidate per order line, in line
// order. Groups the assignments by node, sums shipping + handling + SLA risk
// + opportunity cost per node (scenario cost effects multiply each node's
// subtotal), and adds one flat split-penalty term if more than one distinct
// node is used.
//
// Returns a shape-mismatch error when the candidate set and the order lines
// are not aligned 1:1 — a programmer error, never retried.
func TotalCost(nodeSet []NodeCandidate, order *Order, state *NetworkState, cfg *Config) ([]CostBreakdown, decimal.Decimal, error) {
	if len(nodeSet) != len(order.Lines) {
		return nil, decimal.Zero, fmt.Errorf("candidate set size %d does not match order line count %d", len(nodeSet), len(order.Lines))
	}

	type nodeGroup struct {
		lines    []OrderLine
		maxETA   float64
		distance float64
	}
	groups := make(map[string]*nodeGroup)
	var groupOrder []string
	for i, cand := range nodeSet {
		g, ok := groups[cand.NodeID]
		if !ok {
			g = &nodeGroup{distance: cand.DistanceKm}
			groups[cand.NodeID] = g
			groupOrder = append(groupOrder, cand.NodeID)
		}
		g.lines = append(g.lines, order.Lines[i])
		if cand.ETAHours > g.maxETA {
			g.maxETA = cand.ETAHours
		}
	}

	breakdown := make([]CostBreakdown, 0, len(groups))
	total := decimal.Zero
	for _, nodeID := range groupOrder {
		g := groups[nodeID]
		node := state.Node(nodeID)
		if node == nil {
			return nil, decimal.Zero, fmt.Errorf("candidate references unknown node %q", nodeID)
		}

		shipping := ShippingCost(node, g.lines, g.distance)
		handling := HandlingCost(node, g.lines)
		eta := order.CreatedAt.Add(time.Duration(g.maxETA * float64(time.Hour)))
		slaRisk := SLARiskPenalty(eta, order.Constraints.PromiseBy, cfg.Routing.SLAPenaltyLambda)

		opportunity := decimal.Zero
		for _, line := range g.lines {
			summary := state.InventorySummary(nodeID, line.SKU, order.Constraints.PromiseBy)
			if summary == nil {
				continue
			}
			post := summary.OnHand - summary.Allocated - line.Qty
			opportunity = opportunity.Add(OpportunityCost(node, post, cfg))
		}

		subtotal := shipping.Add(handling).Add(slaRisk).Add(opportunity)
		mult := scenarioCostMultiplier(cfg, nodeID, order.CreatedAt)
		if mult != 1.0 {
			subtotal = subtotal.Mul(money(mult)).Round(moneyScale)
		}

		breakdown = append(breakdown, CostBreakdown{
			NodeID:      nodeID,
			Shipping:    shipping,
			Handling:    handling,
			SLARisk:     slaRisk,
			Opportunity: opportunity,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}

	if len(groups) > 1 {
		total = total.Add(money(cfg.Routing.SplitPenalty))
	}
	return breakdown, total.Round(moneyScale), nil
}
