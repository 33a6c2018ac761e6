package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NodeType distinguishes the two kinds of fulfillment nodes.
// String values are serialized by downstream consumers; do not change them.
type NodeType string

const (
	NodeTypeStore NodeType = "STORE"
	NodeTypeDC    NodeType = "DC"
)

// FulfillmentMode is the channel through which a node can serve order lines.
// String values are serialized by downstream consumers; do not change them.
type FulfillmentMode string

const (
	ModeShipFromStore FulfillmentMode = "SHIP_FROM_STORE"
	ModeShipFromDC    FulfillmentMode = "SHIP_FROM_DC"
	ModeBOPIS         FulfillmentMode = "BOPIS"
	ModeCurbside      FulfillmentMode = "CURBSIDE"
)

// IsShipping reports whether the mode ends in a carrier delivery
// (as opposed to a customer pickup).
func (m FulfillmentMode) IsShipping() bool {
	return m == ModeShipFromStore || m == ModeShipFromDC
}

// IsPickup reports whether the mode ends with the customer collecting
// the order at the node.
func (m FulfillmentMode) IsPickup() bool {
	return m == ModeBOPIS || m == ModeCurbside
}

// Capability is a named physical ability of a node.
type Capability string

const (
	CapabilityShip     Capability = "ship"
	CapabilityBOPIS    Capability = "bopis"
	CapabilityCurbside Capability = "curbside"
)

// CostParams holds a node's per-unit cost parameters. All amounts are money
// values, kept exact with decimals so quote ranking never suffers float drift.
type CostParams struct {
	BaseShipCost decimal.Decimal // flat cost per shipment from this node
	PerKmRate    decimal.Decimal // linehaul cost per kilometer
	PerKgRate    decimal.Decimal // weight cost per kilogram
	HandlingCost decimal.Decimal // labor cost per unit picked
}

// Node is a store or distribution center in the fulfillment network.
// Created once during Prepare. Identity, location, capabilities, and cost
// parameters are immutable afterwards; capacity fields (BacklogUnits) mutate
// over time as orders are picked and shocks land, always through
// NetworkState accessors.
type Node struct {
	ID           string
	Type         NodeType
	Lat          float64
	Lon          float64
	Timezone     string
	Capabilities map[Capability]bool
	PicksPerHour float64
	BacklogUnits int
	Costs        CostParams

	// AccuracyScore in [0,1] models how trustworthy this node's inventory
	// ledger is. Feeds pick-failure probability and opportunity cost.
	AccuracyScore float64

	// SafetyStock is the default per-sku units this node protects from
	// online allocation to preserve walk-in demand.
	SafetyStock int
}

// Can reports whether the node has the named capability.
func (n *Node) Can(c Capability) bool {
	return n.Capabilities[c]
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%s %s backlog=%d picks/h=%.1f acc=%.2f)",
		n.ID, n.Type, n.BacklogUnits, n.PicksPerHour, n.AccuracyScore)
}
