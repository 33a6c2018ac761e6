package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Region box the synthetic network is placed in (continental US-ish).
const (
	regionCenterLat = 39.5
	regionCenterLon = -98.35
	regionSpreadLat = 6.0
	regionSpreadLon = 14.0
)

var regionTimezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
}

// SKUID formats the catalog sku for an index (1-based).
func SKUID(i int) string {
	return fmt.Sprintf("SKU-%05d", i)
}

// BuildNetwork synthesizes the fulfillment network from configuration:
// DCs and stores with Normal-drawn pick rates and inventory-accuracy
// scores, seeded per-(node,sku) ledgers, an inbound replenishment schedule,
// and store-hours calendars. All draws flow from the SubsystemNetwork
// streams, so a given (config, seed) pair always yields the same network.
func BuildNetwork(cfg *Config, rng *PartitionedRNG) *NetworkState {
	state := NewNetworkState(cfg, rng.ForSubsystem(SubsystemObservation))
	netRNG := rng.ForSubsystem(SubsystemNetwork)

	pickRateDist := distuv.Normal{
		Mu:    cfg.Capacity.StorePickRateMean,
		Sigma: cfg.Capacity.StorePickRateStd,
		Src:   xrand.NewSource(uint64(DerivedSeed(rng.Key(), SubsystemNetwork, "pick_rate"))),
	}
	accuracyDist := distuv.Normal{
		Mu:    cfg.Network.AccuracyMean,
		Sigma: cfg.Network.AccuracyStd,
		Src:   xrand.NewSource(uint64(DerivedSeed(rng.Key(), SubsystemNetwork, "accuracy"))),
	}

	for i := 0; i < cfg.Network.DCCount; i++ {
		node := &Node{
			ID:       fmt.Sprintf("dc_%03d", i),
			Type:     NodeTypeDC,
			Lat:      regionCenterLat + (netRNG.Float64()*2-1)*regionSpreadLat,
			Lon:      regionCenterLon + (netRNG.Float64()*2-1)*regionSpreadLon,
			Timezone: regionTimezones[netRNG.Intn(len(regionTimezones))],
			Capabilities: map[Capability]bool{
				CapabilityShip: true,
			},
			PicksPerHour: cfg.Capacity.DCPickRate,
			Costs: CostParams{
				BaseShipCost: decimal.NewFromFloat(cfg.Cost.BaseShipCostDC),
				PerKmRate:    decimal.NewFromFloat(cfg.Cost.PerKmRate),
				PerKgRate:    decimal.NewFromFloat(cfg.Cost.PerKgRate),
				HandlingCost: decimal.NewFromFloat(cfg.Cost.HandlingCostDC),
			},
			AccuracyScore: clamp01(accuracyDist.Rand()),
			SafetyStock:   0, // DCs carry no walk-in demand to protect
		}
		state.AddNode(node)
		seedNodeInventory(state, node, cfg, netRNG, cfg.Network.DCStockMin, cfg.Network.DCStockMax)
	}

	for i := 0; i < cfg.Network.StoreCount; i++ {
		caps := map[Capability]bool{}
		if netRNG.Float64() < 0.8 {
			caps[CapabilityShip] = true
		}
		if netRNG.Float64() < 0.9 {
			caps[CapabilityBOPIS] = true
			if netRNG.Float64() < 0.6 {
				caps[CapabilityCurbside] = true
			}
		}

		pickRate := pickRateDist.Rand()
		if pickRate < 1 {
			pickRate = 1
		}
		node := &Node{
			ID:           fmt.Sprintf("store_%04d", i),
			Type:         NodeTypeStore,
			Lat:          regionCenterLat + (netRNG.Float64()*2-1)*regionSpreadLat,
			Lon:          regionCenterLon + (netRNG.Float64()*2-1)*regionSpreadLon,
			Timezone:     regionTimezones[netRNG.Intn(len(regionTimezones))],
			Capabilities: caps,
			PicksPerHour: pickRate,
			Costs: CostParams{
				BaseShipCost: decimal.NewFromFloat(cfg.Cost.BaseShipCostStore),
				PerKmRate:    decimal.NewFromFloat(cfg.Cost.PerKmRate),
				PerKgRate:    decimal.NewFromFloat(cfg.Cost.PerKgRate),
				HandlingCost: decimal.NewFromFloat(cfg.Cost.HandlingCostStore),
			},
			AccuracyScore: clamp01(accuracyDist.Rand()),
			SafetyStock:   cfg.Network.DefaultSafetyStock,
		}
		state.AddNode(node)
		seedNodeInventory(state, node, cfg, netRNG, cfg.Network.StoreStockMin, cfg.Network.StoreStockMax)
		state.SetStoreHours(defaultStoreHours(node))
	}

	scheduleInbound(state, cfg, netRNG)

	logrus.Infof("network built: %d DC(s), %d store(s), %d sku(s), %d inbound shipment(s)",
		cfg.Network.DCCount, cfg.Network.StoreCount, cfg.Network.SKUCount, len(state.PendingInbound()))
	return state
}

func seedNodeInventory(state *NetworkState, node *Node, cfg *Config, rng *rand.Rand, stockMin, stockMax int) {
	span := stockMax - stockMin
	for s := 1; s <= cfg.Network.SKUCount; s++ {
		onHand := stockMin
		if span > 0 {
			onHand += rng.Intn(span + 1)
		}
		state.SeedInventory(node.ID, SKUID(s), onHand, node.SafetyStock, cfg.Window.Start)
	}
}

// scheduleInbound scatters replenishment shipments across the sim window:
// roughly one per store-sku with 5% probability, one per DC-sku with 10%.
func scheduleInbound(state *NetworkState, cfg *Config, rng *rand.Rand) {
	window := cfg.Window.End.Sub(cfg.Window.Start)
	if window <= 0 {
		return
	}
	for _, nodeID := range state.NodeIDs() {
		node := state.Node(nodeID)
		prob, qtyBase := 0.05, 10
		if node.Type == NodeTypeDC {
			prob, qtyBase = 0.10, 100
		}
		for s := 1; s <= cfg.Network.SKUCount; s++ {
			if rng.Float64() >= prob {
				continue
			}
			start := cfg.Window.Start.Add(time.Duration(rng.Float64() * 0.8 * float64(window)))
			end := start.Add(time.Duration((6 + rng.Float64()*18) * float64(time.Hour)))
			state.AddInbound(InboundShipment{
				NodeID:   nodeID,
				SKU:      SKUID(s),
				Qty:      qtyBase + rng.Intn(qtyBase),
				ETAStart: start,
				ETAEnd:   end,
			})
		}
	}
}

// defaultStoreHours: 9-21 weekdays and Saturday, 10-18 Sunday.
func defaultStoreHours(node *Node) *StoreHours {
	h := &StoreHours{NodeID: node.ID, Timezone: node.Timezone}
	for d := 0; d < 7; d++ {
		h.OpenMinutes[d] = 9 * 60
		h.CloseMinutes[d] = 21 * 60
	}
	h.OpenMinutes[0] = 10 * 60 // Sunday
	h.CloseMinutes[0] = 18 * 60
	return h
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
