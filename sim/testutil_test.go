package sim

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Shared fixtures for engine tests: one DC and two stores around a
// midwestern destination, with a single high-velocity sku.

const testSKU = "SKU-00001"

var testStart = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) // a Monday

func newTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Window.Start = testStart.Add(-12 * time.Hour)
	cfg.Window.End = testStart.Add(7 * 24 * time.Hour)
	cfg.Seed = 7
	cfg.Routing.ShortlistK = 4
	cfg.Routing.MaxNodes = 2
	cfg.Noise.PickFailRate = 0.08
	return cfg
}

func testCosts(cfg *Config, nodeType NodeType) CostParams {
	base, handling := cfg.Cost.BaseShipCostStore, cfg.Cost.HandlingCostStore
	if nodeType == NodeTypeDC {
		base, handling = cfg.Cost.BaseShipCostDC, cfg.Cost.HandlingCostDC
	}
	return CostParams{
		BaseShipCost: decimal.NewFromFloat(base),
		PerKmRate:    decimal.NewFromFloat(cfg.Cost.PerKmRate),
		PerKgRate:    decimal.NewFromFloat(cfg.Cost.PerKgRate),
		HandlingCost: decimal.NewFromFloat(handling),
	}
}

func testNode(cfg *Config, id string, nodeType NodeType, lat, lon float64, caps ...Capability) *Node {
	capSet := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		capSet[c] = true
	}
	picks, safety := 20.0, cfg.Network.DefaultSafetyStock
	if nodeType == NodeTypeDC {
		picks, safety = cfg.Capacity.DCPickRate, 0
	}
	return &Node{
		ID:            id,
		Type:          nodeType,
		Lat:           lat,
		Lon:           lon,
		Timezone:      "America/Chicago",
		Capabilities:  capSet,
		PicksPerHour:  picks,
		Costs:         testCosts(cfg, nodeType),
		AccuracyScore: 1.0, // exact ledgers by default; tests lower this explicitly
		SafetyStock:   safety,
	}
}

// newTestState builds the reference network: dc_000 with 300 on hand,
// store_0000 nearby with 20 on hand (safety stock 2), store_0001 farther
// out with nothing on the shelf.
func newTestState(cfg *Config) *NetworkState {
	state := NewNetworkState(cfg, rand.New(rand.NewSource(1)))

	dc := testNode(cfg, "dc_000", NodeTypeDC, 41.0, -100.0, CapabilityShip)
	near := testNode(cfg, "store_0000", NodeTypeStore, 40.0, -90.0, CapabilityShip, CapabilityBOPIS, CapabilityCurbside)
	far := testNode(cfg, "store_0001", NodeTypeStore, 42.0, -95.0, CapabilityShip, CapabilityBOPIS)

	state.AddNode(dc)
	state.AddNode(near)
	state.AddNode(far)

	state.SeedInventory("dc_000", testSKU, 300, 0, testStart)
	state.SeedInventory("store_0000", testSKU, 20, 2, testStart)
	state.SeedInventory("store_0001", testSKU, 0, 2, testStart)

	for _, id := range []string{"store_0000", "store_0001"} {
		state.SetStoreHours(defaultStoreHours(state.Node(id)))
	}
	return state
}

// newTestOrder returns a 1-line order for qty units of the test sku,
// destined next door to store_0000, promising 24h service over ship modes.
func newTestOrder(qty int) *Order {
	return &Order{
		ID:        "order_test",
		CreatedAt: testStart,
		Destination: OrderDestination{
			Lat: 40.01,
			Lon: -90.01,
		},
		Lines: []OrderLine{{SKU: testSKU, Qty: qty, WeightKg: 1.0}},
		Constraints: OrderConstraints{
			AllowedModes: map[FulfillmentMode]bool{
				ModeShipFromStore: true,
				ModeShipFromDC:    true,
			},
			AllowSplit: false,
			PromiseBy:  testStart.Add(24 * time.Hour),
			MaxNodes:   2,
		},
	}
}
