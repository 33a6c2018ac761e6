package sim

import (
	"fmt"
	"time"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GenerateOrders synthesizes a Poisson order stream across the simulation
// window: exponential interarrival times at the rate implied by count over
// the window, destinations inside the network's region box, 1-3 lines per
// order, and constraints drawn to exercise every fulfillment mode.
// Deterministic for a fixed simulation key.
func GenerateOrders(cfg *Config, key SimulationKey, count int) []*Order {
	src := xrand.NewSource(uint64(DerivedSeed(key, SubsystemNetwork, "orders")))
	rng := xrand.New(src)

	window := cfg.Window.End.Sub(cfg.Window.Start)
	interarrival := distuv.Exponential{
		Rate: float64(count) / window.Hours(),
		Src:  rng,
	}

	orders := make([]*Order, 0, count)
	at := cfg.Window.Start
	for i := 0; i < count; i++ {
		at = at.Add(time.Duration(interarrival.Rand() * float64(time.Hour)))
		if at.After(cfg.Window.End) {
			break
		}

		lineCount := 1 + rng.Intn(3)
		lines := make([]OrderLine, 0, lineCount)
		for l := 0; l < lineCount; l++ {
			lines = append(lines, OrderLine{
				SKU:      SKUID(1 + rng.Intn(cfg.Network.SKUCount)),
				Qty:      1 + rng.Intn(3),
				WeightKg: 0.2 + rng.Float64()*4.8,
			})
		}

		modes := map[FulfillmentMode]bool{
			ModeShipFromDC:    true,
			ModeShipFromStore: true,
		}
		if cfg.Bopis.Enabled && rng.Float64() < 0.5 {
			modes[ModeBOPIS] = true
			if cfg.Bopis.CurbsideEnabled && rng.Float64() < 0.5 {
				modes[ModeCurbside] = true
			}
		}

		orders = append(orders, &Order{
			ID:        fmt.Sprintf("order_%06d", i),
			CreatedAt: at,
			Destination: OrderDestination{
				Lat: regionCenterLat + (rng.Float64()*2-1)*regionSpreadLat,
				Lon: regionCenterLon + (rng.Float64()*2-1)*regionSpreadLon,
			},
			Lines: lines,
			Constraints: OrderConstraints{
				AllowedModes: modes,
				AllowSplit:   cfg.Routing.AllowSplit,
				PromiseBy:    at.Add(time.Duration((24 + rng.Float64()*48) * float64(time.Hour))),
				MaxNodes:     cfg.Routing.MaxNodes,
			},
		})
	}
	return orders
}
