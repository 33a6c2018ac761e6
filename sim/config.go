package sim

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SimWindow bounds the simulated time range and the snapshot cadence for
// EmitSupply ticks.
type SimWindow struct {
	Start            time.Time `yaml:"start"`
	End              time.Time `yaml:"end"`
	SnapshotInterval Duration  `yaml:"snapshot_interval"`
}

// Duration wraps time.Duration with YAML string parsing ("15m", "1h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// NetworkConfig sizes the synthetic fulfillment network.
type NetworkConfig struct {
	DCCount            int     `yaml:"dc_count"`
	StoreCount         int     `yaml:"store_count"`
	SKUCount           int     `yaml:"sku_count"`
	AccuracyMean       float64 `yaml:"inventory_accuracy_mean"`
	AccuracyStd        float64 `yaml:"inventory_accuracy_std"`
	DefaultSafetyStock int     `yaml:"default_safety_stock"`

	// Initial stock ranges per node type; stores may start at zero.
	DCStockMin    int `yaml:"dc_stock_min"`
	DCStockMax    int `yaml:"dc_stock_max"`
	StoreStockMin int `yaml:"store_stock_min"`
	StoreStockMax int `yaml:"store_stock_max"`
}

// RoutingConfig holds the placement-search knobs.
type RoutingConfig struct {
	AllowSplit           bool    `yaml:"allow_split"`
	MaxNodes             int     `yaml:"max_nodes"`
	ShortlistK           int     `yaml:"shortlist_k"`
	SLAPenaltyLambda     float64 `yaml:"sla_penalty_lambda"`
	SplitPenalty         float64 `yaml:"split_penalty"`
	InboundWindowing     bool    `yaml:"inbound_windowing"`
	DataStalenessSeconds int     `yaml:"data_staleness_seconds"`
	ReservationTTLHours  float64 `yaml:"reservation_ttl_hours"`
}

// CostConfig holds per-node-type cost parameters.
type CostConfig struct {
	BaseShipCostDC    float64 `yaml:"base_ship_cost_dc"`
	BaseShipCostStore float64 `yaml:"base_ship_cost_store"`
	PerKmRate         float64 `yaml:"per_km_rate"`
	PerKgRate         float64 `yaml:"per_kg_rate"`
	HandlingCostDC    float64 `yaml:"handling_cost_dc"`
	HandlingCostStore float64 `yaml:"handling_cost_store"`
}

// CapacityConfig holds pick-capacity knobs.
type CapacityConfig struct {
	StorePickRateMean float64 `yaml:"store_pick_rate_mean"`
	StorePickRateStd  float64 `yaml:"store_pick_rate_std"`
	DCPickRate        float64 `yaml:"dc_pick_rate"`
	BacklogShockProb  float64 `yaml:"backlog_shock_probability"`
}

// BopisConfig holds pickup-channel knobs.
type BopisConfig struct {
	Enabled              bool `yaml:"enabled"`
	CurbsideEnabled      bool `yaml:"curbside_enabled"`
	PromiseBufferMinutes int  `yaml:"promise_buffer_minutes"`
	RejectIfClosed       bool `yaml:"reject_if_closed"`
}

// NoiseConfig holds observational and operational noise rates.
type NoiseConfig struct {
	InventoryMiscountRate  float64 `yaml:"inventory_miscount_rate"`
	EventLatencySecondsP95 float64 `yaml:"event_latency_seconds_p95"`
	OOOEventsProbability   float64 `yaml:"ooo_events_probability"`
	PickFailRate           float64 `yaml:"pick_fail_rate"`
	RerouteEnabled         bool    `yaml:"reroute_enabled"`
}

// SeasonalityConfig scales queueing pressure on weekends and promo days.
type SeasonalityConfig struct {
	WeekendMultiplier float64        `yaml:"weekend_multiplier"`
	PromoDays         []time.Weekday `yaml:"promo_days"`
	PromoMultiplier   float64        `yaml:"promo_multiplier"`
}

// ScenarioKind names a time-bounded regional effect.
type ScenarioKind string

const (
	ScenarioStorm         ScenarioKind = "storm"
	ScenarioLaborShortage ScenarioKind = "labor_shortage"
	ScenarioPromoSpike    ScenarioKind = "promo_spike"
	ScenarioHazmat        ScenarioKind = "hazmat"
	ScenarioColdChain     ScenarioKind = "cold_chain"
	ScenarioDCOutage      ScenarioKind = "dc_outage"
)

var validScenarioKinds = map[ScenarioKind]bool{
	ScenarioStorm:         true,
	ScenarioLaborShortage: true,
	ScenarioPromoSpike:    true,
	ScenarioHazmat:        true,
	ScenarioColdChain:     true,
	ScenarioDCOutage:      true,
}

// ScenarioEffect is a named, time-bounded perturbation contributing a
// multiplier to cost/capacity while active. NodeIDs empty = network-wide.
type ScenarioEffect struct {
	Kind       ScenarioKind `yaml:"kind"`
	Start      time.Time    `yaml:"start"`
	End        time.Time    `yaml:"end"`
	NodeIDs    []string     `yaml:"node_ids"`
	Multiplier float64      `yaml:"multiplier"`
}

// Active reports whether the effect applies to the node at the instant.
func (e ScenarioEffect) Active(nodeID string, now time.Time) bool {
	if now.Before(e.Start) || !now.Before(e.End) {
		return false
	}
	if len(e.NodeIDs) == 0 {
		return true
	}
	for _, id := range e.NodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// Config is the fully-validated, immutable configuration object consumed
// read-only by the engine. Constructed once at the boundary; the core never
// accepts untyped maps.
type Config struct {
	Window      SimWindow         `yaml:"window"`
	Network     NetworkConfig     `yaml:"network"`
	Routing     RoutingConfig     `yaml:"routing"`
	Cost        CostConfig        `yaml:"cost"`
	Capacity    CapacityConfig    `yaml:"capacity"`
	Bopis       BopisConfig       `yaml:"bopis"`
	Noise       NoiseConfig       `yaml:"noise"`
	Seasonality SeasonalityConfig `yaml:"seasonality"`
	Scenarios   []ScenarioEffect  `yaml:"scenarios"`
	Seed        int64             `yaml:"seed"`
}

// LoadConfig reads and parses a YAML configuration file, then validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a runnable configuration with conservative knobs.
// CLI flags and tests start from here and override selectively.
func DefaultConfig() *Config {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	return &Config{
		Window: SimWindow{
			Start:            start,
			End:              start.Add(7 * 24 * time.Hour),
			SnapshotInterval: Duration(time.Hour),
		},
		Network: NetworkConfig{
			DCCount:            2,
			StoreCount:         12,
			SKUCount:           50,
			AccuracyMean:       0.93,
			AccuracyStd:        0.04,
			DefaultSafetyStock: 2,
			DCStockMin:         200,
			DCStockMax:         600,
			StoreStockMin:      0,
			StoreStockMax:      40,
		},
		Routing: RoutingConfig{
			AllowSplit:           true,
			MaxNodes:             2,
			ShortlistK:           4,
			SLAPenaltyLambda:     1.5,
			SplitPenalty:         4.0,
			InboundWindowing:     true,
			DataStalenessSeconds: 300,
			ReservationTTLHours:  24,
		},
		Cost: CostConfig{
			BaseShipCostDC:    4.0,
			BaseShipCostStore: 6.5,
			PerKmRate:         0.02,
			PerKgRate:         0.35,
			HandlingCostDC:    0.6,
			HandlingCostStore: 1.1,
		},
		Capacity: CapacityConfig{
			StorePickRateMean: 18,
			StorePickRateStd:  4,
			DCPickRate:        120,
			BacklogShockProb:  0.05,
		},
		Bopis: BopisConfig{
			Enabled:              true,
			CurbsideEnabled:      true,
			PromiseBufferMinutes: 30,
			RejectIfClosed:       true,
		},
		Noise: NoiseConfig{
			InventoryMiscountRate:  0.02,
			EventLatencySecondsP95: 90,
			OOOEventsProbability:   0.01,
			PickFailRate:           0.08,
			RerouteEnabled:         true,
		},
		Seasonality: SeasonalityConfig{
			WeekendMultiplier: 1.4,
			PromoDays:         nil,
			PromoMultiplier:   1.0,
		},
		Seed: 42,
	}
}

// Validate checks ranges and cross-field consistency. The engine assumes a
// validated config and performs no re-checking in the hot path.
func (c *Config) Validate() error {
	if !c.Window.End.After(c.Window.Start) {
		return fmt.Errorf("window end %s must be after start %s", c.Window.End, c.Window.Start)
	}
	if c.Window.SnapshotInterval.Std() <= 0 {
		return fmt.Errorf("snapshot_interval must be positive")
	}
	if c.Network.DCCount < 0 || c.Network.StoreCount < 0 {
		return fmt.Errorf("node counts must be non-negative")
	}
	if c.Network.DCCount+c.Network.StoreCount == 0 {
		return fmt.Errorf("network must contain at least one node")
	}
	if c.Network.SKUCount <= 0 {
		return fmt.Errorf("sku_count must be positive")
	}
	if c.Network.AccuracyMean < 0 || c.Network.AccuracyMean > 1 {
		return fmt.Errorf("inventory_accuracy_mean must be in [0,1], got %f", c.Network.AccuracyMean)
	}
	if c.Routing.ShortlistK <= 0 {
		return fmt.Errorf("shortlist_k must be positive, got %d", c.Routing.ShortlistK)
	}
	if c.Routing.MaxNodes <= 0 {
		return fmt.Errorf("max_nodes must be positive, got %d", c.Routing.MaxNodes)
	}
	if c.Routing.SLAPenaltyLambda < 0 {
		return fmt.Errorf("sla_penalty_lambda must be non-negative, got %f", c.Routing.SLAPenaltyLambda)
	}
	if c.Routing.SplitPenalty < 0 {
		return fmt.Errorf("split_penalty must be non-negative, got %f", c.Routing.SplitPenalty)
	}
	if c.Routing.ReservationTTLHours <= 0 {
		return fmt.Errorf("reservation_ttl_hours must be positive, got %f", c.Routing.ReservationTTLHours)
	}
	if c.Capacity.StorePickRateMean <= 0 || c.Capacity.DCPickRate <= 0 {
		return fmt.Errorf("pick rates must be positive")
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"inventory_miscount_rate", c.Noise.InventoryMiscountRate},
		{"ooo_events_probability", c.Noise.OOOEventsProbability},
		{"pick_fail_rate", c.Noise.PickFailRate},
		{"backlog_shock_probability", c.Capacity.BacklogShockProb},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %f", p.name, p.v)
		}
	}
	if c.Noise.EventLatencySecondsP95 < 0 {
		return fmt.Errorf("event_latency_seconds_p95 must be non-negative")
	}
	for i, s := range c.Scenarios {
		if !validScenarioKinds[s.Kind] {
			return fmt.Errorf("scenario %d: unknown kind %q", i, s.Kind)
		}
		if !s.End.After(s.Start) {
			return fmt.Errorf("scenario %d (%s): end must be after start", i, s.Kind)
		}
		if s.Multiplier <= 0 {
			return fmt.Errorf("scenario %d (%s): multiplier must be positive, got %f", i, s.Kind, s.Multiplier)
		}
	}
	return nil
}
