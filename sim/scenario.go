package sim

import "time"

// Scenario effects contribute a single multiplier each while active. Cost
// terms absorb cost-side effects (storm, hazmat, cold_chain, promo_spike);
// ETA absorbs capacity-side effects (storm, labor_shortage); dc_outage
// removes the node from shortlists entirely.

// scenarioCostMultiplier returns the product of active cost-side effect
// multipliers for the node at the instant.
func scenarioCostMultiplier(cfg *Config, nodeID string, now time.Time) float64 {
	m := 1.0
	for _, e := range cfg.Scenarios {
		if !e.Active(nodeID, now) {
			continue
		}
		switch e.Kind {
		case ScenarioStorm, ScenarioHazmat, ScenarioColdChain, ScenarioPromoSpike:
			m *= e.Multiplier
		}
	}
	return m
}

// scenarioETAMultiplier returns the product of active capacity-side effect
// multipliers for the node at the instant.
func scenarioETAMultiplier(cfg *Config, nodeID string, now time.Time) float64 {
	m := 1.0
	for _, e := range cfg.Scenarios {
		if !e.Active(nodeID, now) {
			continue
		}
		switch e.Kind {
		case ScenarioStorm, ScenarioLaborShortage:
			m *= e.Multiplier
		}
	}
	return m
}

// scenarioNodeOut reports whether an outage effect currently removes the
// node from service.
func scenarioNodeOut(cfg *Config, nodeID string, now time.Time) bool {
	for _, e := range cfg.Scenarios {
		if e.Kind == ScenarioDCOutage && e.Active(nodeID, now) {
			return true
		}
	}
	return false
}

// seasonalityFactor scales queueing pressure on weekends and promo days.
func seasonalityFactor(cfg *Config, now time.Time) float64 {
	f := 1.0
	wd := now.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		if cfg.Seasonality.WeekendMultiplier > 0 {
			f *= cfg.Seasonality.WeekendMultiplier
		}
	}
	for _, d := range cfg.Seasonality.PromoDays {
		if d == wd && cfg.Seasonality.PromoMultiplier > 0 {
			f *= cfg.Seasonality.PromoMultiplier
			break
		}
	}
	return f
}
