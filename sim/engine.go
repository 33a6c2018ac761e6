package sim

import (
	"errors"
	"time"
)

// Engine composes the pure helpers and NetworkState into the six lifecycle
// hooks of the routing/allocation/fulfillment protocol. The host may call
// Quote, Allocate, and Realize from any number of concurrent workers
// processing independent orders; Prepare and EmitSupply are single-threaded
// by contract (setup and the snapshot tick).
type Engine struct {
	cfg     *Config
	state   *NetworkState
	rng     *PartitionedRNG
	metrics *EngineMetrics
}

// NewEngine wires an engine from a validated configuration. Prepare must be
// called before any other hook.
func NewEngine(cfg *Config) *Engine {
	return &Engine{
		cfg:     cfg,
		rng:     NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		metrics: NewEngineMetrics(),
	}
}

// State exposes the network state for inspection (tests, snapshots).
func (e *Engine) State() *NetworkState { return e.state }

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *EngineMetrics { return e.metrics }

// Config exposes the engine's immutable configuration.
func (e *Engine) Config() *Config { return e.cfg }

// Prepare builds NetworkState from configuration and the seeded RNG.
func (e *Engine) Prepare() {
	e.state = BuildNetwork(e.cfg, e.rng)
}

// EmitSupply is called once per snapshot tick: matures inbound shipments,
// sweeps expired reservations, applies backlog shocks, and surfaces the
// current state for downstream consumers.
func (e *Engine) EmitSupply(now time.Time) *SupplyBatch {
	batch := emitSupply(now, e.state, e.cfg, e.rng.ForSubsystem(SubsystemSupply))
	e.metrics.ExpiredReleases.Add(float64(batch.ExpiredReleases))
	return batch
}

// Quote produces the ranked fulfillment plans for one order. Read-only.
func (e *Engine) Quote(order *Order) (*QuoteBundle, error) {
	e.metrics.QuotesTotal.Inc()
	bundle, err := QuoteOrder(order, e.state, e.cfg)
	if errors.Is(err, ErrNoFeasibleCandidates) {
		e.metrics.QuotesInfeasible.Inc()
	}
	return bundle, err
}

// Allocate reserves inventory for the given selection set, falling back
// through the ranked candidates on reservation conflict when rerouting is
// enabled.
func (e *Engine) Allocate(order *Order, selections []AllocationSelection, now time.Time) (*AllocationBundle, error) {
	bundle, err := AllocateOrder(order, selections, now, e.state, e.cfg)
	if err != nil {
		return nil, err
	}
	e.metrics.ReservationConflicts.Add(float64(bundle.Attempts - 1))
	switch bundle.Allocation.Status {
	case AllocationReserved:
		e.metrics.ReservationsTotal.Inc()
		if bundle.Rerouted {
			e.metrics.ReroutesTotal.Inc()
		}
	case AllocationFailed:
		e.metrics.AllocationsFailed.Inc()
	}
	return bundle, nil
}

// Realize advances a reserved allocation through its physical fulfillment
// timeline, returning the chronologically merged event stream.
func (e *Engine) Realize(allocationID string, now time.Time) ([]*FulfillmentEvent, error) {
	events, err := RealizeAllocation(allocationID, now, e.state, e.cfg, e.rng.Key())
	if err != nil {
		return nil, err
	}
	e.metrics.EventsEmitted.Add(float64(len(events)))
	for _, ev := range events {
		if ev.Type == EventPickFailed {
			e.metrics.PickFailures.Inc()
		}
	}
	return events, nil
}

// Perturb applies observational noise to a batch of already-produced
// records. Stateless with respect to NetworkState; deterministic for the
// engine's seed and a given batch tag (use distinct tags for distinct
// batches to decorrelate their noise).
func (e *Engine) Perturb(batch []Record, batchTag string) ([]Record, NoiseCounters) {
	seed := DerivedSeed(e.rng.Key(), SubsystemPerturb, batchTag)
	out, counters := PerturbBatch(batch, e.cfg, seed)
	e.metrics.NoiseApplied.WithLabelValues("miscount").Add(float64(counters.Miscounts))
	e.metrics.NoiseApplied.WithLabelValues("latency").Add(float64(counters.LatencyShifts))
	e.metrics.NoiseApplied.WithLabelValues("reorder").Add(float64(counters.Reorders))
	return out, counters
}
