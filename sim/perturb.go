package sim

import (
	"math"
	"time"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Record is any already-produced output record. Perturb inspects each record
// for the optional capabilities below and leaves records without them
// untouched.
type Record interface{}

// OnHandCarrier is implemented by records carrying an on-hand quantity.
type OnHandCarrier interface {
	ObservedOnHand() int
	SetObservedOnHand(int)
}

// EventTimed is implemented by records carrying an event timestamp.
type EventTimed interface {
	EventTime() time.Time
	SetEventTime(time.Time)
}

// NoiseCounters tallies each noise type applied by one Perturb pass,
// for observability.
type NoiseCounters struct {
	Miscounts     int
	LatencyShifts int
	Reorders      int
}

// exponential p95 = mean * ln(20); scale the configured p95 back to a mean.
var expP95Factor = math.Log(20)

// PerturbBatch is a stateless post-processing pass over a batch of
// already-produced records, independent of NetworkState:
//
//   - with probability inventory_miscount_rate per on-hand-carrying record,
//     the quantity shifts by ±1 (clamped at zero) — scan error;
//   - every time-carrying record gains an exponentially-distributed
//     ingestion latency whose p95 equals event_latency_seconds_p95;
//   - with probability ooo_events_probability the whole batch order is
//     reversed once — bursty out-of-order delivery.
//
// The batch is mutated in place and returned alongside per-noise counters.
// Deterministic for a fixed seed: identical input and seed yield identical
// output.
func PerturbBatch(batch []Record, cfg *Config, seed int64) ([]Record, NoiseCounters) {
	rng := xrand.New(xrand.NewSource(uint64(seed)))
	var counters NoiseCounters

	latency := distuv.Exponential{
		Rate: 1.0, // placeholder; zero p95 disables the draw below
		Src:  rng,
	}
	if cfg.Noise.EventLatencySecondsP95 > 0 {
		mean := cfg.Noise.EventLatencySecondsP95 / expP95Factor
		latency.Rate = 1.0 / mean
	}

	for _, rec := range batch {
		if carrier, ok := rec.(OnHandCarrier); ok {
			if rng.Float64() < cfg.Noise.InventoryMiscountRate {
				delta := 1
				if rng.Float64() < 0.5 {
					delta = -1
				}
				observed := carrier.ObservedOnHand() + delta
				if observed < 0 {
					observed = 0
				}
				carrier.SetObservedOnHand(observed)
				counters.Miscounts++
			}
		}
		if timed, ok := rec.(EventTimed); ok && cfg.Noise.EventLatencySecondsP95 > 0 {
			delaySeconds := latency.Rand()
			timed.SetEventTime(timed.EventTime().Add(time.Duration(delaySeconds * float64(time.Second))))
			counters.LatencyShifts++
		}
	}

	if rng.Float64() < cfg.Noise.OOOEventsProbability {
		for i, j := 0, len(batch)-1; i < j; i, j = i+1, j-1 {
			batch[i], batch[j] = batch[j], batch[i]
		}
		counters.Reorders++
	}

	return batch, counters
}
