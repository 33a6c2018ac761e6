// Package sim provides the core routing, allocation, and fulfillment
// simulation engine for an omnichannel retail network.
//
// # Reading Guide
//
// Start with these three files to understand the engine kernel:
//   - state.go: NetworkState, the single mutable store of truth (nodes,
//     per-(node,sku) inventory ledgers, inbound queue, allocation table)
//   - quote.go: candidate shortlisting, combination pricing, and ranking
//   - realize.go: the fulfillment-event state machine (pick, ship/deliver,
//     pickup/curbside) with probabilistic failure and rollback
//
// # Architecture
//
// The engine is logic-only: no I/O, no real suspension. All "waiting"
// (ETA, pick delay) is simulated time computation. The six lifecycle hooks
// on Engine compose the pure helpers over NetworkState:
//   - Prepare: build NetworkState from configuration + a seeded RNG
//   - EmitSupply: surface snapshots, mature inbound, sweep expired holds
//   - Quote: read-only ranked fulfillment plans for one order
//   - Allocate: atomic reservation with ranked fallback rerouting
//   - Realize: advance a reservation through its physical timeline
//   - Perturb: stateless observational noise over produced records
//
// Quote is safe to call from any number of goroutines. Allocate and Realize
// serialize their inventory mutations through per-(node,sku) locks acquired
// in a fixed global order (see reserve.go).
//
// Determinism: every random draw flows from a PartitionedRNG (rng.go) keyed
// by the configured base seed, so identical configuration and seed produce
// identical output, including under parallel realization.
package sim
