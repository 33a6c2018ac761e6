package sim

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoFeasibleCandidates is returned by Quote when every combination is
// either infeasible (insufficient ATP) or violates the SLA. The caller
// decides whether to relax constraints and re-quote; the engine never
// retries internally.
var ErrNoFeasibleCandidates = errors.New("no feasible candidates")

// QuoteOrder reads NetworkState (never mutating it) and produces the ranked
// list of fulfillment plans for one order: per-line shortlists, feasible
// node combinations under the split/max-node constraints, SLA filtering,
// full pricing, and an explainability trail over every evaluated
// combination.
func QuoteOrder(order *Order, state *NetworkState, cfg *Config) (*QuoteBundle, error) {
	if len(order.Lines) == 0 {
		return nil, fmt.Errorf("order %s has no lines", order.ID)
	}

	perLine := make([][]NodeCandidate, len(order.Lines))
	for i, line := range order.Lines {
		perLine[i] = Shortlist(order, line, state, cfg)
	}

	combos := NodeCombinations(perLine, order.Constraints.AllowSplit, order.Constraints.MaxNodes)
	if len(combos) == 0 {
		return nil, fmt.Errorf("order %s: %w", order.ID, ErrNoFeasibleCandidates)
	}

	bundle := &QuoteBundle{
		OrderID:   order.ID,
		CreatedAt: order.CreatedAt,
	}

	for _, combo := range combos {
		features := comboFeatures(combo)
		if !MeetsSLA(combo, order) {
			features.Rank = -1
			bundle.Trail = append(bundle.Trail, features)
			continue
		}
		features.MeetsSLA = true

		breakdown, total, err := TotalCost(combo, order, state, cfg)
		if err != nil {
			// Shape mismatch is a programmer error; surface it.
			return nil, fmt.Errorf("pricing order %s: %w", order.ID, err)
		}
		features.TotalCost = total
		bundle.Trail = append(bundle.Trail, features)

		bundle.Candidates = append(bundle.Candidates, QuoteCandidate{
			Selections: buildSelections(combo, order),
			Breakdown:  breakdown,
			TotalCost:  total,
			Features:   features,
		})
	}

	if len(bundle.Candidates) == 0 {
		return nil, fmt.Errorf("order %s: %w", order.ID, ErrNoFeasibleCandidates)
	}

	sort.SliceStable(bundle.Candidates, func(i, j int) bool {
		ci, cj := bundle.Candidates[i], bundle.Candidates[j]
		if cmp := ci.TotalCost.Cmp(cj.TotalCost); cmp != 0 {
			return cmp < 0
		}
		// Deterministic tie-breaks: prefer fewer nodes, then lexicographic
		// node-id order, so equal-cost plans rank identically across runs.
		if ci.Features.SplitCount != cj.Features.SplitCount {
			return ci.Features.SplitCount < cj.Features.SplitCount
		}
		return strings.Join(ci.Features.NodeIDs, ",") < strings.Join(cj.Features.NodeIDs, ",")
	})
	for i := range bundle.Candidates {
		bundle.Candidates[i].Features.Rank = i
	}
	bundle.Recommendation = &bundle.Candidates[0]
	return bundle, nil
}

// comboFeatures derives the explainability feature vector of one
// combination before pricing.
func comboFeatures(combo []NodeCandidate) DecisionFeatureVector {
	features := DecisionFeatureVector{
		TotalCost: decimal.Zero,
		MinATP:    combo[0].ATP,
	}
	seen := make(map[string]bool)
	for _, cand := range combo {
		if !seen[cand.NodeID] {
			seen[cand.NodeID] = true
			features.NodeIDs = append(features.NodeIDs, cand.NodeID)
		}
		if cand.ETAHours > features.MaxETAHours {
			features.MaxETAHours = cand.ETAHours
		}
		if cand.DistanceKm > features.MaxDistanceKm {
			features.MaxDistanceKm = cand.DistanceKm
		}
		if cand.ATP < features.MinATP {
			features.MinATP = cand.ATP
		}
	}
	sort.Strings(features.NodeIDs)
	features.SplitCount = len(features.NodeIDs)
	return features
}

// buildSelections folds one combination (a candidate per line) into
// AllocationSelections grouped by (node, mode), preserving first-seen order.
func buildSelections(combo []NodeCandidate, order *Order) []AllocationSelection {
	type selKey struct {
		nodeID string
		mode   FulfillmentMode
	}
	index := make(map[selKey]int)
	var selections []AllocationSelection
	for i, cand := range combo {
		key := selKey{cand.NodeID, cand.Mode}
		at, ok := index[key]
		if !ok {
			at = len(selections)
			index[key] = at
			selections = append(selections, AllocationSelection{
				NodeID: cand.NodeID,
				Mode:   cand.Mode,
			})
		}
		selections[at].Lines = append(selections[at].Lines, order.Lines[i])
	}
	return selections
}
