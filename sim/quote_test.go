package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteOrder_RankedByNonDecreasingCost(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)
	order := newTestOrder(3)

	bundle, err := QuoteOrder(order, state, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.Candidates)

	for i := 1; i < len(bundle.Candidates); i++ {
		prev := bundle.Candidates[i-1].TotalCost
		cur := bundle.Candidates[i].TotalCost
		if prev.GreaterThan(cur) {
			t.Fatalf("candidates not sorted: %s before %s", prev, cur)
		}
	}
	assert.Equal(t, bundle.Candidates[0].TotalCost, bundle.Recommendation.TotalCost)
}

func TestQuoteOrder_NearbyStoreWins(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)
	order := newTestOrder(3)

	bundle, err := QuoteOrder(order, state, cfg)
	require.NoError(t, err)

	// store_0000 sits ~1.4 km from the destination; the DC is ~850 km out
	// and its per-km cost dwarfs its cheaper base rate.
	require.Len(t, bundle.Recommendation.Selections, 1)
	assert.Equal(t, "store_0000", bundle.Recommendation.Selections[0].NodeID)
	assert.Equal(t, ModeShipFromStore, bundle.Recommendation.Selections[0].Mode)
}

func TestQuoteOrder_NoFeasibleCandidates(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	order := newTestOrder(1000) // nobody holds 1000 units
	_, err := QuoteOrder(order, state, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFeasibleCandidates))
}

func TestQuoteOrder_SLAFilteredCombosLandInTrail(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	order := newTestOrder(3)
	order.Constraints.PromiseBy = testStart.Add(30 * time.Minute)

	// The DC is hours away; only the nearby store can promise 30 minutes.
	bundle, err := QuoteOrder(order, state, cfg)
	require.NoError(t, err)

	var failed int
	for _, fv := range bundle.Trail {
		if !fv.MeetsSLA {
			failed++
			assert.Equal(t, -1, fv.Rank, "SLA-failed combos carry rank -1")
		}
	}
	assert.Greater(t, failed, 0, "the DC combo should fail the 30-minute SLA")
	for _, cand := range bundle.Candidates {
		assert.NotContains(t, cand.Features.NodeIDs, "dc_000")
	}
}

func TestQuoteOrder_EmptyOrderRejected(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	order := newTestOrder(1)
	order.Lines = nil
	_, err := QuoteOrder(order, state, cfg)
	assert.Error(t, err)
}

func TestQuoteOrder_ReadOnly(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)
	order := newTestOrder(3)

	before, _ := state.InventoryRecordCopy("store_0000", testSKU)
	_, err := QuoteOrder(order, state, cfg)
	require.NoError(t, err)
	after, _ := state.InventoryRecordCopy("store_0000", testSKU)

	assert.Equal(t, before.OnHandTrue, after.OnHandTrue)
	assert.Equal(t, before.Allocated, after.Allocated)
}

func TestBuildSelections_GroupsByNodeAndMode(t *testing.T) {
	order := newTestOrder(1)
	order.Lines = []OrderLine{
		{SKU: "SKU-00001", Qty: 1},
		{SKU: "SKU-00002", Qty: 2},
		{SKU: "SKU-00003", Qty: 3},
	}
	combo := []NodeCandidate{
		{NodeID: "a", Mode: ModeShipFromStore},
		{NodeID: "b", Mode: ModeShipFromDC},
		{NodeID: "a", Mode: ModeShipFromStore},
	}

	selections := buildSelections(combo, order)
	require.Len(t, selections, 2)
	assert.Equal(t, "a", selections[0].NodeID)
	assert.Len(t, selections[0].Lines, 2)
	assert.Equal(t, 4, selections[0].Units())
	assert.Equal(t, "b", selections[1].NodeID)
	assert.Len(t, selections[1].Lines, 1)
}
