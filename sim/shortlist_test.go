package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateNodes(cands []NodeCandidate) map[string]bool {
	out := make(map[string]bool)
	for _, c := range cands {
		out[c.NodeID] = true
	}
	return out
}

func TestShortlist_ReferenceNetwork(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)
	order := newTestOrder(3)

	cands := Shortlist(order, order.Lines[0], state, cfg)
	require.NotEmpty(t, cands)

	nodes := candidateNodes(cands)
	assert.True(t, nodes["store_0000"], "store_0000 has ATP 18 and must be shortlisted")
	assert.True(t, nodes["dc_000"], "dc_000 has ATP 300 and must be shortlisted")
	assert.False(t, nodes["store_0001"], "store_0001 has ATP -2 and must be excluded")

	for _, c := range cands {
		if c.NodeID == "store_0000" {
			assert.Equal(t, 18, c.ATP)
		}
		if c.NodeID == "dc_000" {
			assert.Equal(t, 300, c.ATP)
		}
	}
}

func TestShortlist_SortedByDistanceThenETA(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)
	order := newTestOrder(1)

	cands := Shortlist(order, order.Lines[0], state, cfg)
	for i := 1; i < len(cands); i++ {
		prev, cur := cands[i-1], cands[i]
		if prev.DistanceKm > cur.DistanceKm {
			t.Fatalf("candidates not sorted by distance: %f before %f", prev.DistanceKm, cur.DistanceKm)
		}
		if prev.DistanceKm == cur.DistanceKm && prev.ETAHours > cur.ETAHours {
			t.Fatalf("equal-distance candidates not sorted by eta")
		}
	}
}

func TestShortlist_SkipsNodesWithoutLedgerRow(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	order := newTestOrder(1)
	order.Lines[0].SKU = "SKU-99999" // nobody stocks it

	cands := Shortlist(order, order.Lines[0], state, cfg)
	assert.Empty(t, cands, "missing ledger rows mean the node cannot serve, never an error")
}

func TestShortlist_RespectsAllowedModes(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	order := newTestOrder(1)
	order.Constraints.AllowedModes = map[FulfillmentMode]bool{ModeBOPIS: true}

	cands := Shortlist(order, order.Lines[0], state, cfg)
	for _, c := range cands {
		assert.Equal(t, ModeBOPIS, c.Mode)
		assert.NotEqual(t, "dc_000", c.NodeID, "DCs never serve pickup modes")
	}
}

func TestShortlist_TruncatesToTopK(t *testing.T) {
	cfg := newTestConfig()
	cfg.Routing.ShortlistK = 1
	state := newTestState(cfg)
	order := newTestOrder(1)

	cands := Shortlist(order, order.Lines[0], state, cfg)
	require.Len(t, cands, 1)
	// store_0000 is next door; it must win the single slot
	assert.Equal(t, "store_0000", cands[0].NodeID)
}

func TestShortlist_InboundWindowingExtendsATP(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	order := newTestOrder(5)
	order.Constraints.AllowedModes = map[FulfillmentMode]bool{ModeShipFromStore: true}

	// store_0001 has 0 on hand; an inbound closing before the promise
	// window makes it promisable.
	state.AddInbound(InboundShipment{
		NodeID:   "store_0001",
		SKU:      testSKU,
		Qty:      20,
		ETAStart: testStart.Add(2 * time.Hour),
		ETAEnd:   testStart.Add(6 * time.Hour),
	})

	cands := Shortlist(order, order.Lines[0], state, cfg)
	assert.True(t, candidateNodes(cands)["store_0001"], "qualifying inbound must count toward ATP")

	// With windowing off the same node drops out again.
	cfg.Routing.InboundWindowing = false
	cands = Shortlist(order, order.Lines[0], state, cfg)
	assert.False(t, candidateNodes(cands)["store_0001"])
}

func TestShortlist_LateInboundDoesNotCount(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	order := newTestOrder(5)
	order.Constraints.AllowedModes = map[FulfillmentMode]bool{ModeShipFromStore: true}

	state.AddInbound(InboundShipment{
		NodeID:   "store_0001",
		SKU:      testSKU,
		Qty:      20,
		ETAStart: testStart.Add(30 * time.Hour),
		ETAEnd:   testStart.Add(40 * time.Hour), // closes after the 24h promise
	})

	cands := Shortlist(order, order.Lines[0], state, cfg)
	assert.False(t, candidateNodes(cands)["store_0001"])
}

func TestShortlist_DCOutageExcludesNode(t *testing.T) {
	cfg := newTestConfig()
	cfg.Scenarios = []ScenarioEffect{{
		Kind:       ScenarioDCOutage,
		Start:      testStart.Add(-time.Hour),
		End:        testStart.Add(48 * time.Hour),
		NodeIDs:    []string{"dc_000"},
		Multiplier: 1.0,
	}}
	state := newTestState(cfg)
	order := newTestOrder(1)

	cands := Shortlist(order, order.Lines[0], state, cfg)
	assert.False(t, candidateNodes(cands)["dc_000"], "node under outage must be excluded")
	assert.True(t, candidateNodes(cands)["store_0000"])
}

func TestShortlist_RejectsPickupWhileClosed(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	// 12:00 UTC is 07:00 in America/Chicago; the store opens at 09:00, so
	// a pickup staged within the hour lands before opening.
	order := newTestOrder(1)
	order.Constraints.AllowedModes = map[FulfillmentMode]bool{ModeBOPIS: true}

	cfg.Bopis.RejectIfClosed = true
	assert.Empty(t, Shortlist(order, order.Lines[0], state, cfg))

	cfg.Bopis.RejectIfClosed = false
	cands := Shortlist(order, order.Lines[0], state, cfg)
	assert.True(t, candidateNodes(cands)["store_0000"])
}

func TestMeetsSLA(t *testing.T) {
	order := newTestOrder(1) // 24h promise

	assert.True(t, MeetsSLA([]NodeCandidate{{ETAHours: 2}, {ETAHours: 23.9}}, order))
	assert.False(t, MeetsSLA([]NodeCandidate{{ETAHours: 2}, {ETAHours: 25}}, order),
		"one late candidate fails the whole combination")
}

func TestNodeCombinations_NoSplitKeepsSingleNodeOnly(t *testing.T) {
	perLine := [][]NodeCandidate{
		{{NodeID: "a"}, {NodeID: "b"}},
		{{NodeID: "a"}, {NodeID: "c"}},
	}

	combos := NodeCombinations(perLine, false, 3)
	require.Len(t, combos, 1)
	assert.Equal(t, "a", combos[0][0].NodeID)
	assert.Equal(t, "a", combos[0][1].NodeID)
}

func TestNodeCombinations_SplitRespectsMaxNodes(t *testing.T) {
	perLine := [][]NodeCandidate{
		{{NodeID: "a"}, {NodeID: "b"}},
		{{NodeID: "c"}},
		{{NodeID: "a"}, {NodeID: "d"}},
	}

	combos := NodeCombinations(perLine, true, 2)
	require.NotEmpty(t, combos)
	for _, combo := range combos {
		assert.LessOrEqual(t, distinctNodes(combo), 2)
	}
	// (a,c,a) is the only 2-node survivor
	require.Len(t, combos, 1)
}

func TestNodeCombinations_EmptyLineMeansNoCombos(t *testing.T) {
	perLine := [][]NodeCandidate{
		{{NodeID: "a"}},
		{}, // unservable line
	}
	assert.Nil(t, NodeCombinations(perLine, true, 3))
}
