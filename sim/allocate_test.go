package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateOrder_Reserved(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)
	order := newTestOrder(3)

	selections := []AllocationSelection{{
		NodeID: "store_0000",
		Mode:   ModeShipFromStore,
		Lines:  order.Lines,
	}}

	bundle, err := AllocateOrder(order, selections, testStart, state, cfg)
	require.NoError(t, err)
	assert.Equal(t, AllocationReserved, bundle.Allocation.Status)
	assert.NotEmpty(t, bundle.Allocation.ID)
	assert.Equal(t, 1, bundle.Attempts)
	assert.False(t, bundle.Rerouted)

	rec, _ := state.InventoryRecordCopy("store_0000", testSKU)
	assert.Equal(t, 3, rec.Allocated)
	assert.Equal(t, 3, state.NodeBacklog("store_0000"), "reserved units join the pick queue")

	tracked, ok := state.LookupAllocation(bundle.Allocation.ID)
	require.True(t, ok, "reserved allocations must be tracked for realization")
	assert.Equal(t, order.ID, tracked.OrderID)
}

func TestAllocateOrder_ExpiryFollowsTTL(t *testing.T) {
	cfg := newTestConfig()
	cfg.Routing.ReservationTTLHours = 6
	state := newTestState(cfg)
	order := newTestOrder(1)

	bundle, err := AllocateOrder(order, []AllocationSelection{{
		NodeID: "store_0000",
		Mode:   ModeShipFromStore,
		Lines:  order.Lines,
	}}, testStart, state, cfg)
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(6*time.Hour), bundle.Allocation.ExpiresAt)
}

func TestAllocateOrder_ReroutesOnStaleSelection(t *testing.T) {
	cfg := newTestConfig()
	cfg.Noise.RerouteEnabled = true
	state := newTestState(cfg)
	order := newTestOrder(3)

	// A stale plan pointing at the empty store; the fallback re-quote must
	// find a live node and commit there instead.
	stale := []AllocationSelection{{
		NodeID: "store_0001",
		Mode:   ModeShipFromStore,
		Lines:  order.Lines,
	}}

	bundle, err := AllocateOrder(order, stale, testStart, state, cfg)
	require.NoError(t, err)
	assert.Equal(t, AllocationReserved, bundle.Allocation.Status)
	assert.True(t, bundle.Rerouted)
	assert.Greater(t, bundle.Attempts, 1)
	for _, sel := range bundle.Allocation.Selections {
		assert.NotEqual(t, "store_0001", sel.NodeID)
	}
}

func TestAllocateOrder_FailsWithoutReroute(t *testing.T) {
	cfg := newTestConfig()
	cfg.Noise.RerouteEnabled = false
	state := newTestState(cfg)
	order := newTestOrder(3)

	bundle, err := AllocateOrder(order, []AllocationSelection{{
		NodeID: "store_0001",
		Mode:   ModeShipFromStore,
		Lines:  order.Lines,
	}}, testStart, state, cfg)
	require.NoError(t, err, "contention is data, not an error")
	assert.Equal(t, AllocationFailed, bundle.Allocation.Status)
	assert.Equal(t, 1, bundle.Attempts)

	_, tracked := state.LookupAllocation(bundle.Allocation.ID)
	assert.False(t, tracked, "failed allocations are not tracked")
}

func TestAllocateOrder_FailsWhenNetworkExhausted(t *testing.T) {
	cfg := newTestConfig()
	cfg.Noise.RerouteEnabled = true
	state := newTestState(cfg)
	order := newTestOrder(1000)

	bundle, err := AllocateOrder(order, []AllocationSelection{{
		NodeID: "dc_000",
		Mode:   ModeShipFromDC,
		Lines:  order.Lines,
	}}, testStart, state, cfg)
	require.NoError(t, err)
	assert.Equal(t, AllocationFailed, bundle.Allocation.Status)
}
