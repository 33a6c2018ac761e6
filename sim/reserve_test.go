package sim

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryReserve_CommitsHold(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	ok := TryReserve([]AllocationSelection{{
		NodeID: "store_0000",
		Mode:   ModeShipFromStore,
		Lines:  []OrderLine{{SKU: testSKU, Qty: 3}},
	}}, state)
	require.True(t, ok)

	rec, _ := state.InventoryRecordCopy("store_0000", testSKU)
	assert.Equal(t, 20, rec.OnHandTrue, "reservation is a hold, not a sale")
	assert.Equal(t, 3, rec.Allocated)
}

func TestTryReserve_RespectsSafetyStock(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	// store_0000: 20 on hand, safety stock 2 -> at most 18 reservable
	ok := TryReserve([]AllocationSelection{{
		NodeID: "store_0000",
		Lines:  []OrderLine{{SKU: testSKU, Qty: 19}},
	}}, state)
	assert.False(t, ok)

	ok = TryReserve([]AllocationSelection{{
		NodeID: "store_0000",
		Lines:  []OrderLine{{SKU: testSKU, Qty: 18}},
	}}, state)
	assert.True(t, ok)
}

func TestTryReserve_AllOrNothing(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	// Second selection is infeasible (store_0001 is empty); the feasible
	// first selection must not be committed either.
	ok := TryReserve([]AllocationSelection{
		{NodeID: "store_0000", Lines: []OrderLine{{SKU: testSKU, Qty: 2}}},
		{NodeID: "store_0001", Lines: []OrderLine{{SKU: testSKU, Qty: 1}}},
	}, state)
	require.False(t, ok)

	rec, _ := state.InventoryRecordCopy("store_0000", testSKU)
	assert.Equal(t, 0, rec.Allocated, "failed reservation must leave no partial commit")
}

func TestTryReserve_AggregatesDemandPerRow(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	// Two lines of 10 each against 18 free: individually fine, jointly not.
	ok := TryReserve([]AllocationSelection{{
		NodeID: "store_0000",
		Lines: []OrderLine{
			{SKU: testSKU, Qty: 10},
			{SKU: testSKU, Qty: 10},
		},
	}}, state)
	assert.False(t, ok, "per-row demand must be summed before the feasibility check")
}

func TestTryReserve_UnknownRowFailsCleanly(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	ok := TryReserve([]AllocationSelection{{
		NodeID: "store_0000",
		Lines:  []OrderLine{{SKU: "SKU-99999", Qty: 1}},
	}}, state)
	assert.False(t, ok)
}

func TestTryReserve_ConcurrentConservation(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)

	// 64 workers race for 3 units each out of 300 (safety stock 0):
	// exactly 100 reservations can win, and allocated never exceeds
	// on-hand no matter the interleaving.
	const workers = 64
	const rounds = 4

	var wg sync.WaitGroup
	wins := make(chan int, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			won := 0
			for r := 0; r < rounds; r++ {
				sel := []AllocationSelection{{
					NodeID: "dc_000",
					Lines:  []OrderLine{{SKU: testSKU, Qty: 3}},
				}}
				if TryReserve(sel, state) {
					won++
				}
			}
			wins <- won
		}(w)
	}
	wg.Wait()
	close(wins)

	total := 0
	for w := range wins {
		total += w
	}
	require.Equal(t, 100, total, "exactly floor(300/3) reservations can win")

	rec, _ := state.InventoryRecordCopy("dc_000", testSKU)
	assert.Equal(t, 300, rec.Allocated)
	assert.LessOrEqual(t, rec.Allocated, rec.OnHandTrue)
}

func TestTryReserve_ConcurrentMultiRowNoDeadlock(t *testing.T) {
	cfg := newTestConfig()
	state := newTestState(cfg)
	for i := 2; i <= 4; i++ {
		state.SeedInventory("dc_000", fmt.Sprintf("SKU-%05d", i), 1000, 0, testStart)
		state.SeedInventory("store_0000", fmt.Sprintf("SKU-%05d", i), 1000, 0, testStart)
	}

	// Workers touch overlapping row sets in opposite nominal orders; the
	// sorted-key lock acquisition must prevent deadlock.
	var wg sync.WaitGroup
	for w := 0; w < 32; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for r := 0; r < 20; r++ {
				var sels []AllocationSelection
				if id%2 == 0 {
					sels = []AllocationSelection{
						{NodeID: "dc_000", Lines: []OrderLine{{SKU: "SKU-00002", Qty: 1}}},
						{NodeID: "store_0000", Lines: []OrderLine{{SKU: "SKU-00004", Qty: 1}}},
					}
				} else {
					sels = []AllocationSelection{
						{NodeID: "store_0000", Lines: []OrderLine{{SKU: "SKU-00004", Qty: 1}}},
						{NodeID: "dc_000", Lines: []OrderLine{{SKU: "SKU-00002", Qty: 1}}},
					}
				}
				TryReserve(sels, state)
			}
		}(w)
	}
	wg.Wait()

	dc, _ := state.InventoryRecordCopy("dc_000", "SKU-00002")
	st, _ := state.InventoryRecordCopy("store_0000", "SKU-00004")
	assert.Equal(t, dc.Allocated, st.Allocated, "every commit touches both rows equally")
	assert.Equal(t, 32*20, dc.Allocated)
}
