package sim

import (
	"container/heap"
	"time"
)

// FulfillmentEventType is one step in an allocation's physical lifecycle.
// String values are serialized by downstream consumers; do not change them.
//
// Reachable machine:
//
//	RESERVED → PICK_CONFIRMED | PICK_FAILED
//	PICK_CONFIRMED → SHIPPED → DELIVERED          (shipping modes)
//	PICK_CONFIRMED → READY_FOR_PICKUP → PICKED_UP (pickup modes)
//
// NO_SHOW and REROUTED are reserved taxonomy values for future extension
// and are never emitted by Realize.
type FulfillmentEventType string

const (
	EventReserved       FulfillmentEventType = "RESERVED"
	EventPickConfirmed  FulfillmentEventType = "PICK_CONFIRMED"
	EventPickFailed     FulfillmentEventType = "PICK_FAILED"
	EventShipped        FulfillmentEventType = "SHIPPED"
	EventDelivered      FulfillmentEventType = "DELIVERED"
	EventReadyForPickup FulfillmentEventType = "READY_FOR_PICKUP"
	EventPickedUp       FulfillmentEventType = "PICKED_UP"
	EventNoShow         FulfillmentEventType = "NO_SHOW"
	EventRerouted       FulfillmentEventType = "REROUTED"
)

// Terminal reports whether no further event may follow this one within a
// selection's chain.
func (t FulfillmentEventType) Terminal() bool {
	switch t {
	case EventPickFailed, EventDelivered, EventPickedUp, EventNoShow:
		return true
	}
	return false
}

// FulfillmentEvent is one timestamped step of an allocation's physical
// lifecycle. Append-only output of Realize.
type FulfillmentEvent struct {
	AllocationID string
	OrderID      string
	NodeID       string
	Mode         FulfillmentMode
	SKUs         []string
	Type         FulfillmentEventType
	At           time.Time
}

// EventTime returns the event's timestamp. Satisfies the EventTimed
// capability used by Perturb.
func (e *FulfillmentEvent) EventTime() time.Time { return e.At }

// SetEventTime overwrites the event's timestamp (noise injection only).
func (e *FulfillmentEvent) SetEventTime(t time.Time) { e.At = t }

// EventTimeline implements heap.Interface and orders fulfillment events by
// timestamp. Realize pushes each selection's event chain onto a timeline and
// drains it to return one chronologically merged stream per allocation.
type EventTimeline []*FulfillmentEvent

func (tl EventTimeline) Len() int           { return len(tl) }
func (tl EventTimeline) Less(i, j int) bool { return tl[i].At.Before(tl[j].At) }
func (tl EventTimeline) Swap(i, j int)      { tl[i], tl[j] = tl[j], tl[i] }

func (tl *EventTimeline) Push(x any) {
	*tl = append(*tl, x.(*FulfillmentEvent))
}

func (tl *EventTimeline) Pop() any {
	old := *tl
	n := len(old)
	item := old[n-1]
	*tl = old[0 : n-1]
	return item
}

// Drain pops every event in timestamp order.
func (tl *EventTimeline) Drain() []*FulfillmentEvent {
	out := make([]*FulfillmentEvent, 0, tl.Len())
	for tl.Len() > 0 {
		out = append(out, heap.Pop(tl).(*FulfillmentEvent))
	}
	return out
}
