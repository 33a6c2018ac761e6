// Defines the Order value types consumed by the engine. Orders are supplied
// by an external order source and are read-only to every hook.

package sim

import (
	"fmt"
	"time"
)

// OrderLine is one (sku, qty) demand within an order.
type OrderLine struct {
	SKU      string
	Qty      int
	WeightKg float64 // unit weight; shipping cost uses Qty * WeightKg
}

// TotalWeightKg returns the line's total weight.
func (l OrderLine) TotalWeightKg() float64 {
	return float64(l.Qty) * l.WeightKg
}

// OrderDestination is the customer's delivery (or pickup reference) point.
type OrderDestination struct {
	Lat float64
	Lon float64
}

// OrderConstraints bound the placement search for one order.
type OrderConstraints struct {
	// AllowedModes is the set of fulfillment modes the customer accepted.
	AllowedModes map[FulfillmentMode]bool

	// AllowSplit permits different lines to be served from different nodes.
	AllowSplit bool

	// PromiseBy is the service-level deadline for the whole order.
	PromiseBy time.Time

	// MaxNodes caps the number of distinct nodes a split order may touch.
	// Ignored when AllowSplit is false.
	MaxNodes int
}

// Allows reports whether the order accepts the given fulfillment mode.
func (c OrderConstraints) Allows(m FulfillmentMode) bool {
	return c.AllowedModes[m]
}

// Order is an incoming customer order: a set of lines, a destination, and
// placement constraints. Externally supplied; the engine never mutates it.
type Order struct {
	ID          string
	CreatedAt   time.Time
	Destination OrderDestination
	Lines       []OrderLine
	Constraints OrderConstraints
}

// TotalUnits returns the total quantity across all lines.
func (o *Order) TotalUnits() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Qty
	}
	return total
}

func (o *Order) String() string {
	return fmt.Sprintf("Order(%s lines=%d units=%d promise_by=%s split=%v)",
		o.ID, len(o.Lines), o.TotalUnits(),
		o.Constraints.PromiseBy.Format(time.RFC3339), o.Constraints.AllowSplit)
}
