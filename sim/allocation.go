package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationStatus is the outcome of a reservation attempt.
// String values are serialized by downstream consumers; do not change them.
type AllocationStatus string

const (
	AllocationReserved AllocationStatus = "RESERVED"
	AllocationFailed   AllocationStatus = "FAILED"
)

// NodeCandidate is a (node, mode) pairing produced by shortlisting for a
// single order line. Ephemeral: recomputed on every Quote call.
type NodeCandidate struct {
	NodeID     string
	Mode       FulfillmentMode
	ATP        int     // available-to-promise within the promise window
	ETAHours   float64 // estimated hours from order creation to completion
	DistanceKm float64
}

// AllocationSelection assigns a subset of an order's lines to one node and
// fulfillment mode.
type AllocationSelection struct {
	NodeID string
	Mode   FulfillmentMode
	Lines  []OrderLine
}

// Units returns the total quantity across the selection's lines.
func (s AllocationSelection) Units() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Qty
	}
	return total
}

// CostBreakdown is the per-node cost decomposition of a quote candidate.
// Amounts are exact decimals so ranking is stable across platforms.
type CostBreakdown struct {
	NodeID      string
	Shipping    decimal.Decimal
	Handling    decimal.Decimal
	SLARisk     decimal.Decimal
	Opportunity decimal.Decimal
	Subtotal    decimal.Decimal
}

// DecisionFeatureVector captures the explainability features of one priced
// combination, kept in the quote's decision trail for audit.
type DecisionFeatureVector struct {
	Rank          int
	NodeIDs       []string
	SplitCount    int
	TotalCost     decimal.Decimal
	MaxETAHours   float64
	MaxDistanceKm float64
	MinATP        int
	MeetsSLA      bool
}

// QuoteCandidate is a fully-priced multi-node fulfillment plan. Immutable
// once produced by Quote.
type QuoteCandidate struct {
	Selections []AllocationSelection
	Breakdown  []CostBreakdown
	TotalCost  decimal.Decimal
	Features   DecisionFeatureVector
}

// QuoteBundle is the full output of one Quote call: every surviving
// candidate ranked by non-decreasing total cost, the recommendation
// (the cheapest), and the decision trail over all evaluated combinations.
type QuoteBundle struct {
	OrderID        string
	CreatedAt      time.Time
	Candidates     []QuoteCandidate
	Recommendation *QuoteCandidate
	Trail          []DecisionFeatureVector
}

// Allocation is a committed reservation: a hold on inventory created before
// physical pick confirmation. Created by Allocate; read by Realize and the
// expiry sweep.
type Allocation struct {
	ID         string
	OrderID    string
	Selections []AllocationSelection
	ReservedAt time.Time
	ExpiresAt  time.Time
	Status     AllocationStatus

	// RealizedAt is set once Realize has processed the allocation, so the
	// expiry sweep never releases a hold that was already consumed.
	RealizedAt *time.Time

	// ReleasedAt is set by the expiry sweep when an unrealized reservation
	// passes ExpiresAt and its hold is returned to ATP.
	ReleasedAt *time.Time
}

// AllocationBundle is the full output of one Allocate call.
type AllocationBundle struct {
	Allocation Allocation

	// Attempts counts reservation attempts including fallback reroutes.
	Attempts int

	// Rerouted is true when the committed selection differs from the one
	// originally requested (a fallback candidate won).
	Rerouted bool
}
