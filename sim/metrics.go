package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics aggregates engine counters on a private prometheus
// registry, so parallel engines in one process never collide. The host can
// expose the registry however it likes; Summary renders a human-readable
// report for CLI runs.
type EngineMetrics struct {
	registry *prometheus.Registry

	QuotesTotal          prometheus.Counter
	QuotesInfeasible     prometheus.Counter
	ReservationsTotal    prometheus.Counter
	ReservationConflicts prometheus.Counter
	ReroutesTotal        prometheus.Counter
	AllocationsFailed    prometheus.Counter
	PickFailures         prometheus.Counter
	EventsEmitted        prometheus.Counter
	ExpiredReleases      prometheus.Counter
	NoiseApplied         *prometheus.CounterVec
}

// NewEngineMetrics creates and registers the engine's counters.
func NewEngineMetrics() *EngineMetrics {
	m := &EngineMetrics{registry: prometheus.NewRegistry()}

	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fulfillsim",
			Name:      name,
			Help:      help,
		})
		m.registry.MustRegister(c)
		return c
	}

	m.QuotesTotal = counter("quotes_total", "Quote calls issued.")
	m.QuotesInfeasible = counter("quotes_infeasible_total", "Quote calls with no feasible candidates.")
	m.ReservationsTotal = counter("reservations_total", "Reservations committed.")
	m.ReservationConflicts = counter("reservation_conflicts_total", "TryReserve attempts lost to contention or stale data.")
	m.ReroutesTotal = counter("reroutes_total", "Allocations committed via fallback rerouting.")
	m.AllocationsFailed = counter("allocations_failed_total", "Allocations that exhausted every candidate.")
	m.PickFailures = counter("pick_failures_total", "Selections that failed at pick time.")
	m.EventsEmitted = counter("fulfillment_events_total", "Fulfillment lifecycle events emitted.")
	m.ExpiredReleases = counter("reservations_expired_total", "Reservations released by the expiry sweep.")

	m.NoiseApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillsim",
		Name:      "noise_applied_total",
		Help:      "Perturbation noise applications by kind.",
	}, []string{"kind"})
	m.registry.MustRegister(m.NoiseApplied)

	return m
}

// Registry exposes the underlying registry for hosts that scrape it.
func (m *EngineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Summary renders every counter as "name{labels} = value" lines, sorted by
// name, for end-of-run reporting.
func (m *EngineMetrics) Summary() string {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Sprintf("metrics gather failed: %v", err)
	}
	var lines []string
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			name := fam.GetName()
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			if len(labels) > 0 {
				name = fmt.Sprintf("%s{%s}", name, strings.Join(labels, ","))
			}
			lines = append(lines, fmt.Sprintf("%-48s = %.0f", name, metric.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
