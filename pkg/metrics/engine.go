package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records pricing and lifecycle outcomes.
type EngineMetrics struct {
	quotes      prometheus.Counter
	discounts   *prometheus.CounterVec
	clamps      prometheus.Counter
	transitions *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	quotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_quotes_total",
		Help: "Carts and orders priced.",
	})
	discounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_discounts_applied_total",
		Help: "Discounts applied, labeled by promotion type.",
	}, []string{"type"})
	clamps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_discount_clamps_total",
		Help: "Times the discount total was clamped to the subtotal.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transition attempts, labeled by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(quotes, discounts, clamps, transitions)
	return &EngineMetrics{
		quotes:      quotes,
		discounts:   discounts,
		clamps:      clamps,
		transitions: transitions,
	}
}

// IncQuotes counts one priced cart or order.
func (m *EngineMetrics) IncQuotes() {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.Inc()
}

// IncDiscountApplied counts an applied discount by promotion type.
func (m *EngineMetrics) IncDiscountApplied(promotionType string) {
	if m == nil || m.discounts == nil {
		return
	}
	if promotionType == "" {
		promotionType = "unknown"
	}
	m.discounts.WithLabelValues(promotionType).Inc()
}

// IncClamped counts a breakdown whose discounts were clamped.
func (m *EngineMetrics) IncClamped() {
	if m == nil || m.clamps == nil {
		return
	}
	m.clamps.Inc()
}

// IncTransition counts a transition attempt outcome (accepted/rejected).
func (m *EngineMetrics) IncTransition(outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.transitions.WithLabelValues(outcome).Inc()
}
