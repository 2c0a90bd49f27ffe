package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewEngineMetrics(nil)
	m.IncQuotes()
	m.IncDiscountApplied("percentage")
	m.IncClamped()
	m.IncTransition("accepted")

	var nilMetrics *EngineMetrics
	nilMetrics.IncQuotes()
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.IncQuotes()
	m.IncQuotes()
	m.IncDiscountApplied("percentage")
	m.IncDiscountApplied("")
	m.IncClamped()
	m.IncTransition("rejected")

	if got := testutil.ToFloat64(m.quotes); got != 2 {
		t.Fatalf("expected 2 quotes, got %v", got)
	}
	if got := testutil.ToFloat64(m.discounts.WithLabelValues("percentage")); got != 1 {
		t.Fatalf("expected 1 percentage discount, got %v", got)
	}
	if got := testutil.ToFloat64(m.discounts.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty type to map to unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("expected 1 rejected transition, got %v", got)
	}
}
