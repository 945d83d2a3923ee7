package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts marketplace-level outcomes.
type DomainMetrics struct {
	decisions      *prometheus.CounterVec
	cache          *prometheus.CounterVec
	enrichFailures prometheus.Counter
}

// NewDomainMetrics registers the domain counters on reg. A nil reg returns a no-op.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "verification",
		Name:      "decisions_total",
		Help:      "Admin verification decisions by action.",
	}, []string{"action"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Read-model cache lookups by name and result.",
	}, []string{"name", "result"})
	enrich := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inquiries",
		Name:      "enrichment_failures_total",
		Help:      "Sender lookups replaced by a placeholder.",
	})
	reg.MustRegister(decisions, cache, enrich)
	return &DomainMetrics{decisions: decisions, cache: cache, enrichFailures: enrich}
}

// IncDecision counts an approve or reject.
func (d *DomainMetrics) IncDecision(action string) {
	if d == nil || d.decisions == nil {
		return
	}
	d.decisions.WithLabelValues(normalizeLabel(action)).Inc()
}

// ObserveCache records a hit, miss or error for the named cache.
func (d *DomainMetrics) ObserveCache(name, result string) {
	if d == nil || d.cache == nil {
		return
	}
	d.cache.WithLabelValues(normalizeLabel(name), normalizeLabel(result)).Inc()
}

// IncEnrichmentFailure counts a swallowed sender lookup failure.
func (d *DomainMetrics) IncEnrichmentFailure() {
	if d == nil || d.enrichFailures == nil {
		return
	}
	d.enrichFailures.Inc()
}
