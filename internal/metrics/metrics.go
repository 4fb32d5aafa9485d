package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that completed normally.
	OutcomeSuccess = "success"
	// OutcomeError labels operations that failed.
	OutcomeError = "error"
	// OutcomeFallback labels queries that were malformed and re-run as a literal search.
	OutcomeFallback = "fallback"
)

var (
	recordsClassifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_classify",
			Name:      "records_classified_total",
			Help:      "Records annotated by the entity matcher, partitioned by match group.",
		},
		[]string{"group"},
	)

	violationFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_classify",
			Name:      "violation_findings_total",
			Help:      "Violation scores computed, partitioned by tag.",
		},
		[]string{"tag"},
	)

	classificationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_classify",
			Name:      "classification_seconds",
			Help:      "Batch classification latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_classify",
			Name:      "queries_total",
			Help:      "Boolean queries evaluated, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	filterSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_classify",
			Name:      "filter_seconds",
			Help:      "Filter pipeline latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	patternsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_classify",
			Name:      "patterns_skipped_total",
			Help:      "Dictionary entries excluded at load time, partitioned by group.",
		},
		[]string{"group"},
	)

	dictionaryReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_classify",
			Name:      "dictionary_reloads_total",
			Help:      "Pattern dictionary reloads, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches mirador-classify collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		recordsClassifiedTotal,
		violationFindingsTotal,
		classificationSeconds,
		queriesTotal,
		filterSeconds,
		patternsSkippedTotal,
		dictionaryReloadsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveMatch counts one entity annotation.
func ObserveMatch(group string) {
	recordsClassifiedTotal.WithLabelValues(group).Inc()
}

// ObserveScore counts one violation annotation.
func ObserveScore(tag string) {
	violationFindingsTotal.WithLabelValues(tag).Inc()
}

// ObserveClassification records a batch duration.
func ObserveClassification(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	classificationSeconds.Observe(duration.Seconds())
}

// ObserveQuery counts a query evaluation outcome.
func ObserveQuery(outcome string) {
	switch outcome {
	case OutcomeError, OutcomeFallback:
	default:
		outcome = OutcomeSuccess
	}
	queriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFilter records a filter pipeline duration.
func ObserveFilter(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	filterSeconds.Observe(duration.Seconds())
}

// ObservePatternSkipped counts a dictionary entry excluded at load.
func ObservePatternSkipped(group string) {
	patternsSkippedTotal.WithLabelValues(group).Inc()
}

// ObserveDictionaryReload counts a reload attempt.
func ObserveDictionaryReload(outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	dictionaryReloadsTotal.WithLabelValues(label).Inc()
}
