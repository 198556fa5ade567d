package metrics

import (
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/prometheus/client_golang/prometheus"
)

// Discovery and import metrics.
var (
	DiscoverySearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_searches_total",
			Help:      "Discovery searches by query type and outcome",
		},
		[]string{"query_type", "outcome"}, // outcome: "ok" / "client_error" / "server_error"
	)

	DiscoveryFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_fallbacks_total",
			Help:      "DSL searches retried as full-text searches",
		},
	)

	ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "File imports by outcome",
		},
		[]string{"outcome"}, // "ok" / "error" / "removed"
	)

	ImportedEntitiesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_entities_total",
			Help:      "Entities written by file imports",
		},
	)
)

func init() {
	prometheus.MustRegister(DiscoverySearchesTotal)
	prometheus.MustRegister(DiscoveryFallbacksTotal)
	prometheus.MustRegister(ImportsTotal)
	prometheus.MustRegister(ImportedEntitiesTotal)
}

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRemoved     = "removed"
	OutcomeClientError = "client_error"
	OutcomeServerError = "server_error"
)

// Recorder implements discovery.Recorder on the package counters.
type Recorder struct{}

// NewRecorder returns a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveSearch counts one search of queryType.
func (Recorder) ObserveSearch(queryType string, err error) {
	DiscoverySearchesTotal.WithLabelValues(queryType, searchOutcome(err)).Inc()
}

// ObserveFallback counts one DSL-to-full-text fallback.
func (Recorder) ObserveFallback() {
	DiscoveryFallbacksTotal.Inc()
}

// ObserveImport counts one file import and the entities it wrote.
func ObserveImport(entities int, err error) {
	if err != nil {
		ImportsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	ImportsTotal.WithLabelValues(OutcomeOK).Inc()
	ImportedEntitiesTotal.Add(float64(entities))
}

// ObserveSourceRemoved counts one import file removal.
func ObserveSourceRemoved() {
	ImportsTotal.WithLabelValues(OutcomeRemoved).Inc()
}

func searchOutcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if discovery.Classify(err) == discovery.ClassClient {
		return OutcomeClientError
	}
	return OutcomeServerError
}
