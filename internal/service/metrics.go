package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup sources
const (
	LookupMemory     = "memory"
	LookupStore      = "store"
	LookupExtraction = "extraction"
)

// Run outcomes
const (
	OutcomeStopped   = "stopped"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

// Metrics are the service's Prometheus collectors
type Metrics struct {
	Lookups   *prometheus.CounterVec
	Runs      *prometheus.CounterVec
	Steps     prometheus.Histogram
	Coalesced prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casecheck",
			Subsystem: "checklist",
			Name:      "lookups_total",
			Help:      "Checklist requests by the source that answered them",
		}, []string{"source"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casecheck",
			Subsystem: "extraction",
			Name:      "runs_total",
			Help:      "Agent extraction runs by outcome",
		}, []string{"outcome"}),
		Steps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "casecheck",
			Subsystem: "agent",
			Name:      "steps",
			Help:      "Steps taken per extraction run",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		}),
		Coalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "casecheck",
			Name:      "coalesced_requests_total",
			Help:      "Requests that joined an extraction already in flight",
		}),
	}
}
