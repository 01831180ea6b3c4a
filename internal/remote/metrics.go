package remote

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for backend traffic. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	FetchAttempts *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	LoadCycles    *prometheus.CounterVec
	Mutations     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fruity",
			Name:      "fetch_attempts_total",
			Help:      "Log collection GET attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fruity",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of log collection GET attempts, including cold starts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		LoadCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fruity",
			Name:      "load_cycles_total",
			Help:      "Completed load cycles by final state.",
		}, []string{"result"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fruity",
			Name:      "mutations_total",
			Help:      "Create/delete requests by result.",
		}, []string{"op", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.FetchAttempts, m.FetchDuration, m.LoadCycles, m.Mutations)
	}
	return m
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var se *StatusError
	if errors.As(err, &se) {
		return "http_error"
	}
	return "network_error"
}

func (m *Metrics) observeFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) observeCycle(state State) {
	if m == nil {
		return
	}
	m.LoadCycles.WithLabelValues(state.String()).Inc()
}

func (m *Metrics) observeMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Mutations.WithLabelValues(op, result).Inc()
}
