package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"OptionWatch/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	grades       *prometheus.CounterVec
	observations *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		grades: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionwatch_grades_total",
				Help: "Total number of signal grades issued",
			},
			[]string{"symbol", "grade"},
		),
		observations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionwatch_observations_sent_total",
				Help: "Total number of quote observations sent to the sink",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optionwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optionwatch_last_price",
				Help: "Last recorded underlying price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optionwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordGrade records one issued grade for a symbol.
func (r *Recorder) RecordGrade(symbol string, grade models.SignalGrade) {
	r.grades.WithLabelValues(symbol, string(grade)).Inc()
}

// RecordObservation records a quote observation sent to a sink backend.
func (r *Recorder) RecordObservation(backend, symbol string) {
	r.observations.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last underlying price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
