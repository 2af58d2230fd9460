package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	predictions  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	trainLoss    *prometheus.GaugeVec
	trainAcc     *prometheus.GaugeVec
	trainEpoch   prometheus.Gauge
	observations *prometheus.CounterVec
}

var (
	recorderOnce sync.Once
	recorder     *Recorder
)

// New returns the process-wide Prometheus recorder. Collectors register
// with the default registry once.
func New() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			predictions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pricesignal_predictions_total",
					Help: "Predictions served by symbol, interval and signal",
				},
				[]string{"symbol", "interval", "signal"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pricesignal_errors_total",
					Help: "Total number of errors encountered",
				},
				[]string{"type"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pricesignal_operation_duration_seconds",
					Help:    "Duration of operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			trainLoss: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "pricesignal_training_loss",
					Help: "Cross-entropy of the last finished epoch",
				},
				[]string{"split"},
			),
			trainAcc: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "pricesignal_training_accuracy",
					Help: "Accuracy of the last finished epoch",
				},
				[]string{"split"},
			),
			trainEpoch: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "pricesignal_training_epoch",
				Help: "Last finished training epoch",
			}),
			observations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pricesignal_observations_ingested_total",
					Help: "Observations stored from the ingest stream",
				},
				[]string{"symbol"},
			),
		}
	})
	return recorder
}

func (r *Recorder) RecordPrediction(symbol, interval, signal string) {
	r.predictions.WithLabelValues(symbol, interval, signal).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordTrainingEpoch(epoch int, loss, accuracy, valLoss, valAccuracy float64) {
	r.trainEpoch.Set(float64(epoch))
	r.trainLoss.WithLabelValues("train").Set(loss)
	r.trainAcc.WithLabelValues("train").Set(accuracy)
	r.trainLoss.WithLabelValues("validation").Set(valLoss)
	r.trainAcc.WithLabelValues("validation").Set(valAccuracy)
}

func (r *Recorder) RecordObservations(symbol string, n int) {
	r.observations.WithLabelValues(symbol).Add(float64(n))
}

// Nop discards every measurement. Used by the CLIs and tests.
type Nop struct{}

func (Nop) RecordPrediction(string, string, string)                     {}
func (Nop) RecordError(string)                                          {}
func (Nop) RecordLatency(string, float64)                               {}
func (Nop) RecordTrainingEpoch(int, float64, float64, float64, float64) {}
func (Nop) RecordObservations(string, int)                              {}
