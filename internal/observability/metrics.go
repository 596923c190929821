package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SearchCollector bundles Prometheus metrics for the patrol search and
// satisfies search.MetricsRecorder.
type SearchCollector struct {
	gatherer prometheus.Gatherer

	RunsTotal           prometheus.Counter
	RunDetections       prometheus.Histogram
	RunDurations        prometheus.Histogram
	FallbackMovesTotal  prometheus.Counter
	DisplacementRetries prometheus.Histogram

	BatchesTotal     prometheus.Counter
	BatchProbability prometheus.Histogram
	BestProbability  prometheus.Gauge
}

// NewSearchCollector registers search metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil. Metrics
// already registered under the same name are reused.
func NewSearchCollector(reg prometheus.Registerer) (*SearchCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "patrol_runs_total",
		Help: "Total number of completed patrol path runs.",
	}), "patrol_runs_total")
	if err != nil {
		return nil, err
	}

	detections, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "patrol_run_detections",
		Help:    "Intruders detected per patrol path run.",
		Buckets: prometheus.LinearBuckets(0, 2, 16),
	}), "patrol_run_detections")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "patrol_run_duration_seconds",
		Help:    "Wall-clock time to build one patrol path.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "patrol_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	fallbacks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "patrol_fallback_moves_total",
		Help: "Moves committed without any detection because no sampled candidate scored.",
	}), "patrol_fallback_moves_total")
	if err != nil {
		return nil, err
	}

	retries, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "patrol_displacement_attempts",
		Help:    "Largest number of direction draws a single move needed within a run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}), "patrol_displacement_attempts")
	if err != nil {
		return nil, err
	}

	batches, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "patrol_batches_total",
		Help: "Total number of completed search batches.",
	}), "patrol_batches_total")
	if err != nil {
		return nil, err
	}

	batchProb, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "patrol_batch_best_probability",
		Help:    "Detection probability of the best run in each batch.",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	}), "patrol_batch_best_probability")
	if err != nil {
		return nil, err
	}

	best, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "patrol_best_probability",
		Help: "Highest detection probability found by the most recent search.",
	}), "patrol_best_probability")
	if err != nil {
		return nil, err
	}

	return &SearchCollector{
		gatherer:            gatherer,
		RunsTotal:           runs,
		RunDetections:       detections,
		RunDurations:        durations,
		FallbackMovesTotal:  fallbacks,
		DisplacementRetries: retries,
		BatchesTotal:        batches,
		BatchProbability:    batchProb,
		BestProbability:     best,
	}, nil
}

// ObserveRun records one finished patrol run.
func (c *SearchCollector) ObserveRun(detections, fallbackMoves, maxAttempts int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.RunsTotal.Inc()
	c.RunDetections.Observe(float64(detections))
	c.RunDurations.Observe(elapsed.Seconds())
	c.FallbackMovesTotal.Add(float64(fallbackMoves))
	c.DisplacementRetries.Observe(float64(maxAttempts))
}

// ObserveBatch records the best detection probability of a finished batch.
func (c *SearchCollector) ObserveBatch(probability float64) {
	if c == nil {
		return
	}
	c.BatchesTotal.Inc()
	c.BatchProbability.Observe(probability)
}

// SetBestProbability publishes the overall best probability of a search.
func (c *SearchCollector) SetBestProbability(probability float64) {
	if c == nil {
		return
	}
	c.BestProbability.Set(probability)
}

// Handler exposes a ready-to-use /metrics handler. A nil collector serves the
// default registry.
func (c *SearchCollector) Handler() http.Handler {
	var gatherer prometheus.Gatherer
	if c != nil {
		gatherer = c.gatherer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
