package domain

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	dispatchedRequestsCount prometheus.Counter
	retriesCount            prometheus.Counter
	processedUnitsCount     prometheus.Counter
	failedUnitsCount        prometheus.Counter
	recordedBlocksCount     prometheus.Counter
	checkpointsCount        prometheus.Counter
	checkpointFailuresCount prometheus.Counter
	uniqueProducersGauge    prometheus.Gauge
	cursorPositionGauge     prometheus.Gauge
	fetchDuration           prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := Metrics{
		// request scheduling
		dispatchedRequestsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_dispatched_requests_count", namespace),
			Help: "The total number of provider requests sent",
		}),
		retriesCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_retries_count", namespace),
			Help: "The total number of retried provider requests",
		}),
		fetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_fetch_duration_seconds", namespace),
			Help:    "Duration of single provider requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		// scan progress
		processedUnitsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_units_count", namespace),
			Help: "The total number of processed work units",
		}),
		failedUnitsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_failed_units_count", namespace),
			Help: "The total number of work units that failed after retries",
		}),
		recordedBlocksCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_recorded_blocks_count", namespace),
			Help: "The total number of blocks attributed to a producer",
		}),
		uniqueProducersGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_unique_producers", namespace),
			Help: "The number of distinct producers seen so far",
		}),
		cursorPositionGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_cursor_position", namespace),
			Help: "The current cursor position in its native unit (height, slot or page offset)",
		}),
		// persistence
		checkpointsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_checkpoints_count", namespace),
			Help: "The total number of persisted checkpoints",
		}),
		checkpointFailuresCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_checkpoint_failures_count", namespace),
			Help: "The total number of failed checkpoint writes",
		}),
	}
	return &m
}

func (metrics *Metrics) IncDispatchedRequests() {
	metrics.dispatchedRequestsCount.Inc()
}

func (metrics *Metrics) IncRetries() {
	metrics.retriesCount.Inc()
}

func (metrics *Metrics) ObserveFetchDuration(d time.Duration) {
	metrics.fetchDuration.Observe(d.Seconds())
}

func (metrics *Metrics) AddProcessedUnits(count int) {
	metrics.processedUnitsCount.Add(float64(count))
}

func (metrics *Metrics) AddFailedUnits(count int) {
	metrics.failedUnitsCount.Add(float64(count))
}

func (metrics *Metrics) AddRecordedBlocks(count uint64) {
	metrics.recordedBlocksCount.Add(float64(count))
}

func (metrics *Metrics) SetUniqueProducers(count int) {
	metrics.uniqueProducersGauge.Set(float64(count))
}

func (metrics *Metrics) SetCursorPosition(position uint64) {
	metrics.cursorPositionGauge.Set(float64(position))
}

func (metrics *Metrics) IncCheckpoints() {
	metrics.checkpointsCount.Inc()
}

func (metrics *Metrics) IncCheckpointFailures() {
	metrics.checkpointFailuresCount.Inc()
}
