package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mezonai/blockarchive/logx"
)

type CycleOutcome string

var (
	CycleBlockCreated   CycleOutcome = "block_created"
	CycleEmptyPool      CycleOutcome = "empty_pool"
	CycleCorruptChain   CycleOutcome = "corrupt_chain_state"
	CycleDuplicateBlock CycleOutcome = "duplicate_block_id"
	CyclePersistFailed  CycleOutcome = "persistence_failure"
	CyclePartialArchive CycleOutcome = "partial_archive_failure"
	CycleOtherError     CycleOutcome = "other"
)

type archivePromMetrics struct {
	upUnixSeconds    prometheus.Gauge
	cycleCount       *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	blockHeight      prometheus.Gauge
	recordsInBlock   prometheus.Histogram
	blockSizeBytes   prometheus.Histogram
	pendingPoolSize  prometheus.Gauge
	archiveRemaining prometheus.Counter
	panicCount       prometheus.Counter
}

func newArchivePromMetrics(reg prometheus.Registerer) *archivePromMetrics {
	factory := promauto.With(reg)
	return &archivePromMetrics{
		upUnixSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockarchive_up_timestamp_unix_seconds",
				Help: "Unix timestamp the process started at",
			},
		),
		cycleCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockarchive_cycle_count",
				Help: "Production cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name: "blockarchive_cycle_duration_seconds",
				Help: "Wall time of one production cycle",
			},
		),
		blockHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockarchive_block_height",
				Help: "Height of the latest stored block",
			},
		),
		recordsInBlock: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "blockarchive_records_in_block",
				Help:    "Number of records in each created block",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		blockSizeBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "blockarchive_block_size_bytes",
				Help:    "Encoded size of each created block",
				Buckets: prometheus.ExponentialBuckets(256, 2, 14),
			},
		),
		pendingPoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockarchive_pending_pool_size",
				Help: "Pending records seen at the start of the last cycle",
			},
		),
		archiveRemaining: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blockarchive_archive_remaining_count",
				Help: "Records left in the pending store by partial archive failures",
			},
		),
		panicCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blockarchive_panic_count",
				Help: "Panics recovered in background goroutines",
			},
		),
	}
}

var (
	metricsOnce  sync.Once
	nodeMetrics  *archivePromMetrics
	metricsMutex sync.RWMutex
)

// InitMetrics registers the metrics on the default registry. Calls after the first
// are no-ops. Until it is called every recorder below does nothing.
func InitMetrics() {
	metricsOnce.Do(func() {
		m := newArchivePromMetrics(prometheus.DefaultRegisterer)
		m.upUnixSeconds.SetToCurrentTime()
		setMetrics(m)
	})
}

// InitMetricsWith registers the metrics on reg, replacing any earlier set. Meant
// for tests that need an isolated registry.
func InitMetricsWith(reg prometheus.Registerer) {
	m := newArchivePromMetrics(reg)
	m.upUnixSeconds.SetToCurrentTime()
	setMetrics(m)
}

func setMetrics(m *archivePromMetrics) {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	nodeMetrics = m
}

func metrics() *archivePromMetrics {
	metricsMutex.RLock()
	defer metricsMutex.RUnlock()
	return nodeMetrics
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func RecordCycle(outcome CycleOutcome, duration time.Duration) {
	m := metrics()
	if m == nil {
		return
	}
	m.cycleCount.With(prometheus.Labels{"outcome": string(outcome)}).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

func SetBlockHeight(height int64) {
	if m := metrics(); m != nil {
		m.blockHeight.Set(float64(height))
	}
}

func RecordRecordsInBlock(count int) {
	if m := metrics(); m != nil {
		m.recordsInBlock.Observe(float64(count))
	}
}

func RecordBlockSizeBytes(sizeBytes int64) {
	if m := metrics(); m != nil {
		m.blockSizeBytes.Observe(float64(sizeBytes))
	}
}

func SetPendingPoolSize(size int) {
	if m := metrics(); m != nil {
		m.pendingPoolSize.Set(float64(size))
	}
}

func AddArchiveRemaining(count int) {
	if m := metrics(); m != nil {
		m.archiveRemaining.Add(float64(count))
	}
}

func IncreasePanicCount() {
	if m := metrics(); m != nil {
		m.panicCount.Inc()
	}
}
