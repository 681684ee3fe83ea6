// Package metrics provides performance tracking and observability for
// datamatrix using Prometheus metrics. It offers collectors for paging
// activity: how often columns move between memory and page files, how many
// bytes move, and how much column data is currently resident.
//
// # Basic Usage
//
//	// Record a column paged out under memory pressure
//	metrics.ColumnUnloads.WithLabelValues("pressure").Inc()
//	metrics.PagedOutBytes.Add(float64(col.SizeBytes()))
//
//	// Track touch latency
//	timer := metrics.NewTimer("touch")
//	pager.Touch(ticket)
//	metrics.TouchLatency.Observe(float64(timer.Stop().Nanoseconds()))
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., total loads)
// Gauge: Values that can go up or down (e.g., resident bytes)
// Histogram: Distribution of values (e.g., touch latency)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ColumnLoads counts columns paged into memory.
	// Labels: trigger (construct/touch/manual)
	//
	// Example:
	//	metrics.ColumnLoads.WithLabelValues("touch").Inc()
	ColumnLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamatrix_column_loads_total",
			Help: "Total number of columns paged into memory",
		},
		[]string{"trigger"},
	)

	// ColumnUnloads counts columns paged out to their page files.
	// Labels: trigger (construct/pressure/manual)
	ColumnUnloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamatrix_column_unloads_total",
			Help: "Total number of columns paged out to page files",
		},
		[]string{"trigger"},
	)

	// PagedInBytes counts bytes copied from page files into memory.
	PagedInBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datamatrix_paged_in_bytes_total",
			Help: "Total bytes copied from page files into memory",
		},
	)

	// PagedOutBytes counts bytes copied from memory into page files.
	PagedOutBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datamatrix_paged_out_bytes_total",
			Help: "Total bytes copied from memory into page files",
		},
	)

	// ColumnsLive tracks columns currently registered with the pager.
	ColumnsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datamatrix_columns_live",
			Help: "Number of columns currently registered with the pager",
		},
	)

	// ResidentBytes tracks the total size of columns currently held in memory.
	ResidentBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datamatrix_resident_bytes",
			Help: "Total bytes of column data currently held in memory",
		},
	)

	// TouchLatency tracks the distribution of pager touch latencies in
	// nanoseconds, including any page-in/page-out work the touch triggered.
	TouchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "datamatrix_touch_latency_nanoseconds",
			Help: "Pager touch latency in nanoseconds",
			Buckets: []float64{
				100,    // 100ns - registry bookkeeping only
				1000,   // 1μs - small walks
				10000,  // 10μs - long walks
				100000, // 100μs - small page transfers
				1e6,    // 1ms - medium page transfers
				1e7,    // 10ms
				1e8,    // 100ms - large page transfers
				1e9,    // 1s
			},
		},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
//
// Example:
//
//	timer := metrics.NewTimer("page_in")
//	dense, err := storage.Convert(buf, storage.KindDense, dir)
//	duration := timer.Stop()
//	logger.Debug("paged in", zap.Duration("duration", duration))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer and returns the elapsed duration since creation.
// The timer can be stopped multiple times, each returning the total
// elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	return duration
}
