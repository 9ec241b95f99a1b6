// internal/utils/metrics.go
package utils

import (
	"sync"
	"sync/atomic"
)

// MetricsCollector tracks pipeline counters and duration histograms.
// Counter names in use: pipeline.analyze.total, pipeline.fallback.basic,
// pipeline.fallback.emergency, llm.retry.total, llm.cache.hit.
type MetricsCollector struct {
	counters   map[string]*Counter
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Counter metric - using atomic operations for thread-safe value updates
type Counter struct {
	name  string
	value int64
}

// Histogram metric (simple implementation tracking count, sum, min, max)
type Histogram struct {
	name  string
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

// NewMetricsCollector creates an empty collector. One instance is built by
// the composition root and shared through the container.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
	}
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string) {
	m.AddCounter(name, 1)
}

// AddCounter adds a value to a counter metric using atomic operations
func (m *MetricsCollector) AddCounter(name string, value int64) {
	// Fast path for existing counters
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if exists {
		atomic.AddInt64(&counter.value, value)
		return
	}

	m.mu.Lock()
	counter, exists = m.counters[name]
	if !exists {
		counter = &Counter{name: name}
		m.counters[name] = counter
	}
	m.mu.Unlock()

	atomic.AddInt64(&counter.value, value)
}

// ObserveHistogram records a duration/size observation
func (m *MetricsCollector) ObserveHistogram(name string, value int64) {
	m.mu.RLock()
	hist, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		hist, exists = m.histograms[name]
		if !exists {
			hist = &Histogram{name: name}
			m.histograms[name] = hist
		}
		m.mu.Unlock()
	}

	hist.mu.Lock()
	defer hist.mu.Unlock()

	if hist.count == 0 || value < hist.min {
		hist.min = value
	}
	if value > hist.max {
		hist.max = value
	}
	hist.count++
	hist.sum += value
}

// HistogramStats is a point-in-time histogram summary
type HistogramStats struct {
	Count int64   `json:"count"`
	Sum   int64   `json:"sum"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Avg   float64 `json:"avg"`
}

// Snapshot returns all metric values for the metrics endpoint
func (m *MetricsCollector) Snapshot() (map[string]int64, map[string]HistogramStats) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, c := range m.counters {
		counters[name] = atomic.LoadInt64(&c.value)
	}

	histograms := make(map[string]HistogramStats, len(m.histograms))
	for name, h := range m.histograms {
		h.mu.Lock()
		stats := HistogramStats{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
		if h.count > 0 {
			stats.Avg = float64(h.sum) / float64(h.count)
		}
		h.mu.Unlock()
		histograms[name] = stats
	}

	return counters, histograms
}
