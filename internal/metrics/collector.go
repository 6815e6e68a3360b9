// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated timings for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the full pipeline statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	FilesIndexed  int64
	DirsScanned   int64
	ScanErrors    int64
	Scan          *OperationSnapshot
	Flush         *OperationSnapshot
}

// Rate returns indexed records per second since the collector started.
func (s Snapshot) Rate() float64 {
	if s.UptimeSeconds <= 0 {
		return 0
	}
	return float64(s.FilesIndexed) / s.UptimeSeconds
}

// Operation names for the collector.
const (
	OpScan  = "scan"
	OpFlush = "flush"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu           sync.RWMutex
	startTime    time.Time
	filesIndexed int64
	dirsScanned  int64
	scanErrors   int64
	ops          map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// AddFilesIndexed adds to the cumulative count of indexed records.
func (c *Collector) AddFilesIndexed(n int) {
	c.mu.Lock()
	c.filesIndexed += int64(n)
	c.mu.Unlock()
}

// AddDirScanned increments the count of scanned directories.
func (c *Collector) AddDirScanned() {
	c.mu.Lock()
	c.dirsScanned++
	c.mu.Unlock()
}

// AddScanError increments the count of suppressed scan errors. Unreadable
// directories never abort the crawl, so this counter is the only trace
// they leave.
func (c *Collector) AddScanError() {
	c.mu.Lock()
	c.scanErrors++
	c.mu.Unlock()
}

// snapshotOp computes display stats from raw metrics.
// Returns nil if the operation was never recorded.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	minTime := m.MinTime
	if minTime == time.Duration(math.MaxInt64) {
		minTime = 0
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   minTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		FilesIndexed:  c.filesIndexed,
		DirsScanned:   c.dirsScanned,
		ScanErrors:    c.scanErrors,
		Scan:          snapshotOp(c.ops[OpScan]),
		Flush:         snapshotOp(c.ops[OpFlush]),
	}
}
