package audiocore

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// HealthMonitor tracks capture health: chunk throughput, drops, overruns,
// and a bounded window of processing latency samples. Counters are atomic
// so the hot path never takes the latency mutex.
type HealthMonitor struct {
	droppedChunks atomic.Uint64
	overruns      atomic.Uint64
	totalChunks   atomic.Uint64

	mu                sync.Mutex
	latencies         []time.Duration
	maxLatencySamples int

	startTime time.Time
}

// HealthStats is a coherent snapshot of the monitor.
type HealthStats struct {
	DroppedChunks uint64
	Overruns      uint64
	TotalChunks   uint64
	DropRate      float64 // percent
	AvgLatency    time.Duration
	MinLatency    time.Duration
	MaxLatency    time.Duration
	Throughput    float64 // chunks per second
	Uptime        time.Duration
}

// NewHealthMonitor creates a monitor retaining up to maxLatencySamples
// latency observations, oldest evicted first.
func NewHealthMonitor(maxLatencySamples int) *HealthMonitor {
	if maxLatencySamples <= 0 {
		maxLatencySamples = 1000
	}
	return &HealthMonitor{
		latencies:         make([]time.Duration, 0, maxLatencySamples),
		maxLatencySamples: maxLatencySamples,
		startTime:         time.Now(),
	}
}

// RecordChunk counts one successfully processed chunk.
func (hm *HealthMonitor) RecordChunk() {
	hm.totalChunks.Add(1)
}

// RecordDrop counts one dropped chunk.
func (hm *HealthMonitor) RecordDrop() {
	hm.droppedChunks.Add(1)
}

// RecordOverrun counts one ring overrun.
func (hm *HealthMonitor) RecordOverrun() {
	hm.overruns.Add(1)
}

// RecordLatency appends a latency observation, evicting the oldest when the
// window is full.
func (hm *HealthMonitor) RecordLatency(d time.Duration) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if len(hm.latencies) >= hm.maxLatencySamples {
		hm.latencies = hm.latencies[1:]
	}
	hm.latencies = append(hm.latencies, d)
}

// DropRate returns dropped/(total+dropped) as a percentage.
func (hm *HealthMonitor) DropRate() float64 {
	dropped := hm.droppedChunks.Load()
	total := hm.totalChunks.Load()
	denom := total + dropped
	if denom == 0 {
		return 0
	}
	return float64(dropped) / float64(denom) * 100.0
}

// Percentile returns the p-th latency percentile (p in [0, 1]) over the
// retained window using the nearest-rank index floor((N-1)*p).
func (hm *HealthMonitor) Percentile(p float64) time.Duration {
	hm.mu.Lock()
	sorted := make([]time.Duration, len(hm.latencies))
	copy(sorted, hm.latencies)
	hm.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// Uptime returns the time since the monitor was created.
func (hm *HealthMonitor) Uptime() time.Duration {
	return time.Since(hm.startTime)
}

// Throughput returns processed chunks per second of uptime.
func (hm *HealthMonitor) Throughput() float64 {
	secs := hm.Uptime().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(hm.totalChunks.Load()) / secs
}

// IsHealthy reports whether the drop rate and average latency are both
// within the given bounds.
func (hm *HealthMonitor) IsHealthy(maxDropRate float64, maxAvgLatency time.Duration) bool {
	if hm.DropRate() > maxDropRate {
		return false
	}
	stats := hm.Snapshot()
	return stats.AvgLatency <= maxAvgLatency
}

// Snapshot returns all derived statistics in one coherent read.
func (hm *HealthMonitor) Snapshot() HealthStats {
	hm.mu.Lock()
	var sum, minL, maxL time.Duration
	for i, d := range hm.latencies {
		sum += d
		if i == 0 || d < minL {
			minL = d
		}
		if d > maxL {
			maxL = d
		}
	}
	count := len(hm.latencies)
	hm.mu.Unlock()

	var avg time.Duration
	if count > 0 {
		avg = sum / time.Duration(count)
	}

	return HealthStats{
		DroppedChunks: hm.droppedChunks.Load(),
		Overruns:      hm.overruns.Load(),
		TotalChunks:   hm.totalChunks.Load(),
		DropRate:      hm.DropRate(),
		AvgLatency:    avg,
		MinLatency:    minL,
		MaxLatency:    maxL,
		Throughput:    hm.Throughput(),
		Uptime:        hm.Uptime(),
	}
}
