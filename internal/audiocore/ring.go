package audiocore

import (
	"sync/atomic"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// Ring is a fixed-capacity single-producer single-consumer queue of audio
// buffers. The producer is a driver callback running with real-time
// priority: Push never blocks, never allocates, and drops on overflow
// (stalling the callback would silently lose a larger window at a lower
// layer). Drops are counted and surfaced through Stats.
//
// Exactly one goroutine may call Push and exactly one may call Pop. Len,
// Usage and the counters may be read from any goroutine; they are
// approximate snapshots.
type Ring struct {
	slots    []*AudioBuffer
	capacity uint64

	head atomic.Uint64 // next slot to pop
	tail atomic.Uint64 // next slot to push

	totalPushed  atomic.Uint64
	totalPopped  atomic.Uint64
	totalDropped atomic.Uint64
}

// RingStats is a point-in-time snapshot of ring counters.
type RingStats struct {
	Capacity     int
	Len          int
	Usage        float64
	TotalPushed  uint64
	TotalPopped  uint64
	TotalDropped uint64
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, errors.Newf("ring capacity must be positive, got %d", capacity).
			Component("audiocore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Ring{
		slots:    make([]*AudioBuffer, capacity),
		capacity: uint64(capacity),
	}, nil
}

// Push enqueues a buffer without blocking. On overflow the buffer is
// returned to the caller and the dropped counter is incremented.
func (r *Ring) Push(buf *AudioBuffer) *AudioBuffer {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= r.capacity {
		r.totalDropped.Add(1)
		return buf
	}
	r.slots[tail%r.capacity] = buf
	r.tail.Store(tail + 1)
	r.totalPushed.Add(1)
	return nil
}

// Pop dequeues the oldest buffer, or returns nil if the ring is empty.
func (r *Ring) Pop() *AudioBuffer {
	head := r.head.Load()
	if head == r.tail.Load() {
		return nil
	}
	idx := head % r.capacity
	buf := r.slots[idx]
	r.slots[idx] = nil
	r.head.Store(head + 1)
	r.totalPopped.Add(1)
	return buf
}

// Len returns the approximate number of queued buffers.
func (r *Ring) Len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Capacity returns the fixed slot count.
func (r *Ring) Capacity() int {
	return int(r.capacity)
}

// Usage returns occupancy as a fraction in [0, 1].
func (r *Ring) Usage() float64 {
	return float64(r.Len()) / float64(r.capacity)
}

// IsBackpressure reports whether occupancy meets or exceeds the threshold.
func (r *Ring) IsBackpressure(threshold float64) bool {
	return r.Usage() >= threshold
}

// Dropped returns the number of buffers rejected on overflow.
func (r *Ring) Dropped() uint64 {
	return r.totalDropped.Load()
}

// Stats returns a snapshot of the ring counters.
func (r *Ring) Stats() RingStats {
	return RingStats{
		Capacity:     int(r.capacity),
		Len:          r.Len(),
		Usage:        r.Usage(),
		TotalPushed:  r.totalPushed.Load(),
		TotalPopped:  r.totalPopped.Load(),
		TotalDropped: r.totalDropped.Load(),
	}
}
