package audiocore

import (
	"sync"
)

// BufferPool hands out pre-allocated float32 vectors of a fixed nominal
// length so steady-state capture does not allocate. Acquire and Release
// hold the mutex only for the free-list swap, short enough for the capture
// callback.
type BufferPool struct {
	mu         sync.Mutex
	free       [][]float32
	bufferSize int
	maxSize    int

	hits   uint64
	misses uint64
}

// PoolStats is a snapshot of pool performance counters.
type PoolStats struct {
	BufferSize int
	FreeCount  int
	MaxSize    int
	Hits       uint64
	Misses     uint64
	HitRate    float64
}

// NewBufferPool creates a pool of vectors of bufferSize samples, retaining
// at most maxPoolSize free vectors. prealloc vectors are allocated up front.
func NewBufferPool(bufferSize, maxPoolSize, prealloc int) *BufferPool {
	if prealloc > maxPoolSize {
		prealloc = maxPoolSize
	}
	p := &BufferPool{
		free:       make([][]float32, 0, maxPoolSize),
		bufferSize: bufferSize,
		maxSize:    maxPoolSize,
	}
	for i := 0; i < prealloc; i++ {
		p.free = append(p.free, make([]float32, bufferSize))
	}
	return p
}

// Acquire returns a zeroed vector of the nominal size, reusing a pooled one
// when available.
func (p *BufferPool) Acquire() []float32 {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		p.hits++
		p.mu.Unlock()

		buf = buf[:cap(buf)]
		if len(buf) != p.bufferSize {
			buf = make([]float32, p.bufferSize)
		} else {
			clear(buf)
		}
		return buf
	}
	p.misses++
	p.mu.Unlock()
	return make([]float32, p.bufferSize)
}

// Release returns a vector to the pool. Vectors beyond maxSize or of a
// foreign capacity are dropped for the garbage collector.
func (p *BufferPool) Release(buf []float32) {
	if cap(buf) < p.bufferSize {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.maxSize {
		return
	}
	p.free = append(p.free, buf[:p.bufferSize])
}

// Stats returns hit/miss counters and the current free count.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.hits + p.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(p.hits) / float64(total)
	}
	return PoolStats{
		BufferSize: p.bufferSize,
		FreeCount:  len(p.free),
		MaxSize:    p.maxSize,
		Hits:       p.hits,
		Misses:     p.misses,
		HitRate:    hitRate,
	}
}
