package audiocore

import "time"

// Source produces audio buffers. Sources are internally single-producer
// (a platform callback thread) to single-consumer (the graph thread); Read
// never blocks.
//
// State machine: Idle -> Active -> Idle, restart permitted. Start on an
// active source fails with a state error; Stop on an idle source is a
// no-op success; Read on an idle source fails with a state error.
type Source interface {
	// Format returns the format of every buffer this source emits.
	Format() AudioFormat
	// Start begins capture or synthesis.
	Start() error
	// Stop ends capture. Idempotent.
	Stop() error
	// Read returns the next captured buffer, or nil if none is ready.
	Read() (*AudioBuffer, error)
	// IsActive reports whether the source is between Start and Stop.
	IsActive() bool
	// Stats returns production counters.
	Stats() SourceStats
	// Name identifies the source for logs and graph diagnostics.
	Name() string
}

// SourceStats counts what a source has produced.
type SourceStats struct {
	BuffersProduced uint64
	SamplesProduced uint64
	Overruns        uint64
	LastActivity    time.Time
}

// Processor transforms one buffer into another. Implementations are pure
// apart from performance counters and any internal accumulation state, and
// must be safe for use from the single graph thread.
type Processor interface {
	// Process consumes one input buffer and produces one output buffer.
	// Accumulating processors may return an empty buffer to preserve
	// timing; empty buffers flow through the graph.
	Process(input *AudioBuffer) (*AudioBuffer, error)
	// OutputFormat maps an input format to the format this processor emits.
	OutputFormat(input AudioFormat) AudioFormat
	// Reset drops all internal accumulation state.
	Reset()
	// Stats returns processing counters.
	Stats() ProcessorStats
	// Name identifies the processor.
	Name() string
}

// MultiInputProcessor is implemented by processors that combine several
// upstream streams per step, such as the mixer. The graph pops one buffer
// from every upstream queue and passes them together.
type MultiInputProcessor interface {
	Processor
	// ProcessMulti consumes one buffer per connected upstream.
	ProcessMulti(inputs []*AudioBuffer) (*AudioBuffer, error)
}

// ProcessorStats counts processor activity.
type ProcessorStats struct {
	BuffersProcessed uint64
	SamplesProcessed uint64
	Errors           uint64
}

// Sink consumes buffers at the tail of the graph. Sinks must tolerate
// empty buffers and treat them as no-ops on the byte stream while still
// counting them.
type Sink interface {
	// Write consumes one buffer.
	Write(buffer *AudioBuffer) error
	// Flush forces buffered output to its destination.
	Flush() error
	// Close finalizes the sink. Idempotent; writes after Close fail.
	Close() error
	// Stats returns consumption counters.
	Stats() SinkStats
	// Name identifies the sink.
	Name() string
}

// SinkStats counts what a sink has consumed.
type SinkStats struct {
	BuffersWritten uint64
	SamplesWritten uint64
	BytesWritten   uint64
}
