package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/processors"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/sinks"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/sources"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// failingSource errors on Start to exercise the startup failure path.
type failingSource struct{}

func (failingSource) Format() audiocore.AudioFormat { return audiocore.SpeechFormat() }
func (failingSource) Start() error {
	return errors.Newf("device unavailable").
		Component("graph_test").
		Category(errors.CategoryDevice).
		Build()
}
func (failingSource) Stop() error                           { return nil }
func (failingSource) Read() (*audiocore.AudioBuffer, error) { return nil, nil }
func (failingSource) IsActive() bool                        { return false }
func (failingSource) Stats() audiocore.SourceStats          { return audiocore.SourceStats{} }
func (failingSource) Name() string                          { return "failingSource" }

// flakySink fails its next failures writes, then accepts.
type flakySink struct {
	failures int
	written  []*audiocore.AudioBuffer
}

func (s *flakySink) Write(buf *audiocore.AudioBuffer) error {
	if s.failures > 0 {
		s.failures--
		return errors.Newf("transient write failure").
			Component("graph_test").
			Category(errors.CategoryIO).
			Build()
	}
	s.written = append(s.written, buf)
	return nil
}
func (s *flakySink) Flush() error { return nil }
func (s *flakySink) Close() error { return nil }
func (s *flakySink) Stats() audiocore.SinkStats {
	return audiocore.SinkStats{BuffersWritten: uint64(len(s.written))}
}
func (s *flakySink) Name() string { return "flakySink" }

func silentChunks(chunks, chunkSize int) []float32 {
	return make([]float32, chunks*chunkSize)
}

func TestGraphStructuralValidation(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	src, err := g.AddSource(sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(4, 160), 160))
	require.NoError(t, err)
	sink, err := g.AddSink(sinks.NewNullSink())
	require.NoError(t, err)

	// Unknown endpoints are rejected.
	err = g.Connect(src, "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Error(t, g.Connect("nope", sink))

	require.NoError(t, g.Connect(src, sink))

	// Duplicate edges are rejected.
	err = g.Connect(src, sink)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Equal(t, 1, g.EdgeCount())

	// Disconnecting a missing edge fails.
	assert.Error(t, g.Disconnect(sink, src))
	require.NoError(t, g.Disconnect(src, sink))
	assert.Zero(t, g.EdgeCount())
}

func TestGraphCycleRejectionRollsBack(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	vol := processors.NewVolumeControl()
	norm, err := processors.NewNormalizer(-3, 5, 16000)
	require.NoError(t, err)

	a, err := g.AddProcessor(vol)
	require.NoError(t, err)
	b, err := g.AddProcessor(norm)
	require.NoError(t, err)

	require.NoError(t, g.Connect(a, b))
	before := g.EdgeCount()

	err = g.Connect(b, a)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Equal(t, before, g.EdgeCount())
}

func TestGraphSelfLoopRejected(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	a, err := g.AddProcessor(processors.NewVolumeControl())
	require.NoError(t, err)

	assert.Error(t, g.Connect(a, a))
	assert.Zero(t, g.EdgeCount())
}

func TestGraphStartValidations(t *testing.T) {
	t.Parallel()

	t.Run("no source", func(t *testing.T) {
		t.Parallel()
		g := New(Config{})
		_, err := g.AddSink(sinks.NewNullSink())
		require.NoError(t, err)
		err = g.Start()
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})

	t.Run("no sink", func(t *testing.T) {
		t.Parallel()
		g := New(Config{})
		_, err := g.AddSource(sources.NewMockSource(audiocore.SpeechFormat(), nil, 160))
		require.NoError(t, err)
		err = g.Start()
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})

	t.Run("unreachable node", func(t *testing.T) {
		t.Parallel()
		g := New(Config{})
		src, err := g.AddSource(sources.NewMockSource(audiocore.SpeechFormat(), nil, 160))
		require.NoError(t, err)
		sink, err := g.AddSink(sinks.NewNullSink())
		require.NoError(t, err)
		_, err = g.AddProcessor(processors.NewVolumeControl()) // dangling
		require.NoError(t, err)
		require.NoError(t, g.Connect(src, sink))

		err = g.Start()
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		assert.Equal(t, StateIdle, g.State())
	})
}

func TestGraphLifecycle(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	mock := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(4, 160), 160)
	src, err := g.AddSource(mock)
	require.NoError(t, err)
	sink, err := g.AddSink(sinks.NewNullSink())
	require.NoError(t, err)
	require.NoError(t, g.Connect(src, sink))

	require.NoError(t, g.Start())
	assert.True(t, g.IsActive())
	assert.True(t, mock.IsActive())

	// Starting an active graph is a no-op success.
	require.NoError(t, g.Start())

	// Structural changes are rejected while active.
	_, err = g.AddSource(sources.NewSilenceSource(audiocore.SpeechFormat(), time.Millisecond))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
	assert.Error(t, g.Connect(src, sink))
	assert.Error(t, g.Disconnect(src, sink))
	assert.Error(t, g.RemoveNode(src))

	require.NoError(t, g.Stop())
	assert.Equal(t, StateIdle, g.State())
	assert.False(t, mock.IsActive())

	// Stopping an idle graph is a no-op.
	require.NoError(t, g.Stop())
}

func TestGraphStartFailureKeepsErrorState(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	good := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(2, 160), 160)
	goodID, err := g.AddSource(good)
	require.NoError(t, err)
	bad, err := g.AddSource(failingSource{})
	require.NoError(t, err)
	sink, err := g.AddSink(sinks.NewNullSink())
	require.NoError(t, err)

	require.NoError(t, g.Connect(goodID, sink))
	require.NoError(t, g.Connect(bad, sink))

	err = g.Start()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDevice))
	assert.Equal(t, StateError, g.State())

	// Stop winds down whatever did start.
	require.NoError(t, g.Stop())
	assert.Equal(t, StateIdle, g.State())
	assert.False(t, good.IsActive())
}

func TestGraphProcessOnceRequiresActive(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	_, err := g.ProcessOnce()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestGraphProcessOnceMovesBuffers(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	mock := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(3, 160), 160)
	src, err := g.AddSource(mock)
	require.NoError(t, err)
	vol := processors.NewVolumeControl()
	proc, err := g.AddProcessor(vol)
	require.NoError(t, err)
	sink := sinks.NewBufferSink(100)
	snk, err := g.AddSink(sink)
	require.NoError(t, err)
	require.NoError(t, g.Connect(src, proc))
	require.NoError(t, g.Connect(proc, snk))
	require.NoError(t, g.Start())
	defer g.Stop()

	// Each pass pulls one chunk through the whole chain.
	for i := 0; i < 3; i++ {
		active, err := g.ProcessOnce()
		require.NoError(t, err)
		assert.True(t, active)
	}
	assert.Equal(t, 3, sink.BufferCount())

	// Source exhausted: nothing moves.
	active, err := g.ProcessOnce()
	require.NoError(t, err)
	assert.False(t, active)
	assert.Zero(t, g.QueueLen(src))
	assert.Zero(t, g.QueueLen(proc))
}

func TestGraphQueueOverflow(t *testing.T) {
	t.Parallel()

	g := New(Config{MaxQueueSize: 2})

	// Source B exhausts after one chunk, so the mixer stalls waiting for
	// it and source A's queue fills up.
	srcA := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(10, 160), 160)
	srcB := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(1, 160), 160)
	a, err := g.AddSource(srcA)
	require.NoError(t, err)
	b, err := g.AddSource(srcB)
	require.NoError(t, err)

	mixer, err := processors.NewMixer(2, processors.MixModeAverage)
	require.NoError(t, err)
	mix, err := g.AddProcessor(mixer)
	require.NoError(t, err)
	snk, err := g.AddSink(sinks.NewNullSink())
	require.NoError(t, err)
	require.NoError(t, g.Connect(a, mix))
	require.NoError(t, g.Connect(b, mix))
	require.NoError(t, g.Connect(mix, snk))
	require.NoError(t, g.Start())
	defer g.Stop()

	var overflow error
	for i := 0; i < 10; i++ {
		if _, err := g.ProcessOnce(); err != nil {
			overflow = err
			break
		}
	}
	require.Error(t, overflow)
	assert.True(t, errors.IsCategory(overflow, errors.CategoryBuffer))

	// Queued buffers stay where they were.
	assert.Equal(t, 2, g.QueueLen(a))

	// Stop clears the queues.
	require.NoError(t, g.Stop())
	assert.Zero(t, g.QueueLen(a))
}

func TestGraphSinkWriteFailureRetainsQueuedBuffers(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	mock := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(2, 160), 160)
	src, err := g.AddSource(mock)
	require.NoError(t, err)
	sink := &flakySink{failures: 1}
	snk, err := g.AddSink(sink)
	require.NoError(t, err)
	require.NoError(t, g.Connect(src, snk))
	require.NoError(t, g.Start())
	defer g.Stop()

	// The first write fails; the unwritten buffer must stay queued.
	_, err = g.ProcessOnce()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryIO))
	assert.Equal(t, 1, g.QueueLen(src))
	assert.Empty(t, sink.written)

	// Next pass drains the retained buffer and the fresh one, in order.
	_, err = g.ProcessOnce()
	require.NoError(t, err)
	assert.Zero(t, g.QueueLen(src))
	require.Len(t, sink.written, 2)
	assert.Equal(t, uint64(0), sink.written[0].Sequence)
	assert.Equal(t, uint64(1), sink.written[1].Sequence)
}

func TestGraphMultiInputWaitsForAllUpstreams(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	srcA := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(2, 160), 160)
	srcB := sources.NewMockSource(audiocore.SpeechFormat(), silentChunks(2, 160), 160)
	a, err := g.AddSource(srcA)
	require.NoError(t, err)
	b, err := g.AddSource(srcB)
	require.NoError(t, err)

	mixer, err := processors.NewMixer(2, processors.MixModeSum)
	require.NoError(t, err)
	mix, err := g.AddProcessor(mixer)
	require.NoError(t, err)
	sink := sinks.NewBufferSink(100)
	snk, err := g.AddSink(sink)
	require.NoError(t, err)
	require.NoError(t, g.Connect(a, mix))
	require.NoError(t, g.Connect(b, mix))
	require.NoError(t, g.Connect(mix, snk))
	require.NoError(t, g.Start())
	defer g.Stop()

	// Both sources produce each pass, so the mixer runs each pass.
	for i := 0; i < 2; i++ {
		active, err := g.ProcessOnce()
		require.NoError(t, err)
		assert.True(t, active)
	}
	assert.Equal(t, 2, sink.BufferCount())
	assert.Equal(t, uint64(2), mixer.Stats().BuffersProcessed)
}

func TestGraphRemoveNodeErasesEdges(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	src, err := g.AddSource(sources.NewMockSource(audiocore.SpeechFormat(), nil, 160))
	require.NoError(t, err)
	proc, err := g.AddProcessor(processors.NewVolumeControl())
	require.NoError(t, err)
	snk, err := g.AddSink(sinks.NewNullSink())
	require.NoError(t, err)
	require.NoError(t, g.Connect(src, proc))
	require.NoError(t, g.Connect(proc, snk))

	require.NoError(t, g.RemoveNode(proc))
	assert.Equal(t, 2, g.NodeCount())
	assert.Zero(t, g.EdgeCount())

	assert.Error(t, g.RemoveNode(proc))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "error", StateError.String())
}
