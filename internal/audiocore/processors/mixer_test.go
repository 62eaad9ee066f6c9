package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

func mkBuf(samples []float32) *audiocore.AudioBuffer {
	return audiocore.MustBuffer(audiocore.SpeechFormat(), samples, time.Now())
}

func TestMixerInputCountBounds(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 9} {
		_, err := NewMixer(n, MixModeSum)
		require.Error(t, err, "n=%d", n)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	}
	for _, n := range []int{2, 8} {
		_, err := NewMixer(n, MixModeSum)
		assert.NoError(t, err, "n=%d", n)
	}
}

func TestMixerSum(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeSum)
	require.NoError(t, err)

	out, err := m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.1, 0.2, 0.3}),
		mkBuf([]float32{0.3, 0.2, 0.1}),
	})
	require.NoError(t, err)

	for _, s := range out.Samples {
		assert.InDelta(t, 0.4, s, 1e-6)
	}
}

func TestMixerAverage(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(3, MixModeAverage)
	require.NoError(t, err)

	out, err := m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.3}),
		mkBuf([]float32{0.6}),
		mkBuf([]float32{0.9}),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, out.Samples[0], 1e-6)
}

func TestMixerWeightedDefaults(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(4, MixModeWeighted)
	require.NoError(t, err)

	// Default balances are 1/N.
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 0.25, m.InputGain(i), 1e-6)
	}

	out, err := m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.4}),
		mkBuf([]float32{0.4}),
		mkBuf([]float32{0.4}),
		mkBuf([]float32{0.4}),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Samples[0], 1e-6)
}

func TestMixerSetBalance(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeWeighted)
	require.NoError(t, err)

	require.NoError(t, m.SetBalance(0.8))
	assert.InDelta(t, 0.2, m.InputGain(0), 1e-6)
	assert.InDelta(t, 0.8, m.InputGain(1), 1e-6)

	assert.Error(t, m.SetBalance(1.5))

	m3, err := NewMixer(3, MixModeWeighted)
	require.NoError(t, err)
	assert.Error(t, m3.SetBalance(0.5))
}

func TestMixerInputGainValidation(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeWeighted)
	require.NoError(t, err)

	assert.Error(t, m.SetInputGain(-1, 0.5))
	assert.Error(t, m.SetInputGain(2, 0.5))
	assert.Error(t, m.SetInputGain(0, 1.5))
	assert.NoError(t, m.SetInputGain(0, 0.5))
	assert.Zero(t, m.InputGain(7))
}

func TestMixerLimiter(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeSum)
	require.NoError(t, err)

	out, err := m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.9, -0.9}),
		mkBuf([]float32{0.9, -0.9}),
	})
	require.NoError(t, err)
	assert.Equal(t, float32(1), out.Samples[0])
	assert.Equal(t, float32(-1), out.Samples[1])

	m.EnablePeakLimiter(false)
	out, err = m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.9}),
		mkBuf([]float32{0.9}),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.8, out.Samples[0], 1e-6)
}

func TestMixerMasterGain(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeSum)
	require.NoError(t, err)
	require.NoError(t, m.SetMasterGain(0.5))
	assert.Error(t, m.SetMasterGain(2))

	out, err := m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.4}),
		mkBuf([]float32{0.4}),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Samples[0], 1e-6)
}

func TestMixerMinLengthTruncation(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeSum)
	require.NoError(t, err)

	out, err := m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.1, 0.1, 0.1, 0.1}),
		mkBuf([]float32{0.1, 0.1}),
	})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 2)
}

func TestMixerFormatMismatch(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeSum)
	require.NoError(t, err)

	a := audiocore.SilentBuffer(audiocore.SpeechFormat(), time.Millisecond)
	b := audiocore.SilentBuffer(audiocore.CDFormat(), time.Millisecond)
	_, err = m.ProcessMulti([]*audiocore.AudioBuffer{a, b})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFormat))
	assert.Equal(t, uint64(1), m.Stats().Errors)
}

func TestMixerWrongInputCount(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(3, MixModeSum)
	require.NoError(t, err)

	_, err = m.ProcessMulti([]*audiocore.AudioBuffer{mkBuf([]float32{0.1})})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryProcessing))
}

func TestMixerEarliestTimestamp(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeSum)
	require.NoError(t, err)

	early := time.Now().Add(-time.Second)
	late := time.Now()
	a := audiocore.MustBuffer(audiocore.SpeechFormat(), []float32{0.1}, late)
	b := audiocore.MustBuffer(audiocore.SpeechFormat(), []float32{0.1}, early)

	out, err := m.ProcessMulti([]*audiocore.AudioBuffer{a, b})
	require.NoError(t, err)
	assert.Equal(t, early, out.Timestamp)
}

func TestMixerSingleInputProcess(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeSum)
	require.NoError(t, err)
	require.NoError(t, m.SetMasterGain(0.5))

	out, err := m.Process(mkBuf([]float32{0.8, -0.4}))
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Samples[0], 1e-6)
	assert.InDelta(t, -0.2, out.Samples[1], 1e-6)
}

func TestMixerReset(t *testing.T) {
	t.Parallel()

	m, err := NewMixer(2, MixModeAverage)
	require.NoError(t, err)

	_, err = m.ProcessMulti([]*audiocore.AudioBuffer{
		mkBuf([]float32{0.1}),
		mkBuf([]float32{0.1}),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Stats().BuffersProcessed)

	m.Reset()
	assert.Zero(t, m.Stats().BuffersProcessed)
}

func TestMixModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sum", MixModeSum.String())
	assert.Equal(t, "average", MixModeAverage.String())
	assert.Equal(t, "weighted", MixModeWeighted.String())
}
