package processors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBConversions(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, DBToLinear(0), 1e-6)
	assert.InDelta(t, 0.5011872, DBToLinear(-6), 1e-6)
	assert.InDelta(t, 2.0, DBToLinear(6.0206), 1e-4)

	assert.InDelta(t, 0.0, LinearToDB(1.0), 1e-9)
	assert.InDelta(t, -6.0, LinearToDB(float64(DBToLinear(-6))), 1e-4)
	assert.True(t, math.IsInf(LinearToDB(0), -1))
	assert.True(t, math.IsInf(LinearToDB(-1), -1))
}

func TestVolumeUnityDefault(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	assert.Equal(t, float32(1), v.Gain())
	assert.False(t, v.IsRamping())

	in := mkBuf([]float32{0.1, -0.2, 0.3})
	out, err := v.Process(in)
	require.NoError(t, err)
	assert.Equal(t, in.Samples, out.Samples)
	assert.Equal(t, in.Timestamp, out.Timestamp)
}

func TestVolumeSetGain(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.SetGain(0.5))
	assert.Error(t, v.SetGain(-0.1))

	out, err := v.Process(mkBuf([]float32{0.8}))
	require.NoError(t, err)
	assert.InDelta(t, 0.4, out.Samples[0], 1e-6)
}

func TestVolumeSetGainDB(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.SetGainDB(-20))
	assert.InDelta(t, 0.1, v.Gain(), 1e-6)
}

func TestVolumeRampLaw(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.SetGain(0))
	require.NoError(t, v.RampToGain(1.0, 4))
	assert.True(t, v.IsRamping())

	in := mkBuf([]float32{1, 1, 1, 1, 1, 1})
	out, err := v.Process(in)
	require.NoError(t, err)

	// Gain at sample i is consumed/total of the way from 0 to 1; after
	// the ramp completes the target holds.
	want := []float32{0, 0.25, 0.5, 0.75, 1, 1}
	for i := range want {
		assert.InDelta(t, want[i], out.Samples[i], 1e-6, "sample %d", i)
	}
	assert.False(t, v.IsRamping())
	assert.Equal(t, float32(1), v.Gain())
}

func TestVolumeRampSpansBuffers(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.RampToGain(0, 4))

	out, err := v.Process(mkBuf([]float32{1, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.Samples[0], 1e-6)
	assert.InDelta(t, 0.75, out.Samples[1], 1e-6)
	assert.True(t, v.IsRamping())

	out, err = v.Process(mkBuf([]float32{1, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Samples[0], 1e-6)
	assert.InDelta(t, 0.25, out.Samples[1], 1e-6)
	assert.False(t, v.IsRamping())
}

func TestVolumeSetGainCancelsRamp(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.RampToGain(0, 1000))
	require.True(t, v.IsRamping())

	require.NoError(t, v.SetGain(0.3))
	assert.False(t, v.IsRamping())

	out, err := v.Process(mkBuf([]float32{1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.3, out.Samples[0], 1e-6)
}

func TestVolumeRetargetMidRampStartsFromEffectiveGain(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.SetGain(0))
	require.NoError(t, v.RampToGain(1, 4))

	// Two samples consumed: the ramp is halfway, effective gain 0.5.
	out, err := v.Process(mkBuf([]float32{1, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out.Samples[0], 1e-6)
	assert.InDelta(t, 0.25, out.Samples[1], 1e-6)

	// The new ramp must descend from 0.5, not from the stale origin 0.
	require.NoError(t, v.RampToGain(0, 2))
	out, err = v.Process(mkBuf([]float32{1, 1, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Samples[0], 1e-6)
	assert.InDelta(t, 0.25, out.Samples[1], 1e-6)
	assert.InDelta(t, 0.0, out.Samples[2], 1e-6)
	assert.False(t, v.IsRamping())
}

func TestVolumeZeroSampleRampIsImmediate(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.RampToGain(0.5, 0))
	assert.False(t, v.IsRamping())
	assert.Equal(t, float32(0.5), v.Gain())

	assert.Error(t, v.RampToGain(-1, 10))
}

func TestVolumeReset(t *testing.T) {
	t.Parallel()

	v := NewVolumeControl()
	require.NoError(t, v.SetGain(0.2))
	_, err := v.Process(mkBuf([]float32{1}))
	require.NoError(t, err)

	v.Reset()
	assert.Equal(t, float32(1), v.Gain())
	assert.Zero(t, v.Stats().BuffersProcessed)
}
