package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
)

func rampSamples(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i) / float32(n)
	}
	return out
}

func TestMockSourceChunking(t *testing.T) {
	t.Parallel()

	samples := rampSamples(10)
	src := NewMockSource(audiocore.SpeechFormat(), samples, 4)
	require.NoError(t, src.Start())
	defer src.Stop()

	// 10 samples in chunks of 4: 4, 4, 2.
	var got []float32
	var lengths []int
	for {
		buf, err := src.Read()
		require.NoError(t, err)
		if buf == nil {
			break
		}
		lengths = append(lengths, len(buf.Samples))
		got = append(got, buf.Samples...)
	}
	assert.Equal(t, []int{4, 4, 2}, lengths)
	assert.Equal(t, samples, got)
}

func TestMockSourceExhaustion(t *testing.T) {
	t.Parallel()

	src := NewMockSource(audiocore.SpeechFormat(), rampSamples(4), 4)
	require.NoError(t, src.Start())
	defer src.Stop()

	buf, err := src.Read()
	require.NoError(t, err)
	require.NotNil(t, buf)

	// Exhausted: nil forever, no error.
	for i := 0; i < 3; i++ {
		buf, err = src.Read()
		require.NoError(t, err)
		assert.Nil(t, buf)
	}
}

func TestMockSourceLoop(t *testing.T) {
	t.Parallel()

	src := NewMockSource(audiocore.SpeechFormat(), rampSamples(4), 4)
	src.Loop = true
	require.NoError(t, src.Start())
	defer src.Stop()

	for i := 0; i < 5; i++ {
		buf, err := src.Read()
		require.NoError(t, err)
		require.NotNil(t, buf)
		assert.Len(t, buf.Samples, 4)
		assert.Equal(t, uint64(i), buf.Sequence)
	}
}

func TestMockSourceStereoChunkAlignment(t *testing.T) {
	t.Parallel()

	format := audiocore.NewAudioFormat(48000, 2, audiocore.SampleFormatF32)
	src := NewMockSource(format, rampSamples(12), 5)
	require.NoError(t, src.Start())
	defer src.Stop()

	// Chunk size rounds down to a whole frame (4 samples).
	buf, err := src.Read()
	require.NoError(t, err)
	require.NotNil(t, buf)
	assert.Equal(t, 4, len(buf.Samples))
	assert.Zero(t, len(buf.Samples)%int(format.Channels))
}

func TestMockSourceRestartRewinds(t *testing.T) {
	t.Parallel()

	samples := rampSamples(4)
	src := NewMockSource(audiocore.SpeechFormat(), samples, 4)
	require.NoError(t, src.Start())

	buf, err := src.Read()
	require.NoError(t, err)
	require.NotNil(t, buf)
	require.NoError(t, src.Stop())

	require.NoError(t, src.Start())
	defer src.Stop()
	buf, err = src.Read()
	require.NoError(t, err)
	require.NotNil(t, buf)
	assert.Equal(t, samples, buf.Samples)
	assert.WithinDuration(t, time.Now(), buf.Timestamp, time.Second)
}
