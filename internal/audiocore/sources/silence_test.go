package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

func TestSilenceSourceLifecycle(t *testing.T) {
	t.Parallel()

	src := NewSilenceSource(audiocore.SpeechFormat(), 10*time.Millisecond)
	assert.False(t, src.IsActive())

	require.NoError(t, src.Start())
	assert.True(t, src.IsActive())

	// Starting an active source is a state error.
	err := src.Start()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))

	// Stop is idempotent.
	require.NoError(t, src.Stop())
	require.NoError(t, src.Stop())
	assert.False(t, src.IsActive())
}

func TestSilenceSourceReadWhenIdle(t *testing.T) {
	t.Parallel()

	src := NewSilenceSource(audiocore.SpeechFormat(), 10*time.Millisecond)
	_, err := src.Read()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestSilenceSourceCadence(t *testing.T) {
	t.Parallel()

	format := audiocore.SpeechFormat()
	src := NewSilenceSource(format, 20*time.Millisecond)
	require.NoError(t, src.Start())
	defer src.Stop()

	// First read produces immediately.
	buf, err := src.Read()
	require.NoError(t, err)
	require.NotNil(t, buf)
	assert.Equal(t, 320, len(buf.Samples)) // 20ms at 16kHz mono
	assert.True(t, buf.IsSilent(0))
	assert.Equal(t, uint64(0), buf.Sequence)

	// A second read inside the interval yields nothing.
	buf, err = src.Read()
	require.NoError(t, err)
	assert.Nil(t, buf)

	// After the interval elapses the next buffer arrives.
	time.Sleep(25 * time.Millisecond)
	buf, err = src.Read()
	require.NoError(t, err)
	require.NotNil(t, buf)
	assert.Equal(t, uint64(1), buf.Sequence)

	stats := src.Stats()
	assert.Equal(t, uint64(2), stats.BuffersProduced)
	assert.Equal(t, uint64(640), stats.SamplesProduced)
}

func TestSilenceSourceRestartResumesImmediately(t *testing.T) {
	t.Parallel()

	src := NewSilenceSource(audiocore.SpeechFormat(), time.Second)
	require.NoError(t, src.Start())
	buf, err := src.Read()
	require.NoError(t, err)
	require.NotNil(t, buf)

	require.NoError(t, src.Stop())
	require.NoError(t, src.Start())

	// Restart resets the cadence clock.
	buf, err = src.Read()
	require.NoError(t, err)
	assert.NotNil(t, buf)
}
