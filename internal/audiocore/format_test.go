package audiocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleFormatProperties(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, SampleFormatF32.BytesPerSample())
	assert.Equal(t, 2, SampleFormatI16.BytesPerSample())
	assert.Equal(t, 3, SampleFormatI24.BytesPerSample())
	assert.Equal(t, 4, SampleFormatI32.BytesPerSample())

	assert.Equal(t, 32, SampleFormatF32.BitDepth())
	assert.Equal(t, 16, SampleFormatI16.BitDepth())
	assert.Equal(t, 24, SampleFormatI24.BitDepth())
	assert.Equal(t, 32, SampleFormatI32.BitDepth())

	assert.True(t, SampleFormatF32.IsFloat())
	assert.False(t, SampleFormatI16.IsFloat())
}

func TestFormatPresets(t *testing.T) {
	t.Parallel()

	speech := SpeechFormat()
	assert.Equal(t, uint32(16000), speech.SampleRate)
	assert.Equal(t, uint16(1), speech.Channels)
	assert.Equal(t, SampleFormatF32, speech.Format)

	cd := CDFormat()
	assert.Equal(t, uint32(44100), cd.SampleRate)
	assert.Equal(t, uint16(2), cd.Channels)
	assert.Equal(t, SampleFormatI16, cd.Format)

	pro := ProfessionalFormat()
	assert.Equal(t, uint32(48000), pro.SampleRate)
	assert.Equal(t, uint16(2), pro.Channels)
	assert.Equal(t, SampleFormatF32, pro.Format)
}

func TestFormatCompatibility(t *testing.T) {
	t.Parallel()

	a := NewAudioFormat(48000, 2, SampleFormatF32)
	b := NewAudioFormat(48000, 2, SampleFormatI16)
	c := NewAudioFormat(44100, 2, SampleFormatF32)
	d := NewAudioFormat(48000, 1, SampleFormatF32)

	// Sample format differences do not break compatibility, rate and
	// channel differences do.
	assert.True(t, a.Compatible(b))
	assert.False(t, a.Compatible(c))
	assert.False(t, a.Compatible(d))
}

func TestBytesPerFrame(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 8, ProfessionalFormat().BytesPerFrame())
	assert.Equal(t, 4, CDFormat().BytesPerFrame())
	assert.Equal(t, 4, SpeechFormat().BytesPerFrame())
}
