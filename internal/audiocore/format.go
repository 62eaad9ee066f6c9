package audiocore

import "fmt"

// SampleFormat identifies the encoding of a single audio sample at the
// boundaries of the engine. Internally all processing is done in normalized
// 32-bit float in the range [-1.0, 1.0]; integer formats exist only at the
// wire and file boundaries.
type SampleFormat uint8

const (
	// SampleFormatF32 is 32-bit IEEE float, the internal processing format.
	SampleFormatF32 SampleFormat = iota
	// SampleFormatI16 is 16-bit signed little-endian PCM.
	SampleFormatI16
	// SampleFormatI24 is 24-bit signed little-endian PCM, 3 bytes per sample.
	SampleFormatI24
	// SampleFormatI32 is 32-bit signed little-endian PCM.
	SampleFormatI32
)

// BytesPerSample returns the on-wire size of one sample.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatF32, SampleFormatI32:
		return 4
	case SampleFormatI16:
		return 2
	case SampleFormatI24:
		return 3
	default:
		return 0
	}
}

// BitDepth returns the number of significant bits per sample.
func (f SampleFormat) BitDepth() int {
	switch f {
	case SampleFormatF32, SampleFormatI32:
		return 32
	case SampleFormatI16:
		return 16
	case SampleFormatI24:
		return 24
	default:
		return 0
	}
}

// IsFloat reports whether the format carries IEEE float samples.
func (f SampleFormat) IsFloat() bool {
	return f == SampleFormatF32
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatF32:
		return "f32"
	case SampleFormatI16:
		return "s16"
	case SampleFormatI24:
		return "s24"
	case SampleFormatI32:
		return "s32"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// AudioFormat describes a stream: sample rate, channel count, and sample
// encoding. Channels are interleaved, channel-major within a frame.
type AudioFormat struct {
	SampleRate uint32
	Channels   uint16
	Format     SampleFormat
}

// NewAudioFormat creates an AudioFormat from its three components.
func NewAudioFormat(sampleRate uint32, channels uint16, format SampleFormat) AudioFormat {
	return AudioFormat{SampleRate: sampleRate, Channels: channels, Format: format}
}

// SpeechFormat is the preset used for voice capture: 16 kHz mono float.
func SpeechFormat() AudioFormat {
	return AudioFormat{SampleRate: 16000, Channels: 1, Format: SampleFormatF32}
}

// CDFormat is the CD-audio preset: 44.1 kHz stereo 16-bit.
func CDFormat() AudioFormat {
	return AudioFormat{SampleRate: 44100, Channels: 2, Format: SampleFormatI16}
}

// ProfessionalFormat is the studio preset: 48 kHz stereo float.
func ProfessionalFormat() AudioFormat {
	return AudioFormat{SampleRate: 48000, Channels: 2, Format: SampleFormatF32}
}

// Compatible reports whether two formats can flow on the same graph edge.
// Only rate and channel count matter; the sample encoding may differ because
// the engine converts at boundaries.
func (af AudioFormat) Compatible(other AudioFormat) bool {
	return af.SampleRate == other.SampleRate && af.Channels == other.Channels
}

// BytesPerFrame returns the wire size of one frame (one sample per channel).
func (af AudioFormat) BytesPerFrame() int {
	return af.Format.BytesPerSample() * int(af.Channels)
}

func (af AudioFormat) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", af.SampleRate, af.Channels, af.Format)
}
