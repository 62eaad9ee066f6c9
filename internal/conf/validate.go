package conf

import (
	"fmt"
)

// ValidateSettings checks settings for values the audio pipeline cannot
// run with. Validation failures name the offending key.
func ValidateSettings(s *Settings) error {
	c := s.Audio.Capture
	if c.SampleRate <= 0 || c.SampleRate > 192000 {
		return fmt.Errorf("audio.capture.samplerate must be in (0, 192000], got %d", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 32 {
		return fmt.Errorf("audio.capture.channels must be in [1, 32], got %d", c.Channels)
	}
	if c.BufferFrames <= 0 {
		return fmt.Errorf("audio.capture.bufferframes must be positive, got %d", c.BufferFrames)
	}
	if c.MaxQueue <= 0 {
		return fmt.Errorf("audio.capture.maxqueue must be positive, got %d", c.MaxQueue)
	}

	switch s.Audio.Mix.Mode {
	case "sum", "average", "weighted":
	default:
		return fmt.Errorf("audio.mix.mode must be sum, average, or weighted, got %q", s.Audio.Mix.Mode)
	}
	if b := s.Audio.Mix.Balance; b < 0 || b > 1 {
		return fmt.Errorf("audio.mix.balance must be in [0, 1], got %v", b)
	}
	if g := s.Audio.Mix.MasterGain; g < 0 || g > 1 {
		return fmt.Errorf("audio.mix.mastergain must be in [0, 1], got %v", g)
	}

	if s.Audio.Resample.Enabled {
		r := s.Audio.Resample
		if r.TargetRate <= 0 || r.TargetRate > 192000 {
			return fmt.Errorf("audio.resample.targetrate must be in (0, 192000], got %d", r.TargetRate)
		}
		if r.ChunkSize < 1 || r.ChunkSize > 16384 {
			return fmt.Errorf("audio.resample.chunksize must be in [1, 16384], got %d", r.ChunkSize)
		}
	}

	if s.Audio.Normalize.Enabled {
		n := s.Audio.Normalize
		if n.TargetDB > 0 {
			return fmt.Errorf("audio.normalize.targetdb must be at or below 0 dBFS, got %v", n.TargetDB)
		}
		if n.LookAheadMs <= 0 {
			return fmt.Errorf("audio.normalize.lookaheadms must be positive, got %d", n.LookAheadMs)
		}
	}

	if s.Audio.Silence.MinDurationMs < 0 {
		return fmt.Errorf("audio.silence.mindurationms must be non-negative, got %d", s.Audio.Silence.MinDurationMs)
	}

	if s.Audio.Graph.MaxQueueSize <= 0 {
		return fmt.Errorf("audio.graph.maxqueuesize must be positive, got %d", s.Audio.Graph.MaxQueueSize)
	}

	switch s.Output.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("output.bitdepth must be 16, 24, or 32, got %d", s.Output.BitDepth)
	}
	if s.Output.Float && s.Output.BitDepth != 32 {
		return fmt.Errorf("output.float requires output.bitdepth 32, got %d", s.Output.BitDepth)
	}

	if s.Diagnostics.Enabled && s.Diagnostics.Listen == "" {
		return fmt.Errorf("diagnostics.listen must be set when diagnostics are enabled")
	}
	return nil
}

// OutputSampleFormat maps the output settings to a sample format name
// understood by the sink layer.
func (s *Settings) OutputSampleFormat() string {
	if s.Output.Float {
		return "f32"
	}
	switch s.Output.BitDepth {
	case 24:
		return "s24"
	case 32:
		return "s32"
	default:
		return "s16"
	}
}
