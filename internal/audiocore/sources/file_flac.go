package sources

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// FLACFileSource plays a FLAC file back through the graph. Frames are
// decoded to normalized float32 up front; playback then behaves like
// MockSource, matching FileSource for WAV.
type FLACFileSource struct {
	*MockSource
	path string
}

// NewFLACFileSource decodes the FLAC file at path and prepares playback
// in chunks of chunkFrames frames.
func NewFLACFileSource(path string, chunkFrames int) (*FLACFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	decoder, err := flac.NewDecoder(f)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryFormat).
			Context("path", path).
			Build()
	}

	var divisor float32
	switch decoder.BitsPerSample {
	case 16:
		divisor = 32767.0
	case 24:
		divisor = 8388607.0
	case 32:
		divisor = 2147483647.0
	default:
		return nil, errors.Newf("unsupported FLAC bit depth %d", decoder.BitsPerSample).
			Component("audiocore.sources").
			Category(errors.CategoryFormat).
			Build()
	}

	format := audiocore.NewAudioFormat(
		uint32(decoder.SampleRate),
		uint16(decoder.NChannels),
		audiocore.SampleFormatF32,
	)

	bytesPerSample := decoder.BitsPerSample / 8
	var samples []float32
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.New(err).
				Component("audiocore.sources").
				Category(errors.CategoryIO).
				Context("path", path).
				Build()
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(frame[i+2])<<16
				if sample&0x800000 != 0 {
					sample |= ^int32(0xFFFFFF)
				}
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			samples = append(samples, float32(sample)/divisor)
		}
	}

	chunkSize := chunkFrames * int(format.Channels)
	return &FLACFileSource{
		MockSource: NewMockSource(format, samples, chunkSize),
		path:       path,
	}, nil
}

// Path returns the backing file path.
func (s *FLACFileSource) Path() string {
	return s.path
}

// Name identifies the source.
func (s *FLACFileSource) Name() string {
	return "FLACFileSource"
}

var _ audiocore.Source = (*FLACFileSource)(nil)
