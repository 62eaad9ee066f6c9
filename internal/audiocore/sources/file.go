package sources

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// decodeChunkFrames is the PCM read granularity when loading a file.
const decodeChunkFrames = 8192

// FileSource plays a WAV file back through the graph for offline
// reprocessing and round-trip tests. The file is decoded to normalized
// float32 up front; playback then behaves like MockSource.
type FileSource struct {
	*MockSource
	path string
}

// NewFileSource decodes the WAV file at path and prepares playback in
// chunks of chunkFrames frames.
func NewFileSource(path string, chunkFrames int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("not a valid WAV file: %s", path).
			Component("audiocore.sources").
			Category(errors.CategoryFormat).
			Build()
	}

	var sampleFormat audiocore.SampleFormat
	switch decoder.BitDepth {
	case 16:
		sampleFormat = audiocore.SampleFormatI16
	case 24:
		sampleFormat = audiocore.SampleFormatI24
	case 32:
		if decoder.WavAudioFormat == 3 {
			// go-audio's PCM reader does not decode IEEE float payloads.
			return nil, errors.Newf("float WAV playback is not supported: %s", path).
				Component("audiocore.sources").
				Category(errors.CategoryFormat).
				Build()
		}
		sampleFormat = audiocore.SampleFormatI32
	default:
		return nil, errors.Newf("unsupported WAV bit depth %d", decoder.BitDepth).
			Component("audiocore.sources").
			Category(errors.CategoryFormat).
			Build()
	}

	format := audiocore.NewAudioFormat(
		uint32(decoder.SampleRate),
		uint16(decoder.NumChans),
		audiocore.SampleFormatF32,
	)

	intBuf := &audio.IntBuffer{
		Data: make([]int, decodeChunkFrames*int(decoder.NumChans)),
		Format: &audio.Format{
			NumChannels: int(decoder.NumChans),
			SampleRate:  int(decoder.SampleRate),
		},
	}

	var samples []float32
	for {
		n, err := decoder.PCMBuffer(intBuf)
		if err != nil {
			return nil, errors.New(err).
				Component("audiocore.sources").
				Category(errors.CategoryIO).
				Context("path", path).
				Build()
		}
		if n == 0 {
			break
		}
		for _, v := range intBuf.Data[:n] {
			samples = append(samples, audiocore.IntToFloat(sampleFormat, v))
		}
	}

	chunkSize := chunkFrames * int(format.Channels)
	return &FileSource{
		MockSource: NewMockSource(format, samples, chunkSize),
		path:       path,
	}, nil
}

// Path returns the backing file path.
func (s *FileSource) Path() string {
	return s.path
}

// Name identifies the source.
func (s *FileSource) Name() string {
	return "FileSource"
}

var _ audiocore.Source = (*FileSource)(nil)
