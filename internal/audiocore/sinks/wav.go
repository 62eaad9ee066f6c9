// Package sinks provides the audio sink implementations: streaming WAV
// encoding, bounded in-memory accumulation, and a counting bit-bucket.
package sinks

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// wavFormatPCM and wavFormatIEEEFloat are the RIFF fmt tags.
const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

// WAVSink streams buffers to a RIFF/WAVE file. Samples are converted from
// the internal float32 representation to the configured wire format; the
// header is finalized on Close.
type WAVSink struct {
	mu      sync.Mutex
	path    string
	format  audiocore.AudioFormat
	file    *os.File
	encoder *wav.Encoder
	closed  bool

	samplesWritten uint64
	stats          audiocore.SinkStats
}

// NewWAVSink creates the output file. The parent directory must already
// exist.
func NewWAVSink(path string, format audiocore.AudioFormat) (*WAVSink, error) {
	if parent := filepath.Dir(path); parent != "." {
		if _, err := os.Stat(parent); err != nil {
			return nil, errors.Newf("parent directory does not exist: %s", parent).
				Component("audiocore.sinks").
				Category(errors.CategoryIO).
				Context("path", path).
				Build()
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sinks").
			Category(errors.CategoryIO).
			Context("path", path).
			Build()
	}

	audioFormat := wavFormatPCM
	if format.Format.IsFloat() {
		audioFormat = wavFormatIEEEFloat
	}

	encoder := wav.NewEncoder(
		file,
		int(format.SampleRate),
		format.Format.BitDepth(),
		int(format.Channels),
		audioFormat,
	)

	return &WAVSink{
		path:    path,
		format:  format,
		file:    file,
		encoder: encoder,
	}, nil
}

// Path returns the output file path.
func (s *WAVSink) Path() string {
	return s.path
}

// Format returns the configured wire format.
func (s *WAVSink) Format() audiocore.AudioFormat {
	return s.format
}

// SamplesWritten returns the number of samples encoded so far.
func (s *WAVSink) SamplesWritten() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samplesWritten
}

// Write encodes one buffer. Empty buffers are counted and otherwise
// ignored; format-mismatched buffers are rejected.
func (s *WAVSink) Write(buffer *audiocore.AudioBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Newf("sink is closed, cannot write").
			Component("audiocore.sinks").
			Category(errors.CategoryState).
			Build()
	}

	// Sample format may differ: buffers are float32 in memory and the
	// sink converts to its own wire format on encode.
	if !buffer.IsEmpty() && !buffer.Format.Compatible(s.format) {
		return errors.Newf("buffer format %s does not match sink format %s", buffer.Format, s.format).
			Component("audiocore.sinks").
			Category(errors.CategoryFormat).
			FormatContext(buffer.Format.SampleRate, buffer.Format.Channels).
			Build()
	}

	if err := s.encodeSamples(buffer.Samples); err != nil {
		return err
	}

	s.samplesWritten += uint64(len(buffer.Samples))
	s.stats.BuffersWritten++
	s.stats.SamplesWritten = s.samplesWritten
	s.stats.BytesWritten = s.samplesWritten * uint64(s.format.Format.BytesPerSample())
	return nil
}

func (s *WAVSink) encodeSamples(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	if s.format.Format.IsFloat() {
		for _, sample := range samples {
			if err := s.encoder.WriteFrame(sample); err != nil {
				return errors.New(err).
					Component("audiocore.sinks").
					Category(errors.CategoryIO).
					Context("path", s.path).
					Build()
			}
		}
		return nil
	}

	data := make([]int, len(samples))
	for i, sample := range samples {
		data[i] = audiocore.FloatToInt(s.format.Format, sample)
	}
	buf := &audio.IntBuffer{
		Data: data,
		Format: &audio.Format{
			NumChannels: int(s.format.Channels),
			SampleRate:  int(s.format.SampleRate),
		},
		SourceBitDepth: s.format.Format.BitDepth(),
	}
	if err := s.encoder.Write(buf); err != nil {
		return errors.New(err).
			Component("audiocore.sinks").
			Category(errors.CategoryIO).
			Context("path", s.path).
			Build()
	}
	return nil
}

// Flush forces file contents to stable storage. The WAV header is only
// finalized on Close.
func (s *WAVSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return errors.New(err).
			Component("audiocore.sinks").
			Category(errors.CategoryIO).
			Context("path", s.path).
			Build()
	}
	return nil
}

// Close finalizes the WAV header and closes the file. Idempotent.
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var closeErr error
	if err := s.encoder.Close(); err != nil {
		closeErr = errors.New(err).
			Component("audiocore.sinks").
			Category(errors.CategoryIO).
			Context("path", s.path).
			Build()
	}
	if err := s.file.Close(); err != nil && closeErr == nil {
		closeErr = errors.New(err).
			Component("audiocore.sinks").
			Category(errors.CategoryIO).
			Context("path", s.path).
			Build()
	}
	return closeErr
}

// Stats returns consumption counters.
func (s *WAVSink) Stats() audiocore.SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Name identifies the sink.
func (s *WAVSink) Name() string {
	return "WAVSink"
}

var _ audiocore.Sink = (*WAVSink)(nil)
