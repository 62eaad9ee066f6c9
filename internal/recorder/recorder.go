// Package recorder assembles the capture graph from configuration and
// drives it: microphone (plus optional system loopback), mixing,
// resampling, normalization, silence detection, and a WAV file sink.
package recorder

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/graph"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/processors"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/sinks"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/sources"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/conf"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
)

// backpressure thresholds applied to the capture queue.
const (
	backpressureTrigger = 0.9
	backpressureClear   = 0.7
)

// Recorder owns one recording session's graph and observability state.
type Recorder struct {
	settings *conf.Settings
	graph    *graph.Graph
	health   *audiocore.HealthMonitor
	detector *audiocore.BackpressureDetector
	silence  *processors.SilenceDetector
	mic      *sources.MicrophoneSource
	micNode  graph.NodeID
	sink     *sinks.WAVSink
	stepWait time.Duration
	metrics  audiocore.MetricsCollector
}

// New builds a recorder from settings. The output file name is derived
// from the session start time under settings.Output.Path.
func New(settings *conf.Settings, metrics audiocore.MetricsCollector) (*Recorder, error) {
	if metrics == nil {
		metrics = audiocore.NoopMetrics()
	}

	captureRate := uint32(settings.Audio.Capture.SampleRate)
	captureChannels := uint16(settings.Audio.Capture.Channels)
	log := logging.ForService("recorder")

	// Loopback capture is fixed at 16kHz mono, and the mixer needs
	// compatible inputs, so loopback sessions force the microphone to
	// the same shape.
	if settings.Audio.Loopback.Enabled && (captureRate != 16000 || captureChannels != 1) {
		log.Warn("loopback capture forces 16000Hz mono microphone input",
			"configured_rate", captureRate, "configured_channels", captureChannels)
		captureRate = 16000
		captureChannels = 1
	}

	g := graph.New(graph.Config{
		MaxQueueSize: settings.Audio.Graph.MaxQueueSize,
		Metrics:      metrics,
	})

	micConfig := audiocore.AudioConfig{
		SampleRate: captureRate,
		Channels:   captureChannels,
		Format:     audiocore.SampleFormatF32,
		BufferSize: uint32(settings.Audio.Capture.BufferFrames),
	}
	mic := sources.NewMicrophoneSource(settings.Audio.Capture.Device, micConfig)
	mic.SetMaxQueueSize(settings.Audio.Capture.MaxQueue)
	mic.SetMetrics(metrics)

	micNode, err := g.AddSource(mic)
	if err != nil {
		return nil, err
	}
	tail := micNode

	if settings.Audio.Loopback.Enabled {
		loopback, err := sources.NewLoopbackSource()
		if err != nil {
			return nil, err
		}
		loopNode, err := g.AddSource(loopback)
		if err != nil {
			return nil, err
		}

		mixer, err := buildMixer(settings)
		if err != nil {
			return nil, err
		}
		mixNode, err := g.AddProcessor(mixer)
		if err != nil {
			return nil, err
		}
		if err := g.Connect(micNode, mixNode); err != nil {
			return nil, err
		}
		if err := g.Connect(loopNode, mixNode); err != nil {
			return nil, err
		}
		tail = mixNode
	}

	outputRate := captureRate
	if settings.Audio.Resample.Enabled && uint32(settings.Audio.Resample.TargetRate) != captureRate {
		rs, err := processors.NewResampler(
			captureRate,
			uint32(settings.Audio.Resample.TargetRate),
			captureChannels,
			settings.Audio.Resample.ChunkSize,
		)
		if err != nil {
			return nil, err
		}
		rsNode, err := g.AddProcessor(rs)
		if err != nil {
			return nil, err
		}
		if err := g.Connect(tail, rsNode); err != nil {
			return nil, err
		}
		tail = rsNode
		outputRate = uint32(settings.Audio.Resample.TargetRate)
	}

	if settings.Audio.Normalize.Enabled {
		norm, err := processors.NewNormalizer(
			settings.Audio.Normalize.TargetDB,
			settings.Audio.Normalize.LookAheadMs,
			outputRate,
		)
		if err != nil {
			return nil, err
		}
		normNode, err := g.AddProcessor(norm)
		if err != nil {
			return nil, err
		}
		if err := g.Connect(tail, normNode); err != nil {
			return nil, err
		}
		tail = normNode
	}

	silence, err := processors.NewSilenceDetector(
		settings.Audio.Silence.ThresholdDB,
		settings.Audio.Silence.MinDurationMs,
		outputRate,
	)
	if err != nil {
		return nil, err
	}
	silenceNode, err := g.AddProcessor(silence)
	if err != nil {
		return nil, err
	}
	if err := g.Connect(tail, silenceNode); err != nil {
		return nil, err
	}
	tail = silenceNode

	outFormat := audiocore.NewAudioFormat(outputRate, captureChannels, outputSampleFormat(settings))
	outPath := filepath.Join(settings.Output.Path,
		fmt.Sprintf("session-%s.wav", time.Now().Format("20060102-150405")))
	sink, err := sinks.NewWAVSink(outPath, outFormat)
	if err != nil {
		return nil, err
	}
	sinkNode, err := g.AddSink(sink)
	if err != nil {
		return nil, err
	}
	if err := g.Connect(tail, sinkNode); err != nil {
		return nil, err
	}

	detector, err := audiocore.NewBackpressureDetector(backpressureTrigger, backpressureClear)
	if err != nil {
		return nil, err
	}
	detector.OnEvent(func(ev audiocore.BackpressureEvent) {
		metrics.RecordBackpressure(mic.Name(), ev.Kind)
		log.Warn("capture backpressure",
			"event", ev.Kind.String(), "usage", ev.Usage, "count", ev.Count)
	})

	bufferDuration := time.Duration(settings.Audio.Capture.BufferFrames) *
		time.Second / time.Duration(captureRate)

	return &Recorder{
		settings: settings,
		graph:    g,
		health:   audiocore.NewHealthMonitor(0),
		detector: detector,
		silence:  silence,
		mic:      mic,
		micNode:  micNode,
		sink:     sink,
		stepWait: bufferDuration / 2,
		metrics:  metrics,
	}, nil
}

func buildMixer(settings *conf.Settings) (*processors.Mixer, error) {
	var mode processors.MixMode
	switch settings.Audio.Mix.Mode {
	case "sum":
		mode = processors.MixModeSum
	case "average":
		mode = processors.MixModeAverage
	case "weighted":
		mode = processors.MixModeWeighted
	default:
		return nil, errors.Newf("unknown mix mode %q", settings.Audio.Mix.Mode).
			Component("recorder").
			Category(errors.CategoryConfiguration).
			Build()
	}

	mixer, err := processors.NewMixer(2, mode)
	if err != nil {
		return nil, err
	}
	if mode == processors.MixModeWeighted {
		if err := mixer.SetBalance(float32(settings.Audio.Mix.Balance)); err != nil {
			return nil, err
		}
	}
	if err := mixer.SetMasterGain(float32(settings.Audio.Mix.MasterGain)); err != nil {
		return nil, err
	}
	return mixer, nil
}

func outputSampleFormat(settings *conf.Settings) audiocore.SampleFormat {
	switch settings.OutputSampleFormat() {
	case "f32":
		return audiocore.SampleFormatF32
	case "s24":
		return audiocore.SampleFormatI24
	case "s32":
		return audiocore.SampleFormatI32
	default:
		return audiocore.SampleFormatI16
	}
}

// OutputPath returns the recording file path.
func (r *Recorder) OutputPath() string {
	return r.sink.Path()
}

// Health returns the session health monitor.
func (r *Recorder) Health() *audiocore.HealthMonitor {
	return r.health
}

// GraphState returns the current graph lifecycle state name.
func (r *Recorder) GraphState() string {
	return r.graph.State().String()
}

// IsSilent reports whether the stream has been silent long enough to
// count as a pause.
func (r *Recorder) IsSilent() bool {
	return r.silence.IsSilent()
}

// Run starts the graph and drives it until ctx is cancelled. The WAV
// sink is finalized before returning.
func (r *Recorder) Run(ctx context.Context) error {
	log := logging.ForService("recorder")

	if err := r.graph.Start(); err != nil {
		return err
	}
	log.Info("recording started", "output", r.sink.Path())

	for {
		select {
		case <-ctx.Done():
			if err := r.graph.Stop(); err != nil {
				log.Warn("graph stop failed", "error", err)
			}
			if err := r.sink.Close(); err != nil {
				log.Warn("sink close failed", "error", err)
			}
			stats := r.sink.Stats()
			log.Info("recording stopped",
				"output", r.sink.Path(),
				"buffers_written", stats.BuffersWritten,
				"drop_rate_percent", r.health.DropRate())
			return nil
		default:
		}

		start := time.Now()
		active, err := r.graph.ProcessOnce()
		r.health.RecordLatency(time.Since(start))
		r.metrics.RecordProcessLatency(time.Since(start))

		if err != nil {
			// Queue overflow is survivable pressure: record the drop
			// and keep draining. Anything else ends the session.
			if errors.IsCategory(err, errors.CategoryBuffer) {
				r.health.RecordDrop()
				log.Warn("buffer overflow during processing", "error", err)
				continue
			}
			stopErr := r.graph.Stop()
			if stopErr != nil {
				log.Warn("graph stop failed", "error", stopErr)
			}
			_ = r.sink.Close()
			return err
		}

		health := r.mic.DeviceHealth()
		r.detector.Update(health.BufferUsagePercent / 100)

		if active {
			r.health.RecordChunk()
		} else {
			time.Sleep(r.stepWait)
		}
	}
}
