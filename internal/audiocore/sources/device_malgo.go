// Package sources provides the audio source implementations: platform
// device capture via malgo, silence synthesis, deterministic mock playback,
// and WAV file playback.
package sources

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
)

// startStopTimeout bounds platform device operations. Exceeding it is a
// timeout error surfaced to the caller.
const startStopTimeout = 10 * time.Second

// MalgoDevice implements audiocore.Device on top of malgo (miniaudio).
// The capture callback either hands decoded samples to a registered
// handler, or appends raw float32 bytes to an internal byte ring drained
// by ReadSamples.
type MalgoDevice struct {
	requestedName string
	deviceType    malgo.DeviceType

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	cfg     audiocore.AudioConfig
	info    audiocore.DeviceInfo
	running atomic.Bool

	// handler, when set before Start, receives every decoded chunk on the
	// driver callback thread. Otherwise chunks are staged in rawRing.
	handler func(audiocore.AudioSamples)
	rawRing *ringbuffer.RingBuffer

	// pool, when set, supplies the decode vectors on the handler path so
	// steady-state capture does not allocate per chunk.
	pool *audiocore.BufferPool

	droppedFrames atomic.Uint64
	lastActivity  atomic.Int64 // unix nanos
	lastErr       atomic.Value // error

	logger *slog.Logger
}

// NewMalgoDevice creates a capture device wrapper. An empty name selects
// the platform default input device.
func NewMalgoDevice(name string) *MalgoDevice {
	return &MalgoDevice{
		requestedName: name,
		deviceType:    malgo.Capture,
		logger:        logging.ForService("audiocore.sources"),
	}
}

// NewLoopbackDevice creates a system-loopback capture wrapper. Loopback is
// only available on backends that support it (WASAPI).
func NewLoopbackDevice() *MalgoDevice {
	return &MalgoDevice{
		deviceType: malgo.Loopback,
		logger:     logging.ForService("audiocore.sources"),
	}
}

// SetSampleHandler registers a callback receiving every decoded chunk.
// Must be called before Start.
func (d *MalgoDevice) SetSampleHandler(fn func(audiocore.AudioSamples)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = fn
}

// SetBufferPool supplies decode vectors for the handler path. Must be
// called before Start. The handler owns each delivered vector and returns
// finished ones through the pool.
func (d *MalgoDevice) SetBufferPool(p *audiocore.BufferPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pool = p
}

// platformBackend selects the malgo backend for the current OS.
func platformBackend() malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa
	case "windows":
		return malgo.BackendWasapi
	case "darwin":
		return malgo.BackendCoreaudio
	default:
		return malgo.BackendNull
	}
}

// Start opens the device with the given configuration. The device always
// captures 32-bit float; miniaudio converts from the driver's native format.
func (d *MalgoDevice) Start(config audiocore.AudioConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.Newf("device already started").
			Component("audiocore.sources").
			Category(errors.CategoryState).
			Build()
	}

	if d.deviceType == malgo.Loopback && runtime.GOOS != "windows" {
		return errors.Newf("system loopback capture is not supported on %s backend", runtime.GOOS).
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			Context("permission", "system-audio").
			Context("can_retry", false).
			Build()
	}

	started := time.Now()

	ctx, err := malgo.InitContext([]malgo.Backend{platformBackend()}, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			DeviceContext(d.requestedName, runtime.GOOS).
			Context("operation", "init_context").
			Build()
	}
	d.ctx = ctx

	deviceInfo, err := d.findDevice()
	if err != nil {
		_ = ctx.Uninit()
		d.ctx = nil
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(d.deviceType)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(config.Channels)
	deviceConfig.SampleRate = config.SampleRate
	deviceConfig.PeriodSizeInFrames = config.BufferSize
	deviceConfig.Alsa.NoMMap = 1
	if deviceInfo != nil {
		deviceConfig.Capture.DeviceID = deviceInfo.ID.Pointer()
	}

	d.cfg = config

	// Stage up to two seconds of float32 audio between callback and reader.
	if d.handler == nil {
		ringBytes := int(config.SampleRate) * int(config.Channels) * 4 * 2
		d.rawRing = ringbuffer.New(ringBytes)
	}

	callbacks := malgo.DeviceCallbacks{
		Data: d.onData,
		Stop: d.onStop,
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		d.ctx = nil
		return errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			DeviceContext(d.requestedName, runtime.GOOS).
			Context("operation", "init_device").
			Build()
	}
	d.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		d.device = nil
		d.ctx = nil
		return errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			DeviceContext(d.requestedName, runtime.GOOS).
			Context("operation", "start_device").
			Build()
	}

	if elapsed := time.Since(started); elapsed > startStopTimeout {
		// The device did come up, but past its budget. Tear it down and
		// report a timeout so the caller can retry.
		_ = device.Stop()
		device.Uninit()
		_ = ctx.Uninit()
		d.device = nil
		d.ctx = nil
		return errors.Newf("device start exceeded %v budget", startStopTimeout).
			Component("audiocore.sources").
			Category(errors.CategoryTimeout).
			Timing("start_device", elapsed).
			Build()
	}

	d.running.Store(true)
	d.logger.Info("device started",
		"device", d.info.Name,
		"sample_rate", config.SampleRate,
		"channels", config.Channels)

	return nil
}

// Stop closes the device. Idempotent.
func (d *MalgoDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return nil
	}

	if d.device != nil {
		_ = d.device.Stop()
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx = nil
	}

	d.running.Store(false)
	d.logger.Info("device stopped", "device", d.info.Name)
	return nil
}

// onData runs on the driver callback thread. It must not block; on a full
// staging ring the chunk is dropped and counted.
func (d *MalgoDevice) onData(_, pSamples []byte, frameCount uint32) {
	now := time.Now()
	d.lastActivity.Store(now.UnixNano())

	if handler := d.handler; handler != nil {
		var vec []float32
		if d.pool != nil {
			vec = d.pool.Acquire()
		}
		samples, err := audiocore.DecodeSamplesInto(vec, audiocore.SampleFormatF32, pSamples)
		if err != nil {
			if d.pool != nil {
				d.pool.Release(vec)
			}
			d.lastErr.Store(err)
			return
		}
		// An oversized chunk forced a fresh allocation; the pooled
		// vector went unused.
		if d.pool != nil && cap(vec) < len(samples) {
			d.pool.Release(vec)
		}
		handler(audiocore.AudioSamples{
			Data:       samples,
			SampleRate: d.cfg.SampleRate,
			Channels:   d.cfg.Channels,
			Timestamp:  now,
		})
		return
	}

	if d.rawRing == nil {
		return
	}
	if _, err := d.rawRing.Write(pSamples); err != nil {
		d.droppedFrames.Add(uint64(frameCount))
		d.lastErr.Store(err)
	}
}

// onStop is invoked by malgo when the device stops unexpectedly.
func (d *MalgoDevice) onStop() {
	if d.running.Load() {
		d.logger.Warn("device stopped unexpectedly", "device", d.info.Name)
	}
}

// ReadSamples drains whatever whole frames the staging ring holds, or
// returns nil when nothing is ready. Only valid without a sample handler.
func (d *MalgoDevice) ReadSamples() *audiocore.AudioSamples {
	if d.rawRing == nil || !d.running.Load() {
		return nil
	}

	frameBytes := int(d.cfg.Channels) * 4
	available := d.rawRing.Length()
	available -= available % frameBytes
	if available == 0 {
		return nil
	}

	data := make([]byte, available)
	n, err := d.rawRing.Read(data)
	if err != nil || n == 0 {
		return nil
	}
	n -= n % frameBytes

	samples, err := audiocore.DecodeSamples(audiocore.SampleFormatF32, data[:n])
	if err != nil {
		d.lastErr.Store(err)
		return nil
	}

	return &audiocore.AudioSamples{
		Data:       samples,
		SampleRate: d.cfg.SampleRate,
		Channels:   d.cfg.Channels,
		Timestamp:  time.Now(),
	}
}

// Info describes the opened device, or the requested name before Start.
func (d *MalgoDevice) Info() audiocore.DeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.info.Name == "" {
		return audiocore.DeviceInfo{Name: d.requestedName}
	}
	return d.info
}

// Health reports capture-side health counters.
func (d *MalgoDevice) Health() audiocore.DeviceHealth {
	var usage float64
	if d.rawRing != nil {
		usage = float64(d.rawRing.Length()) / float64(d.rawRing.Capacity()) * 100
	}
	h := audiocore.DeviceHealth{
		BufferUsagePercent: usage,
		DroppedFrames:      d.droppedFrames.Load(),
	}
	if ns := d.lastActivity.Load(); ns != 0 {
		h.LastActivity = time.Unix(0, ns)
	}
	if err, ok := d.lastErr.Load().(error); ok {
		h.LastError = err
	}
	return h
}

// findDevice resolves the requested device name to a malgo device, or the
// default when no name was given. Loopback devices use the backend default.
func (d *MalgoDevice) findDevice() (*malgo.DeviceInfo, error) {
	if d.deviceType == malgo.Loopback {
		d.info = audiocore.DeviceInfo{ID: "loopback", Name: "system-loopback"}
		return nil, nil
	}

	devices, err := d.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			Context("operation", "enumerate_devices").
			Build()
	}
	if len(devices) == 0 {
		return nil, errors.Newf("no capture devices available").
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			Build()
	}

	if d.requestedName == "" || d.requestedName == "default" {
		for i := range devices {
			if devices[i].IsDefault == 1 {
				d.info = deviceInfoFromMalgo(&devices[i])
				return &devices[i], nil
			}
		}
		d.info = deviceInfoFromMalgo(&devices[0])
		return &devices[0], nil
	}

	for i := range devices {
		if devices[i].Name() == d.requestedName {
			d.info = deviceInfoFromMalgo(&devices[i])
			return &devices[i], nil
		}
	}

	return nil, errors.Newf("capture device %q not found", d.requestedName).
		Component("audiocore.sources").
		Category(errors.CategoryNotFound).
		DeviceContext(d.requestedName, runtime.GOOS).
		Build()
}

func deviceInfoFromMalgo(info *malgo.DeviceInfo) audiocore.DeviceInfo {
	return audiocore.DeviceInfo{
		ID:        info.ID.String(),
		Name:      info.Name(),
		IsDefault: info.IsDefault == 1,
	}
}
