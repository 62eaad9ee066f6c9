package audiocore

import "time"

// Device is the narrow contract between sources and the platform audio
// layer. The engine owns no platform specifics beyond this capability set;
// concrete implementations live in the sources package.
type Device interface {
	// Start opens the device with the given configuration.
	Start(config AudioConfig) error
	// Stop closes the device. Idempotent.
	Stop() error
	// ReadSamples returns the next captured chunk, or nil if none is ready.
	ReadSamples() *AudioSamples
	// Info describes the device.
	Info() DeviceInfo
	// Health reports device-level capture health.
	Health() DeviceHealth
}

// AudioConfig is the capture configuration handed to a device.
type AudioConfig struct {
	SampleRate uint32
	Channels   uint16
	Format     SampleFormat
	// BufferSize is the preferred driver chunk size in frames.
	BufferSize uint32
}

// AudioSamples is one driver-delivered chunk, already converted to
// normalized float32.
type AudioSamples struct {
	Data       []float32
	SampleRate uint32
	Channels   uint16
	Timestamp  time.Time
}

// DeviceInfo identifies a capture device.
type DeviceInfo struct {
	ID               string
	Name             string
	IsDefault        bool
	SupportedConfigs []AudioConfig
}

// DeviceHealth reports device-level capture health.
type DeviceHealth struct {
	BufferUsagePercent float64
	DroppedFrames      uint64
	LastError          error
	LastActivity       time.Time
}
