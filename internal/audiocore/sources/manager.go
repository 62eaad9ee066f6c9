package sources

import (
	"runtime"
	"time"

	"github.com/gen2brain/malgo"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

const deviceCacheKey = "capture-devices"

// DeviceManager enumerates capture devices. Enumeration opens a platform
// context, which is slow on some backends, so results are cached briefly.
type DeviceManager struct {
	cache *gocache.Cache
}

// NewDeviceManager creates a manager with a 30 second enumeration cache.
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		cache: gocache.New(30*time.Second, time.Minute),
	}
}

// ListDevices returns the available capture devices, cached for 30 seconds.
func (dm *DeviceManager) ListDevices() ([]audiocore.DeviceInfo, error) {
	if cached, found := dm.cache.Get(deviceCacheKey); found {
		return cached.([]audiocore.DeviceInfo), nil
	}

	ctx, err := malgo.InitContext([]malgo.Backend{platformBackend()}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			Context("backend", runtime.GOOS).
			Context("operation", "init_context").
			Build()
	}
	defer func() { _ = ctx.Uninit() }()

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audiocore.sources").
			Category(errors.CategoryDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	infos := make([]audiocore.DeviceInfo, 0, len(devices))
	for i := range devices {
		infos = append(infos, deviceInfoFromMalgo(&devices[i]))
	}

	dm.cache.Set(deviceCacheKey, infos, gocache.DefaultExpiration)
	return infos, nil
}

// InvalidateCache drops the cached enumeration, forcing the next
// ListDevices to query the platform.
func (dm *DeviceManager) InvalidateCache() {
	dm.cache.Delete(deviceCacheKey)
}

// DefaultDevice returns the platform default capture device.
func (dm *DeviceManager) DefaultDevice() (audiocore.DeviceInfo, error) {
	devices, err := dm.ListDevices()
	if err != nil {
		return audiocore.DeviceInfo{}, err
	}
	for _, d := range devices {
		if d.IsDefault {
			return d, nil
		}
	}
	if len(devices) > 0 {
		return devices[0], nil
	}
	return audiocore.DeviceInfo{}, errors.Newf("no capture devices available").
		Component("audiocore.sources").
		Category(errors.CategoryNotFound).
		Build()
}
