package processors

import (
	"math"
	"sync"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// VolumeControl applies multiplicative gain with an optional sample
// accurate linear ramp. A ramp interpolates from the gain at ramp start
// to the target over a fixed number of samples, so fades are click free
// regardless of buffer boundaries.
type VolumeControl struct {
	mu          sync.Mutex
	currentGain float32
	targetGain  float32
	rampTotal   uint64
	consumed    uint64
	ramping     bool
	stats       audiocore.ProcessorStats
}

// NewVolumeControl creates a volume control at unity gain.
func NewVolumeControl() *VolumeControl {
	return &VolumeControl{currentGain: 1.0, targetGain: 1.0}
}

// DBToLinear converts decibels to a linear gain factor.
func DBToLinear(db float64) float32 {
	return float32(math.Pow(10, db/20))
}

// LinearToDB converts a linear gain factor to decibels.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}

// SetGain sets the gain immediately, cancelling any active ramp.
func (v *VolumeControl) SetGain(gain float32) error {
	if gain < 0 {
		return errors.Newf("gain must be non-negative, got %v", gain).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentGain = gain
	v.targetGain = gain
	v.ramping = false
	v.consumed = 0
	v.rampTotal = 0
	return nil
}

// SetGainDB sets the gain in decibels immediately.
func (v *VolumeControl) SetGainDB(db float64) error {
	return v.SetGain(DBToLinear(db))
}

// RampToGain starts a linear ramp from the current gain to target over
// rampSamples samples.
func (v *VolumeControl) RampToGain(target float32, rampSamples uint64) error {
	if target < 0 {
		return errors.Newf("gain must be non-negative, got %v", target).
			Component("audiocore.processors").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if rampSamples == 0 {
		return v.SetGain(target)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ramping && v.rampTotal > 0 {
		// Retargeting mid-ramp starts from the instantaneous gain, not
		// the stale ramp origin, so there is no audible jump.
		t := float32(v.consumed) / float32(v.rampTotal)
		v.currentGain += (v.targetGain - v.currentGain) * t
	}
	v.targetGain = target
	v.rampTotal = rampSamples
	v.consumed = 0
	v.ramping = true
	return nil
}

// RampToGainDB starts a ramp to a decibel target.
func (v *VolumeControl) RampToGainDB(db float64, rampSamples uint64) error {
	return v.RampToGain(DBToLinear(db), rampSamples)
}

// Gain returns the gain currently applied.
func (v *VolumeControl) Gain() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentGain
}

// IsRamping reports whether a ramp is in progress.
func (v *VolumeControl) IsRamping() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ramping
}

// Process multiplies the input by the active gain, advancing the ramp
// per sample when one is in progress.
func (v *VolumeControl) Process(input *audiocore.AudioBuffer) (*audiocore.AudioBuffer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]float32, len(input.Samples))
	if !v.ramping {
		for i, s := range input.Samples {
			out[i] = s * v.currentGain
		}
	} else {
		for i, s := range input.Samples {
			if v.consumed >= v.rampTotal {
				v.currentGain = v.targetGain
				v.ramping = false
				out[i] = s * v.currentGain
				continue
			}
			t := float32(v.consumed) / float32(v.rampTotal)
			gain := v.currentGain + (v.targetGain-v.currentGain)*t
			out[i] = s * gain
			v.consumed++
		}
		if v.consumed >= v.rampTotal {
			v.currentGain = v.targetGain
			v.ramping = false
		}
	}

	v.stats.BuffersProcessed++
	v.stats.SamplesProcessed += uint64(len(out))
	return audiocore.MustBuffer(input.Format, out, input.Timestamp), nil
}

// OutputFormat preserves the input format.
func (v *VolumeControl) OutputFormat(input audiocore.AudioFormat) audiocore.AudioFormat {
	return input
}

// Reset cancels any ramp and returns to unity gain.
func (v *VolumeControl) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentGain = 1.0
	v.targetGain = 1.0
	v.ramping = false
	v.consumed = 0
	v.rampTotal = 0
	v.stats = audiocore.ProcessorStats{}
}

// Stats returns processing counters.
func (v *VolumeControl) Stats() audiocore.ProcessorStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// Name identifies the processor.
func (v *VolumeControl) Name() string {
	return "VolumeControl"
}

var _ audiocore.Processor = (*VolumeControl)(nil)
