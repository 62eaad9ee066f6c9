package audiocore

import (
	"encoding/binary"
	"math"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
)

// Normalization divisors for integer sample formats. Conversions divide on
// decode and multiply with clamping on encode, so a full-scale integer maps
// to +/-1.0 and round trips within one quantization step.
const (
	maxI16 = 32767.0
	maxI24 = 8388607.0
	maxI32 = 2147483647.0
)

// clampUnit limits a sample to the normalized [-1, 1] range.
func clampUnit(s float32) float32 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

// DecodeSamples converts little-endian wire bytes in the given format to
// normalized float32 samples.
func DecodeSamples(format SampleFormat, data []byte) ([]float32, error) {
	return DecodeSamplesInto(nil, format, data)
}

// DecodeSamplesInto decodes into dst when its capacity suffices, so capture
// paths can reuse pooled vectors instead of allocating per chunk. The
// returned slice holds exactly the decoded samples.
func DecodeSamplesInto(dst []float32, format SampleFormat, data []byte) ([]float32, error) {
	bps := format.BytesPerSample()
	if bps == 0 {
		return nil, errors.Newf("unsupported sample format %v", format).
			Category(errors.CategoryFormat).
			Build()
	}
	if len(data)%bps != 0 {
		return nil, errors.Newf("byte count %d is not a multiple of sample size %d", len(data), bps).
			Category(errors.CategoryFormat).
			Build()
	}

	n := len(data) / bps
	samples := dst
	if cap(samples) < n {
		samples = make([]float32, n)
	}
	samples = samples[:n]

	switch format {
	case SampleFormatF32:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			samples[i] = math.Float32frombits(bits)
		}
	case SampleFormatI16:
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = float32(v) / maxI16
		}
	case SampleFormatI24:
		for i := 0; i < n; i++ {
			v := int32(data[i*3]) | int32(data[i*3+1])<<8 | int32(data[i*3+2])<<16
			// Sign-extend from 24 bits
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			samples[i] = float32(v) / maxI24
		}
	case SampleFormatI32:
		for i := 0; i < n; i++ {
			v := int32(binary.LittleEndian.Uint32(data[i*4:]))
			samples[i] = float32(float64(v) / maxI32)
		}
	}

	return samples, nil
}

// EncodeSamples converts normalized float32 samples to little-endian wire
// bytes in the given format, clamping out-of-range values.
func EncodeSamples(format SampleFormat, samples []float32) []byte {
	bps := format.BytesPerSample()
	data := make([]byte, len(samples)*bps)

	switch format {
	case SampleFormatF32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
		}
	case SampleFormatI16:
		for i, s := range samples {
			v := int16(clampUnit(s) * maxI16)
			binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
		}
	case SampleFormatI24:
		for i, s := range samples {
			v := int32(clampUnit(s) * maxI24)
			data[i*3] = byte(v)
			data[i*3+1] = byte(v >> 8)
			data[i*3+2] = byte(v >> 16)
		}
	case SampleFormatI32:
		for i, s := range samples {
			v := int32(float64(clampUnit(s)) * maxI32)
			binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
		}
	}

	return data
}

// FloatToInt scales one normalized sample to the integer range of the given
// format with clamping. F32 returns the IEEE bit pattern so the caller can
// write it through integer-oriented encoders.
func FloatToInt(format SampleFormat, s float32) int {
	switch format {
	case SampleFormatI16:
		return int(clampUnit(s) * maxI16)
	case SampleFormatI24:
		return int(clampUnit(s) * maxI24)
	case SampleFormatI32:
		return int(int32(float64(clampUnit(s)) * maxI32))
	case SampleFormatF32:
		return int(int32(math.Float32bits(s)))
	default:
		return 0
	}
}

// IntToFloat is the inverse of FloatToInt for integer formats.
func IntToFloat(format SampleFormat, v int) float32 {
	switch format {
	case SampleFormatI16:
		return float32(v) / maxI16
	case SampleFormatI24:
		return float32(v) / maxI24
	case SampleFormatI32:
		return float32(float64(v) / maxI32)
	case SampleFormatF32:
		return math.Float32frombits(uint32(int32(v)))
	default:
		return 0
	}
}
