// SPDX-License-Identifier: EPL-2.0

package utils

// Full-scale magnitudes for signed linear PCM.
const (
	FullScale16 = 1 << 15
	FullScale24 = 1 << 23
	FullScale32 = 1 << 31
)

func clamp(x float32) float32 {
	if x > 1 {
		return 1
	} else if x < -1 {
		return -1
	}
	return x
}

// FullScale returns the divisor that maps a bitDepth PCM integer to [-1,1].
// Unknown depths fall back to 16-bit.
func FullScale(bitDepth int) float64 {
	switch bitDepth {
	case 8:
		return 1 << 7
	case 24:
		return FullScale24
	case 32:
		return FullScale32
	default:
		return FullScale16
	}
}

// Float32ToPCM converts a normalized sample to a signed integer of bitDepth
// bits, clamping out-of-range input. It never allocates.
func Float32ToPCM(x float32, bitDepth int) int {
	// full scale minus one keeps +1.0 from overflowing
	scale := FullScale(bitDepth) - 1
	return int(float64(clamp(x)) * scale)
}

// PCMToFloat32 is the inverse of Float32ToPCM.
func PCMToFloat32(v int, bitDepth int) float32 {
	return float32(float64(v) / FullScale(bitDepth))
}

// FloatsToPCM converts src into dst and returns the number of samples written.
func FloatsToPCM(dst []int, src []float32, bitDepth int) int {
	n := min(len(dst), len(src))
	scale := FullScale(bitDepth) - 1
	for i, x := range src[:n] {
		dst[i] = int(float64(clamp(x)) * scale)
	}
	return n
}
