package detect

import (
	"math"

	"github.com/cwbudde/algo-modem/dsp/interp"
)

// maxSNR caps estimates when the residual vanishes.
const maxSNR = 200.0

// EstimateSNR compares x with the reference pattern delayed by frac
// (0 <= frac < 1) and scaled by gain: x[m] ~ gain * pattern(m - frac).
// The first two and last three samples are skipped because the cubic
// reference is not defined there. It returns the per-sample SNR in dB and
// the noise standard deviation.
func EstimateSNR(x, pattern []complex128, gain complex128, frac float64) (snrDB, noiseStd float64) {
	m := len(pattern)
	if len(x) < m {
		m = len(x)
	}

	var noise float64
	n := 0
	for i := 2; i < m-3; i++ {
		r := x[i] - gain*interp.At(pattern, float64(i)-frac)
		noise += real(r)*real(r) + imag(r)*imag(r)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	noise /= float64(n)

	var energy float64
	for _, p := range pattern {
		energy += real(p)*real(p) + imag(p)*imag(p)
	}
	g2 := real(gain)*real(gain) + imag(gain)*imag(gain)
	signal := g2 * energy / float64(len(pattern))

	switch {
	case signal == 0:
		return -maxSNR, math.Sqrt(noise)
	case noise <= signal*1e-20:
		return maxSNR, math.Sqrt(noise)
	}
	return 10 * math.Log10(signal/noise), math.Sqrt(noise)
}
