package detect

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Detection is one preamble occurrence.
type Detection struct {
	// Position is the fractional stream index of the first preamble sample.
	Position float64
	// Score is the normalised correlation in [0, 1].
	Score float64
	// Gain is the complex channel gain relative to the reference pattern.
	Gain complex128
	// Amplitude and Phase satisfy Amplitude*exp(j*Phase) == Gain with Phase
	// in (-pi/2, pi/2]; Amplitude is negative when the gain points to the
	// left half plane.
	Amplitude float64
	Phase     float64
	// SNR is the per-sample signal to noise ratio in dB.
	SNR float64
	// NoiseStdDev is the standard deviation of the residual noise.
	NoiseStdDev float64
}

// Index returns the integer part of Position.
func (d Detection) Index() int64 {
	return int64(math.Floor(d.Position))
}

// Fraction returns Position - Index(), in [0, 1).
func (d Detection) Fraction() float64 {
	return d.Position - math.Floor(d.Position)
}

// String formats the detection for logs.
func (d Detection) String() string {
	return fmt.Sprintf("pos=%.2f score=%.3f gain=%.3f phase=%.1fdeg snr=%.1fdB",
		d.Position, d.Score, cmplx.Abs(d.Gain), d.Phase*180/math.Pi, d.SNR)
}

// foldPhase splits g into a signed amplitude and a phase in (-pi/2, pi/2].
func foldPhase(g complex128) (float64, float64) {
	a := cmplx.Abs(g)
	theta := cmplx.Phase(g)
	switch {
	case theta > math.Pi/2:
		return -a, theta - math.Pi
	case theta <= -math.Pi/2:
		return -a, theta + math.Pi
	}
	return a, theta
}
