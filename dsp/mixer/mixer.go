// Package mixer provides a numerically controlled oscillator for shifting
// complex sample streams in frequency.
package mixer

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrequency is returned for frequencies outside [-0.5, 0.5].
var ErrInvalidFrequency = errors.New("mixer: frequency must be finite and within [-0.5, 0.5] cycles/sample")

// NCO multiplies samples by exp(j*phase) with a phase advancing by a fixed
// increment per sample. The phase is continuous across calls.
type NCO struct {
	freq  float64
	inc   float64
	phase float64
}

// New returns an oscillator at freq cycles per sample. Negative frequencies
// shift down.
func New(freq float64) (*NCO, error) {
	n := &NCO{}
	if err := n.SetFrequency(freq); err != nil {
		return nil, err
	}
	return n, nil
}

// SetFrequency changes the frequency without a phase discontinuity.
func (n *NCO) SetFrequency(freq float64) error {
	if math.IsNaN(freq) || math.IsInf(freq, 0) || math.Abs(freq) > 0.5 {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, freq)
	}
	n.freq = freq
	n.inc = 2 * math.Pi * freq
	return nil
}

// Frequency returns the frequency in cycles per sample.
func (n *NCO) Frequency() float64 { return n.freq }

// Phase returns the phase applied to the next sample, in [0, 2*pi).
func (n *NCO) Phase() float64 { return n.phase }

// SetPhase sets the phase applied to the next sample.
func (n *NCO) SetPhase(phase float64) {
	n.phase = math.Mod(phase, 2*math.Pi)
	if n.phase < 0 {
		n.phase += 2 * math.Pi
	}
}

// Reset returns the phase to zero.
func (n *NCO) Reset() { n.phase = 0 }

// Next returns the current oscillator value and advances the phase.
func (n *NCO) Next() complex128 {
	s, c := math.Sincos(n.phase)
	n.phase += n.inc
	if n.phase >= 2*math.Pi {
		n.phase -= 2 * math.Pi
	} else if n.phase < 0 {
		n.phase += 2 * math.Pi
	}
	return complex(c, s)
}

// MixSample returns x shifted by the oscillator.
func (n *NCO) MixSample(x complex128) complex128 {
	return x * n.Next()
}

// Mix writes src shifted by the oscillator to dst. dst and src may alias.
func (n *NCO) Mix(dst, src []complex128) {
	if len(dst) < len(src) {
		panic("mixer: dst shorter than src")
	}
	for i, x := range src {
		dst[i] = x * n.Next()
	}
}

// MixInPlace shifts buf in place.
func (n *NCO) MixInPlace(buf []complex128) {
	n.Mix(buf, buf)
}
