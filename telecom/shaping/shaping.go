// Package shaping builds the pulse-shaping and matched filters of a
// waveform from designer output and runs symbols through them.
package shaping

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cwbudde/algo-modem/dsp/filter/design"
	"github.com/cwbudde/algo-modem/dsp/filter/fir"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

// ErrOversampling is returned for oversampling factors below 1.
var ErrOversampling = errors.New("shaping: oversampling factor must be >= 1")

// PulseTaps returns the transmit pulse of w at osf samples per symbol.
// Linear waveforms get a unit-energy amplitude pulse; FSK waveforms get a
// frequency pulse summing to osf, so that a symbol of level a advances the
// phase by pi*h*a.
func PulseTaps(w *waveform.Waveform, osf int, designer design.Designer) ([]float64, error) {
	if osf < 1 {
		return nil, fmt.Errorf("%w: %d", ErrOversampling, osf)
	}
	if designer == nil {
		designer = design.Default
	}
	if w.IsLinear() {
		return designer.Design(w.Filter(), osf)
	}
	return FrequencyPulse(w.Filter(), osf, designer)
}

// FrequencyPulse returns an FSK frequency pulse: a rectangle of osf samples
// smoothed by the spec's filter (NRZ and None leave it rectangular).
func FrequencyPulse(spec design.Spec, osf int, designer design.Designer) ([]float64, error) {
	rect := make([]float64, osf)
	for i := range rect {
		rect[i] = 1
	}
	switch spec.Type {
	case design.TypeNRZ, design.TypeNone:
		return rect, nil
	}

	h, err := designer.Design(spec, osf)
	if err != nil {
		return nil, err
	}
	h = design.UnitGain(slices.Clone(h))

	out := make([]float64, len(h)+osf-1)
	for i, a := range h {
		for j, b := range rect {
			out[i+j] += a * b
		}
	}
	return out, nil
}

// MatchedTaps returns the receive filter for w. Linear waveforms use the
// time-reversed pulse, whose output peaks at symbol centres with unit gain;
// FSK discriminator output is integrated over one symbol by a normalised
// boxcar.
func MatchedTaps(w *waveform.Waveform, osf int, designer design.Designer) ([]float64, error) {
	if !w.IsLinear() {
		if osf < 1 {
			return nil, fmt.Errorf("%w: %d", ErrOversampling, osf)
		}
		h := make([]float64, osf)
		for i := range h {
			h[i] = 1 / float64(osf)
		}
		return h, nil
	}
	p, err := PulseTaps(w, osf, designer)
	if err != nil {
		return nil, err
	}
	slices.Reverse(p)
	return p, nil
}

// Shaper converts a symbol stream into shaped samples.
type Shaper struct {
	up   *fir.Upsampler
	osf  int
	taps int
}

// NewShaper returns a shaper using pulse taps at osf samples per symbol.
func NewShaper(taps []float64, osf int) (*Shaper, error) {
	if osf < 1 {
		return nil, fmt.Errorf("%w: %d", ErrOversampling, osf)
	}
	if len(taps) == 0 {
		return nil, fmt.Errorf("shaping: empty pulse")
	}
	return &Shaper{up: fir.NewUpsampler(taps, osf), osf: osf, taps: len(taps)}, nil
}

// OSF returns the samples per symbol.
func (s *Shaper) OSF() int { return s.osf }

// Delay returns the pulse group delay in samples.
func (s *Shaper) Delay() float64 { return float64(s.taps-1) / 2 }

// Process shapes symbols, returning osf samples per symbol.
func (s *Shaper) Process(symbols []complex128) []complex128 {
	return s.up.Process(symbols)
}

// Flush returns the len(taps)-1 samples still ringing after the last symbol
// and resets the shaper.
func (s *Shaper) Flush() []complex128 {
	tail := s.up.Process(make([]complex128, s.up.Depth()))
	s.up.Reset()
	return tail[:s.taps-1]
}

// Burst shapes a complete symbol sequence including the filter tail:
// len(symbols)*osf + len(taps) - 1 samples.
func (s *Shaper) Burst(symbols []complex128) []complex128 {
	s.up.Reset()
	out := s.Process(symbols)
	return append(out, s.Flush()...)
}

// Reset clears the shaper state.
func (s *Shaper) Reset() { s.up.Reset() }

// NewMatchedFilter returns a streaming FIR running taps.
func NewMatchedFilter(taps []float64) *fir.Filter {
	return fir.New(taps)
}
