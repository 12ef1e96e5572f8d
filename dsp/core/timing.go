package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRate is returned when a sample or symbol rate is not positive.
	ErrInvalidRate = errors.New("core: rates must be positive")
	// ErrNotMultiple is returned when the sample rate is not an integer multiple of the symbol rate.
	ErrNotMultiple = errors.New("core: sample rate is not a multiple of the symbol rate")
)

// Timing describes the sample clock of a link.
type Timing struct {
	SampleRate            float64
	SymbolRate            float64
	IntermediateFrequency float64
}

// TimingOption mutates a Timing.
type TimingOption func(*Timing)

// DefaultTiming returns 400 kS/s at 100 kBd on baseband.
func DefaultTiming() Timing {
	return Timing{
		SampleRate: 400e3,
		SymbolRate: 100e3,
	}
}

// WithSampleRate sets the sample rate in Hz.
func WithSampleRate(sampleRate float64) TimingOption {
	return func(t *Timing) {
		t.SampleRate = sampleRate
	}
}

// WithSymbolRate sets the symbol rate in Bd.
func WithSymbolRate(symbolRate float64) TimingOption {
	return func(t *Timing) {
		t.SymbolRate = symbolRate
	}
}

// WithIntermediateFrequency sets the carrier offset of the burst in Hz.
func WithIntermediateFrequency(freq float64) TimingOption {
	return func(t *Timing) {
		t.IntermediateFrequency = freq
	}
}

// NewTiming applies opts to DefaultTiming and validates the result.
func NewTiming(opts ...TimingOption) (Timing, error) {
	t := DefaultTiming()
	for _, opt := range opts {
		if opt != nil {
			opt(&t)
		}
	}

	if err := t.Validate(); err != nil {
		return Timing{}, err
	}

	return t, nil
}

// Validate checks that both rates are positive and that the sample rate is an
// integer multiple of the symbol rate.
func (t Timing) Validate() error {
	if !(t.SampleRate > 0) || !(t.SymbolRate > 0) {
		return fmt.Errorf("%w: fs=%v, fsymb=%v", ErrInvalidRate, t.SampleRate, t.SymbolRate)
	}

	ratio := t.SampleRate / t.SymbolRate
	if ratio < 1 || math.Abs(ratio-math.Round(ratio)) > 1e-9*ratio {
		return fmt.Errorf("%w: fs=%v, fsymb=%v", ErrNotMultiple, t.SampleRate, t.SymbolRate)
	}

	return nil
}

// OSF returns the oversampling factor fs/fsymb. Call Validate first.
func (t Timing) OSF() int {
	return int(math.Round(t.SampleRate / t.SymbolRate))
}

// NormalizedIF returns the intermediate frequency in cycles per sample.
func (t Timing) NormalizedIF() float64 {
	if t.SampleRate == 0 {
		return 0
	}
	return t.IntermediateFrequency / t.SampleRate
}
