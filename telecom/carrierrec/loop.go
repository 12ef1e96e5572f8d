package carrierrec

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

// ErrLoop is returned for invalid loop parameters.
var ErrLoop = errors.New("carrierrec: invalid loop parameters")

// Config configures a Loop.
type Config struct {
	// Enabled turns carrier tracking on. A disabled loop passes samples
	// through unchanged.
	Enabled bool
	// Order is 1 or 2; 0 selects 2.
	Order int
	// LoopBandwidth is the normalised bandwidth B_L*T of the second-order
	// filter.
	LoopBandwidth float64
	// Damping is the second-order damping factor eta.
	Damping float64
	// TimeConstant is the first-order time constant, in symbols.
	TimeConstant float64
	// Detector selects the phase error detector.
	Detector Detector
}

// Loop is a carrier recovery loop. It is not safe for concurrent use.
type Loop struct {
	cfg    Config
	ped    PED
	filter LoopFilter
	second *SecondOrder
	rot    complex128

	degenerate int
}

// New validates cfg and returns a loop for waveform w.
func New(cfg Config, w *waveform.Waveform) (*Loop, error) {
	l := &Loop{cfg: cfg, rot: 1}
	if !cfg.Enabled {
		return l, nil
	}

	if cfg.Order == 0 {
		cfg.Order = 2
		l.cfg.Order = 2
	}
	switch cfg.Order {
	case 1:
		if !(cfg.TimeConstant > 0) {
			return nil, fmt.Errorf("%w: time constant %v", ErrLoop, cfg.TimeConstant)
		}
		l.filter = NewFirstOrder(cfg.TimeConstant)
	case 2:
		if !(cfg.LoopBandwidth > 0 && cfg.LoopBandwidth < 0.5) || !(cfg.Damping > 0) {
			return nil, fmt.Errorf("%w: bandwidth %v, damping %v", ErrLoop, cfg.LoopBandwidth, cfg.Damping)
		}
		l.second = NewSecondOrder(cfg.LoopBandwidth, cfg.Damping)
		l.filter = l.second
	default:
		return nil, fmt.Errorf("%w: order %d", ErrLoop, cfg.Order)
	}

	ped, err := NewPED(cfg.Detector, w)
	if err != nil {
		return nil, err
	}
	l.ped = ped
	return l, nil
}

// Enabled reports whether the loop tracks the carrier.
func (l *Loop) Enabled() bool { return l.cfg.Enabled }

// Order returns the loop filter order, 0 when disabled.
func (l *Loop) Order() int {
	if !l.cfg.Enabled {
		return 0
	}
	return l.cfg.Order
}

// Phase returns the current phase estimate in (-pi, pi].
func (l *Loop) Phase() float64 {
	if l.filter == nil {
		return 0
	}
	return l.filter.Phase()
}

// Frequency returns the tracked frequency offset in radians per symbol.
// First-order loops do not track frequency and return 0.
func (l *Loop) Frequency() float64 {
	if l.second == nil {
		return 0
	}
	return l.second.Frequency()
}

// SetFrequency seeds the second-order integrator with a frequency offset in
// radians per symbol. It is ignored by first-order and disabled loops.
func (l *Loop) SetFrequency(w float64) {
	if l.second != nil && core.IsFinite(w) {
		l.second.SetFrequency(w)
	}
}

// SetPhase sets the phase estimate, for example to the phase expected at
// the first symbol of a burst. It is ignored by disabled loops.
func (l *Loop) SetPhase(theta float64) {
	if l.filter != nil && core.IsFinite(theta) {
		l.filter.SetPhase(theta)
		l.rot = core.Rotor(-l.filter.Phase())
	}
}

// Degenerate returns the number of non-finite errors ignored since Reset.
func (l *Loop) Degenerate() int { return l.degenerate }

// Reset zeroes the phase, the frequency and the counters.
func (l *Loop) Reset() {
	if l.filter != nil {
		l.filter.Reset()
	}
	l.rot = 1
	l.degenerate = 0
}

// Derotate returns x rotated by the current phase estimate, x*exp(-j*theta).
func (l *Loop) Derotate(x complex128) complex128 {
	return x * l.rot
}

// Detect returns the phase error of a derotated sample, 0 when the loop is
// disabled.
func (l *Loop) Detect(y complex128) float64 {
	if l.ped == nil {
		return 0
	}
	return l.ped(y)
}

// Update feeds one phase error to the loop filter. Non-finite errors are
// counted and skipped.
func (l *Loop) Update(err float64) {
	if l.filter == nil {
		return
	}
	if !core.IsFinite(err) {
		l.degenerate++
		return
	}
	l.rot = core.Rotor(-l.filter.Step(err))
}

// Track runs the detector on the derotated sample y, updates the loop and
// returns the phase error.
func (l *Loop) Track(y complex128) float64 {
	err := l.Detect(y)
	l.Update(err)
	return err
}
