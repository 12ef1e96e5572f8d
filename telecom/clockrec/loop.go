package clockrec

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/interp"
)

// Errors returned by New.
var (
	ErrOversampling = errors.New("clockrec: oversampling factor must be >= 2")
	ErrTimeConstant = errors.New("clockrec: time constant must be > 0")
)

// Config configures a Loop.
type Config struct {
	// OSF is the number of input samples per symbol.
	OSF int
	// TimeConstant is the loop filter time constant in symbols.
	TimeConstant float64
	// Interpolator selects the interpolation kernel.
	Interpolator interp.Kind
	// Enabled turns the timing correction on. A disabled loop still
	// interpolates at the nominal timing set by Reset.
	Enabled bool
}

// Interpolant is one output of the loop.
type Interpolant struct {
	Value complex128
	// OnSymbol is false for the mid-symbol interpolant preceding each
	// symbol.
	OnSymbol bool
}

// Loop is a symbol timing recovery loop. It is not safe for concurrent
// use.
type Loop struct {
	cfg    Config
	kernel interp.Kernel
	osf    float64
	gain   float64
	taps   int
	// window holds one sample more than the kernel needs so that an
	// instant that is already late can still be interpolated.
	window []complex128

	phase    float64
	skip     int
	onSymbol bool
	mid      complex128
	offset   float64

	updates    int
	degenerate int
}

// New validates cfg and returns a loop. Call Reset before the first Push.
func New(cfg Config) (*Loop, error) {
	if cfg.OSF < 2 {
		return nil, fmt.Errorf("%w: %d", ErrOversampling, cfg.OSF)
	}
	if cfg.Enabled && !(cfg.TimeConstant > 0) {
		return nil, fmt.Errorf("%w: %v", ErrTimeConstant, cfg.TimeConstant)
	}
	kernel, err := interp.New(cfg.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("clockrec: %w", err)
	}

	osf := float64(cfg.OSF)
	l := &Loop{
		cfg:    cfg,
		kernel: kernel,
		osf:    osf,
		taps:   kernel.Taps(),
		window: make([]complex128, kernel.Taps()+1),
	}
	if cfg.Enabled {
		l.gain = osf * (1 - math.Exp(-1/(cfg.TimeConstant*osf)))
	}
	l.Reset(osf/2 + 1)
	return l, nil
}

// OSF returns the oversampling factor.
func (l *Loop) OSF() int { return l.cfg.OSF }

// Enabled reports whether Update corrects the timing.
func (l *Loop) Enabled() bool { return l.cfg.Enabled }

// Gain returns the loop gain, in samples per unit of timing error.
func (l *Loop) Gain() float64 { return l.gain }

// Taps returns the interpolation window length K.
func (l *Loop) Taps() int { return l.taps }

// Phase returns the sampling phase accumulator, in samples.
func (l *Loop) Phase() float64 { return l.phase }

// Offset returns the timing correction accumulated since Reset, in
// samples. A positive offset means the loop now samples later than the
// nominal timing.
func (l *Loop) Offset() float64 { return l.offset }

// Updates returns the number of corrections applied since Reset.
func (l *Loop) Updates() int { return l.updates }

// Degenerate returns the number of non-finite errors ignored since Reset.
func (l *Loop) Degenerate() int { return l.degenerate }

// Mid returns the last mid-symbol interpolant.
func (l *Loop) Mid() complex128 { return l.mid }

// Reset clears the loop and schedules the first interpolant, a mid-symbol
// one, at delay-K/2-1 samples after the first sample pushed. Delays larger
// than one symbol are consumed by skipping samples so that the phase stays
// within [0, OSF].
func (l *Loop) Reset(delay float64) {
	if !core.IsFinite(delay) || delay < 0 {
		delay = 0
	}
	skip := 0
	if delay > l.osf {
		skip = int(math.Ceil(delay - l.osf))
	}
	l.phase = delay - float64(skip)
	l.skip = skip
	l.onSymbol = false
	l.mid = 0
	l.offset = 0
	l.updates = 0
	l.degenerate = 0
	for i := range l.window {
		l.window[i] = 0
	}
}

// ResetAt resets the loop so that its first on-symbol interpolant falls
// on firstSymbol, a fractional position counted from the first sample
// pushed. The preceding mid-symbol interpolant is half a symbol earlier.
func (l *Loop) ResetAt(firstSymbol float64) {
	l.Reset(l.DelayFor(firstSymbol))
}

// DelayFor returns the Reset delay placing the first on-symbol interpolant
// at firstSymbol.
func (l *Loop) DelayFor(firstSymbol float64) float64 {
	return firstSymbol - l.osf/2 + float64(l.taps)/2 + 1
}

// Push feeds one sample. It returns an interpolant every OSF/2 samples,
// alternating mid-symbol and on-symbol values.
func (l *Loop) Push(x complex128) (Interpolant, bool) {
	copy(l.window, l.window[1:])
	l.window[l.taps] = x

	if l.skip > 0 {
		l.skip--
		return Interpolant{}, false
	}

	l.phase--
	if l.phase > 1 {
		return Interpolant{}, false
	}

	// At low OSF an early correction can leave the instant up to one
	// sample behind; the phase keeps the deficit.
	var y complex128
	if l.phase >= 0 {
		y = l.kernel.Interpolate(l.window[1:], l.phase)
	} else {
		y = l.kernel.Interpolate(l.window[:l.taps], l.phase+1)
	}
	l.phase += l.osf / 2

	out := Interpolant{Value: y, OnSymbol: l.onSymbol}
	if !l.onSymbol {
		l.mid = y
	}
	l.onSymbol = !l.onSymbol
	return out, true
}

// Update applies a timing error measured on the last symbol. Positive
// errors (late sampling) move the sampling instant earlier. The correction
// is limited to a quarter symbol and never moves the next instant before
// the current sample; non-finite errors are counted and ignored.
func (l *Loop) Update(err float64) {
	if !l.cfg.Enabled {
		return
	}
	if !core.IsFinite(err) {
		l.degenerate++
		return
	}
	dec := core.Clamp(l.gain*err, -l.osf/4, l.osf/4)
	dec = math.Min(dec, l.phase)
	l.phase -= dec
	l.offset -= dec
	l.updates++
}
