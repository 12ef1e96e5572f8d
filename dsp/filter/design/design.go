package design

import (
	"fmt"
	"math"

	segdsp "github.com/racerxdl/segdsp/dsp"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/window"
)

// Designer turns a Spec into FIR coefficients for oversampling factor osf.
type Designer interface {
	Design(spec Spec, osf int) ([]float64, error)
}

// DesignerFunc adapts a function to the Designer interface.
type DesignerFunc func(spec Spec, osf int) ([]float64, error)

// Design calls f.
func (f DesignerFunc) Design(spec Spec, osf int) ([]float64, error) {
	return f(spec, osf)
}

// Default is the designer used when callers do not inject one.
var Default Designer = DesignerFunc(designDefault)

// Design designs spec with the Default designer.
func Design(spec Spec, osf int) ([]float64, error) {
	return Default.Design(spec, osf)
}

func designDefault(spec Spec, osf int) ([]float64, error) {
	if osf < 1 {
		return nil, fmt.Errorf("%w: %d", ErrOversampling, osf)
	}
	spec = spec.Defaults(osf)
	if spec.NumTaps < 1 {
		return nil, fmt.Errorf("%w: %d taps", ErrInvalidSpec, spec.NumTaps)
	}

	taps := spec.NumTaps
	if spec.IsPulse() && spec.Type != TypeNRZ && taps%2 == 0 {
		taps++
	}

	var h []float64
	switch spec.Type {
	case TypeNone:
		h = []float64{1}
	case TypeNRZ:
		h = make([]float64, taps)
		for i := range h {
			h[i] = 1
		}
	case TypeRRC:
		if spec.Rolloff <= 0 || spec.Rolloff > 1 {
			return nil, fmt.Errorf("%w: rolloff %v", ErrInvalidSpec, spec.Rolloff)
		}
		h = RootRaisedCosine(taps, osf, spec.Rolloff)
	case TypeRC:
		if spec.Rolloff <= 0 || spec.Rolloff > 1 {
			return nil, fmt.Errorf("%w: rolloff %v", ErrInvalidSpec, spec.Rolloff)
		}
		h = RaisedCosine(taps, osf, spec.Rolloff)
	case TypeGaussian:
		if spec.BT <= 0 {
			return nil, fmt.Errorf("%w: BT %v", ErrInvalidSpec, spec.BT)
		}
		h = Gaussian(taps, osf, spec.BT)
	case TypeLowPass:
		if spec.Cutoff <= 0 || spec.Cutoff >= 0.5 || spec.Transition <= 0 {
			return nil, fmt.Errorf("%w: cutoff %v, transition %v", ErrInvalidSpec, spec.Cutoff, spec.Transition)
		}
		h = widen(segdsp.MakeLowPass(1, 1, spec.Cutoff, spec.Transition))
		return UnitGain(h), nil
	case TypeWindowedLowPass:
		if spec.Cutoff <= 0 || spec.Cutoff >= 0.5 {
			return nil, fmt.Errorf("%w: cutoff %v", ErrInvalidSpec, spec.Cutoff)
		}
		return WindowedLowPass(taps, spec.Cutoff, spec.Window), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, spec.Type)
	}

	return UnitEnergy(h), nil
}

func widen(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// UnitEnergy scales h in place so that sum(h^2) == 1 and returns it.
func UnitEnergy(h []float64) []float64 {
	var e float64
	for _, v := range h {
		e += v * v
	}
	if e == 0 {
		return h
	}
	g := 1 / math.Sqrt(e)
	for i := range h {
		h[i] *= g
	}
	return h
}

// UnitGain scales h in place so that sum(h) == 1 and returns it.
func UnitGain(h []float64) []float64 {
	var s float64
	for _, v := range h {
		s += v
	}
	if s == 0 {
		return h
	}
	for i := range h {
		h[i] /= s
	}
	return h
}

// RaisedCosine returns an RC pulse of taps samples (centred) with osf samples
// per symbol.
func RaisedCosine(taps, osf int, rolloff float64) []float64 {
	h := make([]float64, taps)
	mid := float64(taps-1) / 2
	for i := range h {
		t := (float64(i) - mid) / float64(osf)
		den := 1 - 4*rolloff*rolloff*t*t
		if math.Abs(den) < 1e-9 {
			h[i] = math.Pi / 4 * core.Sinc(1/(2*rolloff))
			continue
		}
		h[i] = core.Sinc(t) * math.Cos(math.Pi*rolloff*t) / den
	}
	return h
}

// RootRaisedCosine returns an RRC pulse of taps samples (centred) with osf
// samples per symbol.
func RootRaisedCosine(taps, osf int, rolloff float64) []float64 {
	h := make([]float64, taps)
	mid := float64(taps-1) / 2
	for i := range h {
		t := (float64(i) - mid) / float64(osf)
		h[i] = rrcAt(t, rolloff)
	}
	return h
}

// rrcAt evaluates the RRC impulse response at t symbols.
func rrcAt(t, b float64) float64 {
	if math.Abs(t) < 1e-9 {
		return 1 - b + 4*b/math.Pi
	}
	x := 4 * b * t
	if math.Abs(math.Abs(x)-1) < 1e-9 {
		a := math.Pi / (4 * b)
		return b / math.Sqrt2 * ((1+2/math.Pi)*math.Sin(a) + (1-2/math.Pi)*math.Cos(a))
	}
	num := math.Sin(math.Pi*t*(1-b)) + x*math.Cos(math.Pi*t*(1+b))
	return num / (math.Pi * t * (1 - x*x))
}

// Gaussian returns a Gaussian frequency pulse with bandwidth-time product bt.
func Gaussian(taps, osf int, bt float64) []float64 {
	h := make([]float64, taps)
	mid := float64(taps-1) / 2
	k := 2 * math.Pi * math.Pi * bt * bt / math.Ln2
	for i := range h {
		t := (float64(i) - mid) / float64(osf)
		h[i] = math.Exp(-k * t * t)
	}
	return h
}

// WindowedLowPass returns a windowed-sinc low-pass with unit DC gain.
// cutoff is in cycles per sample.
func WindowedLowPass(taps int, cutoff float64, w window.Type) []float64 {
	h := make([]float64, taps)
	mid := float64(taps-1) / 2
	for i := range h {
		h[i] = 2 * cutoff * core.Sinc(2*cutoff*(float64(i)-mid))
	}
	window.Apply(w, h)
	return UnitGain(h)
}

// FractionalDelay returns a windowed-sinc filter of taps samples whose group
// delay is (taps-1)/2 + frac samples, frac in [0, 1).
func FractionalDelay(taps int, frac float64, w window.Type) []float64 {
	h := make([]float64, taps)
	centre := float64(taps-1)/2 + frac
	width := float64(taps + 1)
	for i := range h {
		t := float64(i) - centre
		h[i] = core.Sinc(t) * window.At(w, 0.5+t/width)
	}
	return UnitGain(h)
}
