package carrierrec

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/cwbudde/algo-modem/telecom/waveform"
)

// ErrDetector is returned for unknown or unsupported phase error
// detectors.
var ErrDetector = errors.New("carrierrec: unsupported phase error detector")

// Detector selects a phase error detector.
type Detector int

const (
	// DetectorAuto picks the power loop for PSK and QAM and the tan loop
	// for ASK.
	DetectorAuto Detector = iota
	// DetectorDecision measures arg(y conj(d)) against the nearest
	// constellation point d.
	DetectorDecision
	// DetectorCostas is the Costas loop for BPSK and QPSK.
	DetectorCostas
	// DetectorPower raises the sample to the constellation symmetry order
	// P and returns the imaginary part, divided by P.
	DetectorPower
	// DetectorTan is the power loop with an arg() output, insensitive to
	// amplitude.
	DetectorTan
)

var detectorNames = map[Detector]string{
	DetectorAuto:     "auto",
	DetectorDecision: "decision",
	DetectorCostas:   "costas",
	DetectorPower:    "power",
	DetectorTan:      "tan",
}

func (d Detector) String() string {
	if s, ok := detectorNames[d]; ok {
		return s
	}
	return fmt.Sprintf("detector(%d)", int(d))
}

// ParseDetector maps a detector name to a Detector.
func ParseDetector(name string) (Detector, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DetectorAuto, nil
	}
	for d, s := range detectorNames {
		if s == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrDetector, name)
}

// MarshalText implements encoding.TextMarshaler.
func (d Detector) MarshalText() ([]byte, error) {
	s, ok := detectorNames[d]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrDetector, int(d))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Detector) UnmarshalText(text []byte) error {
	v, err := ParseDetector(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// PED returns the phase error, in radians, of a derotated sample.
type PED func(y complex128) float64

// NewPED builds the detector kind for waveform w.
func NewPED(kind Detector, w *waveform.Waveform) (PED, error) {
	if !w.IsLinear() {
		return nil, fmt.Errorf("%w: %s has no carrier phase", ErrDetector, w.Name())
	}
	if kind == DetectorAuto {
		kind = DetectorPower
		if w.Family() == waveform.ASK {
			kind = DetectorTan
		}
	}

	switch kind {
	case DetectorDecision:
		return decision(w), nil
	case DetectorCostas:
		return costas(w.M())
	case DetectorPower, DetectorTan:
		p := symmetryOrder(w)
		ref := powerReference(w.Constellation(), p)
		if kind == DetectorPower {
			return power(p, ref), nil
		}
		return tan(p, ref), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrDetector, kind)
}

// symmetryOrder is the rotation order P of the constellation: M for PSK,
// 4 for square QAM and 2 for ASK.
func symmetryOrder(w *waveform.Waveform) int {
	switch w.Family() {
	case waveform.QAM:
		return 4
	case waveform.ASK:
		return 2
	}
	return w.M()
}

// powerReference returns the unit phasor of sum(s^p) over the
// constellation, where a locked power loop settles.
func powerReference(points []complex128, p int) complex128 {
	var sum complex128
	for _, s := range points {
		sum += ipow(s, p)
	}
	if a := cmplx.Abs(sum); a > 0 {
		return sum / complex(a, 0)
	}
	return 1
}

func ipow(x complex128, p int) complex128 {
	out := complex(1, 0)
	for range p {
		out *= x
	}
	return out
}

func decision(w *waveform.Waveform) PED {
	return func(y complex128) float64 {
		c := y * cmplx.Conj(w.Decide(y))
		if c == 0 {
			return 0
		}
		return cmplx.Phase(c)
	}
}

func costas(m int) (PED, error) {
	switch m {
	case 2:
		return func(y complex128) float64 {
			return real(y) * imag(y)
		}, nil
	case 4:
		return func(y complex128) float64 {
			return (sign(real(y))*imag(y) - sign(imag(y))*real(y)) / math.Sqrt2
		}, nil
	}
	return nil, fmt.Errorf("%w: costas loop needs M = 2 or 4, got %d", ErrDetector, m)
}

func power(p int, ref complex128) PED {
	conj := cmplx.Conj(ref)
	return func(y complex128) float64 {
		return imag(ipow(y, p)*conj) / float64(p)
	}
}

func tan(p int, ref complex128) PED {
	conj := cmplx.Conj(ref)
	return func(y complex128) float64 {
		if y == 0 {
			return 0
		}
		return cmplx.Phase(ipow(y, p)*conj) / float64(p)
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
