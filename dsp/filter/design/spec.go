package design

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-modem/dsp/window"
)

// Errors returned by designers.
var (
	ErrUnknownType  = errors.New("design: unknown filter type")
	ErrInvalidSpec  = errors.New("design: invalid filter specification")
	ErrOversampling = errors.New("design: oversampling factor must be >= 1")
)

// Type identifies a filter design.
type Type int

const (
	TypeRRC Type = iota
	TypeNone
	TypeNRZ
	TypeRC
	TypeGaussian
	TypeLowPass
	TypeWindowedLowPass
)

var typeNames = map[Type]string{
	TypeRRC:             "rrc",
	TypeNone:            "none",
	TypeNRZ:             "nrz",
	TypeRC:              "rc",
	TypeGaussian:        "gaussian",
	TypeLowPass:         "lowpass",
	TypeWindowedLowPass: "windowed-lowpass",
}

// String returns the configuration name of t.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType maps a configuration name to a Type.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return TypeRRC, nil
	}
	for t, s := range typeNames {
		if s == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Spec describes a filter. Zero values select defaults.
type Spec struct {
	Type Type `koanf:"type" yaml:"type"`
	// NumTaps is the filter length; 0 selects a default span. Pulse shapes
	// are forced to an odd length so that they have an integer delay.
	NumTaps int `koanf:"taps" yaml:"taps,omitempty"`
	// Rolloff is the excess bandwidth of RRC and RC pulses (default 0.35).
	Rolloff float64 `koanf:"rolloff" yaml:"rolloff,omitempty"`
	// BT is the bandwidth-time product of Gaussian pulses (default 0.5).
	BT float64 `koanf:"bt" yaml:"bt,omitempty"`
	// Cutoff is the low-pass corner in cycles per sample.
	Cutoff float64 `koanf:"cutoff" yaml:"cutoff,omitempty"`
	// Transition is the low-pass transition width in cycles per sample.
	Transition float64 `koanf:"transition" yaml:"transition,omitempty"`
	// Window tapers windowed designs (default Hamming).
	Window window.Type `koanf:"window" yaml:"window,omitempty"`
}

// Defaults fills the zero fields of s for oversampling factor osf.
func (s Spec) Defaults(osf int) Spec {
	if s.Rolloff == 0 {
		s.Rolloff = 0.35
	}
	if s.BT == 0 {
		s.BT = 0.5
	}
	if s.Window == window.TypeRectangular {
		s.Window = window.TypeHamming
	}
	if s.NumTaps == 0 {
		switch s.Type {
		case TypeNone:
			s.NumTaps = 1
		case TypeNRZ:
			s.NumTaps = osf
		case TypeGaussian:
			s.NumTaps = 4*osf + 1
		default:
			s.NumTaps = 8*osf + 1
		}
	}
	if s.Transition == 0 {
		s.Transition = s.Cutoff / 2
	}
	return s
}

// IsPulse reports whether the design is a symbol pulse shape (as opposed to
// a low-pass).
func (s Spec) IsPulse() bool {
	switch s.Type {
	case TypeLowPass, TypeWindowedLowPass:
		return false
	}
	return true
}
