package interp

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/window"
)

// ErrUnknownKind is returned by ParseKind for unknown kernel names.
var ErrUnknownKind = errors.New("interp: unknown kernel")

// Kind selects an interpolation kernel.
type Kind int

const (
	KindCubic Kind = iota
	KindLinear
	KindSinc
)

// String returns the kernel name used in configuration files.
func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindCubic:
		return "cubic"
	case KindSinc:
		return "sinc"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps "linear", "cubic" or "sinc" to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return KindLinear, nil
	case "", "cubic", "spline":
		return KindCubic, nil
	case "sinc":
		return KindSinc, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Kernel interpolates between the two centre samples of a window.
type Kernel interface {
	Taps() int
	Interpolate(w []complex128, mu float64) complex128
}

// New returns the kernel for kind with default parameters.
func New(kind Kind) (Kernel, error) {
	switch kind {
	case KindLinear:
		return Linear{}, nil
	case KindCubic:
		return Cubic{}, nil
	case KindSinc:
		return NewSinc(8, window.TypeHann)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// Linear is 2-point linear interpolation.
type Linear struct{}

func (Linear) Taps() int { return 2 }

func (Linear) Interpolate(w []complex128, mu float64) complex128 {
	return w[0] + complex(mu, 0)*(w[1]-w[0])
}

// Cubic is 4-point Catmull-Rom interpolation between w[1] and w[2].
type Cubic struct{}

func (Cubic) Taps() int { return 4 }

func (Cubic) Interpolate(w []complex128, mu float64) complex128 {
	return Hermite4Complex(mu, w[0], w[1], w[2], w[3])
}

// Sinc is a windowed-sinc kernel with an even number of taps.
type Sinc struct {
	taps  int
	win   window.Type
	coefs []float64
}

// NewSinc returns a windowed-sinc kernel. taps must be even and >= 4.
func NewSinc(taps int, win window.Type) (*Sinc, error) {
	if taps < 4 || taps%2 != 0 {
		return nil, fmt.Errorf("interp: sinc taps must be even and >= 4, got %d", taps)
	}
	return &Sinc{taps: taps, win: win, coefs: make([]float64, taps)}, nil
}

func (s *Sinc) Taps() int { return s.taps }

func (s *Sinc) Interpolate(w []complex128, mu float64) complex128 {
	centre := float64(s.taps/2-1) + mu
	width := float64(s.taps + 1)

	var sum float64
	for i := range s.coefs {
		t := float64(i) - centre
		c := core.Sinc(t) * window.At(s.win, 0.5+t/width)
		s.coefs[i] = c
		sum += c
	}

	var acc complex128
	for i, c := range s.coefs {
		acc += complex(c/sum, 0) * w[i]
	}
	return acc
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// Hermite4Complex applies Hermite4 to both parts of complex samples.
func Hermite4Complex(t float64, xm1, x0, x1, x2 complex128) complex128 {
	return complex(
		Hermite4(t, real(xm1), real(x0), real(x1), real(x2)),
		Hermite4(t, imag(xm1), imag(x0), imag(x1), imag(x2)),
	)
}

// At returns x(t) for a sampled sequence using cubic interpolation, treating
// samples outside [0, len(x)) as zero.
func At(x []complex128, t float64) complex128 {
	i := int(math.Floor(t))
	mu := t - float64(i)
	get := func(k int) complex128 {
		if k < 0 || k >= len(x) {
			return 0
		}
		return x[k]
	}
	return Hermite4Complex(mu, get(i-1), get(i), get(i+1), get(i+2))
}
