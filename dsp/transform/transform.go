package transform

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	// ErrInvalidSize is returned for non-positive transform sizes.
	ErrInvalidSize = errors.New("transform: size must be positive")
	// ErrLengthMismatch is returned when a buffer does not match Len().
	ErrLengthMismatch = errors.New("transform: buffer length mismatch")
	// ErrBackend is returned by ByName for unknown backend names.
	ErrBackend = errors.New("transform: unknown backend")
)

// Transform is a fixed-size complex DFT. dst and src may alias.
type Transform interface {
	Len() int
	Forward(dst, src []complex128) error
	Inverse(dst, src []complex128) error
}

// Factory builds a Transform of size n.
type Factory func(n int) (Transform, error)

// Default is the factory used when callers do not inject one.
var Default Factory = NewFFT

// Backend names accepted by ByName.
const (
	BackendAlgoFFT = "algo-fft"
	BackendGonum   = "gonum"
)

// ByName returns the factory of the named backend. The empty name selects
// Default.
func ByName(name string) (Factory, error) {
	switch name {
	case "":
		return Default, nil
	case BackendAlgoFFT:
		return NewFFT, nil
	case BackendGonum:
		return NewGonum, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBackend, name)
}

type fftPlan struct {
	plan *algofft.Plan[complex128]
	n    int
}

// NewFFT returns an algo-fft backed transform. Sizes are expected to be powers
// of two; other sizes are accepted if the plan supports them.
func NewFFT(n int) (Transform, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("transform: failed to create FFT plan: %w", err)
	}

	return &fftPlan{plan: plan, n: n}, nil
}

func (p *fftPlan) Len() int { return p.n }

func (p *fftPlan) Forward(dst, src []complex128) error {
	if len(dst) != p.n || len(src) != p.n {
		return fmt.Errorf("%w: want %d, got %d/%d", ErrLengthMismatch, p.n, len(dst), len(src))
	}
	return p.plan.Forward(dst, src)
}

func (p *fftPlan) Inverse(dst, src []complex128) error {
	if len(dst) != p.n || len(src) != p.n {
		return fmt.Errorf("%w: want %d, got %d/%d", ErrLengthMismatch, p.n, len(dst), len(src))
	}
	return p.plan.Inverse(dst, src)
}

type gonumFFT struct {
	fft     *fourier.CmplxFFT
	n       int
	scratch []complex128
}

// NewGonum returns a transform backed by gonum's dsp/fourier package.
// Any positive size is supported.
func NewGonum(n int) (Transform, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	return &gonumFFT{
		fft:     fourier.NewCmplxFFT(n),
		n:       n,
		scratch: make([]complex128, n),
	}, nil
}

func (g *gonumFFT) Len() int { return g.n }

func (g *gonumFFT) Forward(dst, src []complex128) error {
	if len(dst) != g.n || len(src) != g.n {
		return fmt.Errorf("%w: want %d, got %d/%d", ErrLengthMismatch, g.n, len(dst), len(src))
	}
	g.fft.Coefficients(g.scratch, src)
	copy(dst, g.scratch)
	return nil
}

func (g *gonumFFT) Inverse(dst, src []complex128) error {
	if len(dst) != g.n || len(src) != g.n {
		return fmt.Errorf("%w: want %d, got %d/%d", ErrLengthMismatch, g.n, len(dst), len(src))
	}
	g.fft.Sequence(g.scratch, src)
	scale := complex(1/float64(g.n), 0)
	for i, v := range g.scratch {
		dst[i] = v * scale
	}
	return nil
}
