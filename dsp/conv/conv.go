package conv

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/transform"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput       = errors.New("conv: empty input")
	ErrEmptyKernel      = errors.New("conv: empty kernel")
	ErrLengthMismatch   = errors.New("conv: buffer length mismatch")
	ErrInvalidBlockSize = errors.New("conv: invalid block size")
)

// directThreshold is the kernel length below which Convolve stays in the
// time domain.
const directThreshold = 64

// Direct computes the full linear convolution of a and b.
// The result has length len(a) + len(b) - 1.
func Direct(a, b []complex128) ([]complex128, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	out := make([]complex128, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}

	return out, nil
}

// Convolve computes the full linear convolution of a and b, choosing the
// direct method for short kernels and FFT otherwise. A nil factory selects
// transform.Default.
func Convolve(a, b []complex128, factory transform.Factory) ([]complex128, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}
	if len(b) < directThreshold {
		return Direct(a, b)
	}
	return FFT(a, b, factory)
}

// FFT computes the full linear convolution of a and b with a single
// transform of size NextPowerOf2(len(a)+len(b)-1).
func FFT(a, b []complex128, factory transform.Factory) ([]complex128, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}
	if factory == nil {
		factory = transform.Default
	}

	resultLen := len(a) + len(b) - 1
	n := core.NextPowerOf2(resultLen)

	tr, err := factory(n)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create transform: %w", err)
	}

	fa := make([]complex128, n)
	fb := make([]complex128, n)
	copy(fa, a)
	copy(fb, b)

	if err := tr.Forward(fa, fa); err != nil {
		return nil, fmt.Errorf("conv: forward transform failed: %w", err)
	}
	if err := tr.Forward(fb, fb); err != nil {
		return nil, fmt.Errorf("conv: forward transform failed: %w", err)
	}
	for i := range fa {
		fa[i] *= fb[i]
	}
	if err := tr.Inverse(fa, fa); err != nil {
		return nil, fmt.Errorf("conv: inverse transform failed: %w", err)
	}

	return fa[:resultLen], nil
}

// CorrelationKernel returns conj(p) reversed in time, the kernel that turns
// a convolution into a sliding correlation against p.
func CorrelationKernel(p []complex128) []complex128 {
	k := make([]complex128, len(p))
	for i, v := range p {
		k[len(p)-1-i] = cmplx.Conj(v)
	}
	return k
}

// CorrelateDirect returns, for every n in [0, len(x)), the correlation of the
// window of len(p) samples ending at n with p. Samples before the start of x
// are taken as zero.
func CorrelateDirect(x, p []complex128) ([]complex128, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if len(p) == 0 {
		return nil, ErrEmptyKernel
	}

	m := len(p)
	out := make([]complex128, len(x))
	for n := range x {
		var acc complex128
		for k := range m {
			idx := n - m + 1 + k
			if idx < 0 {
				continue
			}
			acc += cmplx.Conj(p[k]) * x[idx]
		}
		out[n] = acc
	}

	return out, nil
}
