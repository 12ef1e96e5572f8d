package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/transform"
	"github.com/cwbudde/algo-modem/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

// ErrEmptyInput is returned when there are no samples to analyse.
var ErrEmptyInput = errors.New("spectrum: empty input")

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Magnitude returns |X[k]| for each complex spectrum bin.
//
// Scratch buffers are pooled internally, so in steady state this allocates
// only the output slice.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(out, re, im)
	putScratch(buf)
	return out
}

// Power returns |X[k]|^2 for each complex spectrum bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	PowerTo(out, in)
	return out
}

// PowerTo writes |X[k]|^2 into dst, which must be at least len(in) long.
func PowerTo(dst []float64, in []complex128) {
	re, im, buf := getScratch(len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}
	vecmath.Power(dst[:len(in)], re, im)
	putScratch(buf)
}

// Phase returns arg(X[k]) for each bin in radians.
func Phase(in []complex128) []float64 {
	out := make([]float64, len(in))
	for i, c := range in {
		out[i] = cmplx.Phase(c)
	}
	return out
}

// BinFrequency returns the frequency of bin k of an n-point transform in
// cycles per sample, mapped to [-0.5, 0.5).
func BinFrequency(k float64, n int) float64 {
	f := k / float64(n)
	if f >= 0.5 {
		f--
	}
	return f
}

// Periodogram returns the windowed power spectrum of x zero-padded to nfft
// bins (nfft <= 0 selects the next power of two >= len(x)). The window is
// normalised so that a unit complex tone on a bin has power 1.
func Periodogram(x []complex128, nfft int, win window.Type, factory transform.Factory) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if nfft <= 0 {
		nfft = core.NextPowerOf2(len(x))
	}
	if nfft < len(x) {
		return nil, fmt.Errorf("spectrum: nfft %d shorter than input %d", nfft, len(x))
	}
	if factory == nil {
		factory = transform.Default
	}

	plan, err := factory(nfft)
	if err != nil {
		return nil, err
	}

	w := window.Generate(win, len(x), window.WithPeriodic())
	var gain float64
	for _, v := range w {
		gain += v
	}
	if gain == 0 {
		return nil, fmt.Errorf("spectrum: window %v has zero gain", win)
	}

	buf := make([]complex128, nfft)
	for i, v := range x {
		buf[i] = v * complex(w[i]/gain, 0)
	}
	if err := plan.Forward(buf, buf); err != nil {
		return nil, err
	}

	return Power(buf), nil
}

// Peak is a spectral maximum.
type Peak struct {
	// Frequency in cycles per sample, in [-0.5, 0.5).
	Frequency float64
	// Power is the interpolated peak power.
	Power float64
	// Bin is the fractional bin index in [0, nfft).
	Bin float64
}

// PeakFrequency locates the strongest component of x. The maximum bin of a
// Hann-windowed periodogram is refined by parabolic interpolation of the
// log power of its neighbours. pad multiplies the transform length (values
// below 1 mean 1).
func PeakFrequency(x []complex128, pad int, factory transform.Factory) (Peak, error) {
	if len(x) == 0 {
		return Peak{}, ErrEmptyInput
	}
	pad = max(pad, 1)
	nfft := core.NextPowerOf2(len(x) * pad)

	p, err := Periodogram(x, nfft, window.TypeHann, factory)
	if err != nil {
		return Peak{}, err
	}

	k := 0
	for i, v := range p {
		if v > p[k] {
			k = i
		}
	}

	delta, peak := parabolicPeak(
		p[(k-1+nfft)%nfft], p[k], p[(k+1)%nfft],
	)

	bin := float64(k) + delta
	if bin < 0 {
		bin += float64(nfft)
	}

	return Peak{
		Frequency: BinFrequency(bin, nfft),
		Power:     peak,
		Bin:       bin,
	}, nil
}

// parabolicPeak fits a parabola through the log of three neighbouring powers
// and returns the vertex offset in [-0.5, 0.5] and the vertex power.
func parabolicPeak(left, centre, right float64) (float64, float64) {
	if left <= 0 || centre <= 0 || right <= 0 {
		return 0, centre
	}
	a, b, c := math.Log(left), math.Log(centre), math.Log(right)
	den := a - 2*b + c
	if den >= 0 {
		return 0, centre
	}
	delta := core.Clamp(0.5*(a-c)/den, -0.5, 0.5)
	return delta, math.Exp(b - 0.25*(a-c)*delta)
}
