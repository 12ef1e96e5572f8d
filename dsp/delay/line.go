// Package delay delays complex sample streams by fractional amounts with a
// windowed-sinc FIR, which is exact for band-limited signals away from the
// band edge.
package delay

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-modem/dsp/buffer"
	"github.com/cwbudde/algo-modem/dsp/filter/design"
	"github.com/cwbudde/algo-modem/dsp/filter/fir"
	"github.com/cwbudde/algo-modem/dsp/window"
)

// DefaultTaps is the interpolation filter length used when taps is 0.
const DefaultTaps = 31

// ErrInvalidDelay is returned for delays the line cannot realise.
var ErrInvalidDelay = errors.New("delay: invalid delay")

// Line is a streaming fractional delay.
type Line struct {
	bulk   *buffer.Ring
	k      int
	filter *fir.Filter
	delay  float64
}

// MinDelay returns the smallest delay a Line with taps coefficients can
// realise, the group delay of its interpolation filter.
func MinDelay(taps int) float64 {
	if taps <= 0 {
		taps = DefaultTaps
	}
	return float64(taps-1) / 2
}

// New returns a line delaying its input by d samples, d >= MinDelay(taps).
// taps must be odd; 0 selects DefaultTaps.
func New(d float64, taps int) (*Line, error) {
	if taps == 0 {
		taps = DefaultTaps
	}
	if taps < 3 || taps%2 == 0 {
		return nil, fmt.Errorf("%w: taps must be odd and >= 3, got %d", ErrInvalidDelay, taps)
	}
	if math.IsNaN(d) || d < MinDelay(taps) {
		return nil, fmt.Errorf("%w: %v < %v", ErrInvalidDelay, d, MinDelay(taps))
	}

	rest := d - MinDelay(taps)
	k := int(math.Floor(rest))
	frac := rest - float64(k)

	return &Line{
		bulk:   buffer.NewRing(k + 1),
		k:      k,
		filter: fir.New(design.FractionalDelay(taps, frac, window.TypeBlackman)),
		delay:  d,
	}, nil
}

// Delay returns the total delay in samples.
func (l *Line) Delay() float64 {
	return l.delay
}

// ProcessSample pushes x and returns the delayed output.
func (l *Line) ProcessSample(x complex128) complex128 {
	l.bulk.Push(x)
	v, _ := l.bulk.At(l.bulk.Count() - 1 - int64(l.k))
	return l.filter.ProcessSample(v)
}

// Reset clears the line.
func (l *Line) Reset() {
	l.bulk.Reset()
	l.filter.Reset()
}

// Apply returns x delayed by d >= 0 samples. The output has
// len(x)+ceil(d) samples so that the delayed tail is kept.
func Apply(x []complex128, d float64, taps int) ([]complex128, error) {
	if taps == 0 {
		taps = DefaultTaps
	}
	if math.IsNaN(d) || d < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDelay, d)
	}

	latency := int(MinDelay(taps))
	line, err := New(d+float64(latency), taps)
	if err != nil {
		return nil, err
	}

	n := len(x) + int(math.Ceil(d))
	out := make([]complex128, 0, n)
	for i := range n + latency {
		var v complex128
		if i < len(x) {
			v = x[i]
		}
		y := line.ProcessSample(v)
		if i >= latency {
			out = append(out, y)
		}
	}

	return out, nil
}
