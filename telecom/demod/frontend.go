package demod

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/filter/design"
	"github.com/cwbudde/algo-modem/dsp/filter/fir"
	"github.com/cwbudde/algo-modem/dsp/mixer"
	"github.com/cwbudde/algo-modem/telecom/emitter"
	"github.com/cwbudde/algo-modem/telecom/frame"
)

// FrontEnd converts received samples to the signal the detector and the
// demodulator work on: the intermediate frequency is mixed down and, for
// FSK, the result is low-pass filtered and FM discriminated into a real
// signal whose value is the instantaneous frequency level. Non-finite input
// samples are erased to zero before any filter sees them. It is not safe
// for concurrent use.
type FrontEnd struct {
	nco    *mixer.NCO
	lp     *fir.Filter
	scale  float64
	prev   complex128
	erased int64
}

// NewFrontEnd returns the front end for f.
func NewFrontEnd(f *frame.Format, designer design.Designer) (*FrontEnd, error) {
	if designer == nil {
		designer = design.Default
	}
	fe := &FrontEnd{}
	if nif := f.Timing().NormalizedIF(); nif != 0 {
		nco, err := mixer.New(-nif)
		if err != nil {
			return nil, err
		}
		fe.nco = nco
	}

	wf := f.Waveform()
	if wf.IsLinear() {
		return fe, nil
	}
	taps, err := designer.Design(channelFilter(wf.M(), wf.Index(), f.OSF()), f.OSF())
	if err != nil {
		return nil, err
	}
	fe.lp = fir.New(taps)
	fe.scale = float64(f.OSF()) / (math.Pi * wf.Index())
	return fe, nil
}

// channelFilter returns a low-pass passing the Carson bandwidth of an
// M-level FSK signal with index h.
func channelFilter(m int, h float64, osf int) design.Spec {
	cutoff := math.Min((float64(m-1)*h/2+1)/float64(osf), 0.4)
	return design.Spec{
		Type:       design.TypeLowPass,
		Cutoff:     cutoff,
		Transition: math.Min(cutoff/2, 0.5-cutoff),
	}
}

// Discriminates reports whether the front end outputs frequency levels.
func (fe *FrontEnd) Discriminates() bool { return fe.lp != nil }

// Delay returns the group delay added by the front end, in samples.
func (fe *FrontEnd) Delay() float64 {
	if fe.lp == nil {
		return 0
	}
	return fe.lp.GroupDelay()
}

// Process converts src into dst, which must be at least as long.
func (fe *FrontEnd) Process(dst, src []complex128) {
	dst = dst[:len(src)]
	if fe.nco != nil {
		fe.nco.Mix(dst, src)
	} else {
		copy(dst, src)
	}
	for i, v := range dst {
		if !core.IsFiniteComplex(v) {
			dst[i] = 0
			fe.erased++
		}
	}
	if fe.lp == nil {
		return
	}
	fe.lp.ProcessBlock(dst)
	for i, v := range dst {
		d := v * cmplx.Conj(fe.prev)
		fe.prev = v
		dst[i] = complex(cmplx.Phase(d)*fe.scale, 0)
	}
}

// Reset clears the filter, mixer and discriminator state.
func (fe *FrontEnd) Reset() {
	if fe.nco != nil {
		fe.nco.Reset()
	}
	if fe.lp != nil {
		fe.lp.Reset()
	}
	fe.prev = 0
	fe.erased = 0
}

// Erased returns the number of non-finite samples replaced by zero since
// the last Reset.
func (fe *FrontEnd) Erased() int64 { return fe.erased }

// Pattern returns the reference the detector searches for: the first
// HeaderSymbols*OSF samples of the header burst as seen after a fresh
// front end.
func Pattern(f *frame.Format, designer design.Designer) ([]complex128, error) {
	e, err := emitter.New(f, emitter.WithDesigner(designer))
	if err != nil {
		return nil, err
	}
	burst, err := e.HeaderBurst()
	if err != nil {
		return nil, err
	}
	fe, err := NewFrontEnd(f, designer)
	if err != nil {
		return nil, err
	}
	fe.Process(burst, burst)
	return burst[:f.PatternLen()], nil
}
