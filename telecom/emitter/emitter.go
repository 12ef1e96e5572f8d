// Package emitter modulates bursts: header and payload bits are mapped to
// symbols, shaped (or frequency modulated for FSK) and shifted to the
// intermediate frequency.
package emitter

import (
	"math"

	"github.com/cwbudde/algo-modem/dsp/filter/design"
	"github.com/cwbudde/algo-modem/dsp/filter/fir"
	"github.com/cwbudde/algo-modem/dsp/mixer"
	"github.com/cwbudde/algo-modem/telecom/frame"
	"github.com/cwbudde/algo-modem/telecom/shaping"
)

// Option customises an Emitter.
type Option func(*Emitter)

// WithDesigner replaces the filter designer used for the transmit pulse.
func WithDesigner(d design.Designer) Option {
	return func(e *Emitter) { e.designer = d }
}

// Emitter produces I/Q bursts for a frame format. It is not safe for
// concurrent use.
type Emitter struct {
	format   *frame.Format
	designer design.Designer
	pulse    []float64
	osf      int
}

// New returns an emitter for f.
func New(f *frame.Format, opts ...Option) (*Emitter, error) {
	e := &Emitter{format: f, designer: design.Default, osf: f.OSF()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	pulse, err := shaping.PulseTaps(f.Waveform(), e.osf, e.designer)
	if err != nil {
		return nil, err
	}
	e.pulse = pulse
	return e, nil
}

// Format returns the frame format.
func (e *Emitter) Format() *frame.Format { return e.format }

// Pulse returns a copy of the transmit pulse.
func (e *Emitter) Pulse() []float64 { return append([]float64(nil), e.pulse...) }

// Delay returns the number of samples between the start of a burst and the
// centre of its first symbol.
func (e *Emitter) Delay() float64 { return float64(len(e.pulse)-1) / 2 }

// Len returns the number of samples of a burst, filter tail included.
func (e *Emitter) Len() int {
	return e.format.Symbols()*e.osf + len(e.pulse) - 1
}

// Burst modulates a complete burst carrying payload. The first sample is the
// first one influenced by the first header symbol.
func (e *Emitter) Burst(payload []byte) ([]complex128, error) {
	symbols, err := e.format.BurstSymbols(payload)
	if err != nil {
		return nil, err
	}
	return e.Modulate(symbols)
}

// HeaderBurst modulates the header alone, filter tail included.
func (e *Emitter) HeaderBurst() ([]complex128, error) {
	return e.Modulate(e.format.HeaderSymbolValues())
}

// Modulate shapes an arbitrary symbol sequence and applies the intermediate
// frequency.
func (e *Emitter) Modulate(symbols []complex128) ([]complex128, error) {
	var out []complex128
	if e.format.Waveform().IsLinear() {
		sh, err := shaping.NewShaper(e.pulse, e.osf)
		if err != nil {
			return nil, err
		}
		out = sh.Burst(symbols)
	} else {
		out = e.cpfsk(symbols)
	}

	if f := e.format.Timing().NormalizedIF(); f != 0 {
		nco, err := mixer.New(f)
		if err != nil {
			return nil, err
		}
		nco.MixInPlace(out)
	}
	return out, nil
}

// cpfsk integrates the shaped frequency deviation into a continuous-phase
// signal: a symbol of level a turns the phase by pi*h*a.
func (e *Emitter) cpfsk(symbols []complex128) []complex128 {
	up := fir.NewUpsampler(e.pulse, e.osf)
	freq := up.Process(symbols)
	freq = append(freq, up.Process(make([]complex128, up.Depth()))[:len(e.pulse)-1]...)

	step := math.Pi * e.format.Waveform().Index() / float64(e.osf)
	out := make([]complex128, len(freq))
	var phase float64
	for i, f := range freq {
		phase += step * real(f)
		out[i] = complex(math.Cos(phase), math.Sin(phase))
	}
	return out
}
