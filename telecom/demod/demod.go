package demod

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/filter/design"
	"github.com/cwbudde/algo-modem/dsp/filter/fir"
	"github.com/cwbudde/algo-modem/telecom/carrierrec"
	"github.com/cwbudde/algo-modem/telecom/clockrec"
	"github.com/cwbudde/algo-modem/telecom/frame"
	"github.com/cwbudde/algo-modem/telecom/shaping"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

// ErrFormat is returned when no frame format is configured.
var ErrFormat = errors.New("demod: missing frame format")

// Config configures a Demodulator.
type Config struct {
	Format       *frame.Format
	Architecture Architecture
	// Clock configures the timing loop; OSF is taken from Format.
	Clock clockrec.Config
	// Carrier configures the carrier loop. It is forced off for FSK. The
	// decision-directed chain accepts only the auto and decision
	// detectors and always uses the decision one.
	Carrier carrierrec.Config
	// AGCTimeConstant is the AGC time constant in symbols; 0 disables it.
	AGCTimeConstant float64
	// Designer builds the filters; nil selects design.Default.
	Designer design.Designer
}

// Stats describes the loops at the end of a burst.
type Stats struct {
	// ClockOffset is the accumulated timing correction in samples.
	ClockOffset float64
	// ClockUpdates counts timing corrections.
	ClockUpdates int
	// Phase is the final carrier phase estimate in radians.
	Phase float64
	// Frequency is the final carrier frequency estimate in radians per
	// symbol.
	Frequency float64
	// AGCGain is the final AGC gain.
	AGCGain float64
	// Degenerate counts loop and AGC updates skipped for non-finite
	// errors.
	Degenerate int
	// Erased counts non-finite input samples replaced by zero.
	Erased int
	// HeaderErrors counts header symbols decided differently from the
	// transmitted ones. For discriminated waveforms the first header
	// symbol is not counted: it is read while the channel filter still
	// holds the silence ahead of the burst.
	HeaderErrors int
}

// Demodulator demodulates one burst at a time. It is not safe for
// concurrent use.
type Demodulator struct {
	cfg      Config
	format   *frame.Format
	wf       *waveform.Waveform
	headerWf *waveform.Waveform
	linear   bool
	header   []complex128
	settle   int
	total    int

	mf      *fir.Filter
	mfLen   int
	clock   *clockrec.Loop
	carrier *carrierrec.Loop
	ted     clockrec.TED
	dagc    decisionAGC
	eagc    envelopeAGC
	delay   float64
	lead    float64

	invGain      complex128
	last         complex128
	soft         []complex128
	headerErrors int
	erased       int
}

// New returns a demodulator for cfg.Format.
func New(cfg Config) (*Demodulator, error) {
	f := cfg.Format
	if f == nil {
		return nil, ErrFormat
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if cfg.Architecture != DecisionDirected && cfg.Architecture != NonDecisionDirected {
		return nil, fmt.Errorf("%w: %d", ErrArchitecture, int(cfg.Architecture))
	}
	if cfg.Designer == nil {
		cfg.Designer = design.Default
	}

	wf := f.Waveform()
	osf := f.OSF()
	cfg.Clock.OSF = osf
	if !wf.IsLinear() {
		cfg.Carrier.Enabled = false
	}
	// The decision-directed chain measures the phase against its own
	// decisions and has no use for a blind detector.
	if cfg.Architecture == DecisionDirected && cfg.Carrier.Enabled {
		switch cfg.Carrier.Detector {
		case carrierrec.DetectorAuto, carrierrec.DetectorDecision:
		default:
			return nil, fmt.Errorf("%w: %v with the decision-directed chain", carrierrec.ErrDetector, cfg.Carrier.Detector)
		}
	}

	clock, err := clockrec.New(cfg.Clock)
	if err != nil {
		return nil, err
	}
	carrier, err := carrierrec.New(cfg.Carrier, wf)
	if err != nil {
		return nil, err
	}
	matched, err := shaping.MatchedTaps(wf, osf, cfg.Designer)
	if err != nil {
		return nil, err
	}
	pulse, err := shaping.PulseTaps(wf, osf, cfg.Designer)
	if err != nil {
		return nil, err
	}

	delay := float64(len(pulse)-1)/2 + float64(len(matched)-1)/2
	if !wf.IsLinear() {
		fe, err := NewFrontEnd(f, cfg.Designer)
		if err != nil {
			return nil, err
		}
		delay += fe.Delay()
	}

	ted := clockrec.TEDDecision
	if cfg.Architecture == NonDecisionDirected {
		ted = clockrec.TEDGardner
	}

	settle := 0
	if !wf.IsLinear() {
		settle = 1
	}

	d := &Demodulator{
		cfg:      cfg,
		format:   f,
		wf:       wf,
		headerWf: f.HeaderWaveform(),
		linear:   wf.IsLinear(),
		header:   f.HeaderSymbolValues(),
		settle:   settle,
		total:    f.Symbols(),
		mf:       fir.New(matched),
		mfLen:    len(matched),
		clock:    clock,
		carrier:  carrier,
		ted:      ted,
		dagc:     newDecisionAGC(cfg.AGCTimeConstant),
		eagc:     newEnvelopeAGC(cfg.AGCTimeConstant, meanMagnitude(wf.Constellation())),
		delay:    delay,
		lead:     (float64(f.PatternLen()-1) - float64(len(pulse)-1)) / 2 / float64(osf),
		invGain:  1,
		soft:     make([]complex128, 0, f.Symbols()),
	}
	return d, nil
}

func meanMagnitude(points []complex128) float64 {
	var s float64
	for _, p := range points {
		s += cmplx.Abs(p)
	}
	return s / float64(len(points))
}

// Format returns the frame format.
func (d *Demodulator) Format() *frame.Format { return d.format }

// Architecture returns the configured chain.
func (d *Demodulator) Architecture() Architecture { return d.cfg.Architecture }

// SymbolDelay returns the number of samples between the start of a burst
// and the matched-filter peak of its first symbol.
func (d *Demodulator) SymbolDelay() float64 { return d.delay }

// MatchedLen returns the matched filter length. Feeding MatchedLen()-1
// samples ahead of the burst start fills the filter with the stream that
// preceded it.
func (d *Demodulator) MatchedLen() int { return d.mfLen }

// Start prepares the demodulator for a burst. gain is the complex gain
// estimated on the header, firstSymbol the position of the first symbol's
// matched-filter peak counted from the next sample passed to Process, and
// freq a carrier frequency offset seed in radians per symbol (0 for none).
// The gain phase is taken as the carrier phase at the centre of the
// header, so a frequency seed also sets the phase expected at the first
// symbol.
func (d *Demodulator) Start(gain complex128, firstSymbol, freq float64) {
	d.mf.Reset()
	d.clock.ResetAt(firstSymbol)
	d.carrier.Reset()
	if freq != 0 {
		d.carrier.SetFrequency(freq)
		d.carrier.SetPhase(-freq * d.lead)
	}
	d.dagc.reset()
	d.eagc.reset()

	d.invGain = 1
	if d.linear && gain != 0 && core.IsFiniteComplex(gain) {
		d.invGain = 1 / gain
	}
	d.last = 0
	d.soft = d.soft[:0]
	d.headerErrors = 0
	d.erased = 0
}

// Done reports whether all symbols of the burst have been demodulated.
func (d *Demodulator) Done() bool { return len(d.soft) >= d.total }

// Process consumes samples until the burst is complete and returns the
// number of samples used. Non-finite samples are erased to zero so that
// they do not linger in the matched filter.
func (d *Demodulator) Process(x []complex128) int {
	for i, v := range x {
		if d.Done() {
			return i
		}
		if !core.IsFiniteComplex(v) {
			v = 0
			d.erased++
		}
		y := d.mf.ProcessSample(v * d.invGain)
		if d.cfg.Architecture == DecisionDirected {
			d.stepDecision(y)
		} else {
			d.stepBlind(y)
		}
	}
	return len(x)
}

func (d *Demodulator) stepDecision(y complex128) {
	y = d.carrier.Derotate(y) * complex(d.dagc.gain, 0)
	it, ok := d.clock.Push(y)
	if !ok || !it.OnSymbol {
		return
	}
	yi := it.Value
	k := len(d.soft)

	var ye complex128
	if k < len(d.header) {
		ye = d.header[k]
		if k >= d.settle && d.headerWf.Decide(yi) != ye {
			d.headerErrors++
		}
	} else {
		ye = d.wf.Decide(yi)
	}

	d.dagc.update(yi, ye)
	if k > 0 {
		if e, ok := d.ted.Error(d.last, d.clock.Mid(), ye); ok {
			d.clock.Update(e)
		}
	}
	d.last = ye
	if c := yi * cmplx.Conj(ye); c != 0 {
		d.carrier.Update(cmplx.Phase(c))
	}
	d.soft = append(d.soft, yi)
}

func (d *Demodulator) stepBlind(y complex128) {
	it, ok := d.clock.Push(y)
	if !ok || !it.OnSymbol {
		return
	}
	yi := it.Value
	k := len(d.soft)
	if k > 0 {
		if e, ok := d.ted.Error(d.last, d.clock.Mid(), yi); ok {
			d.clock.Update(e)
		}
	}
	d.last = yi

	z := d.eagc.apply(d.carrier.Derotate(yi))
	d.carrier.Track(z)
	if k >= d.settle && k < len(d.header) && d.headerWf.Decide(z) != d.header[k] {
		d.headerErrors++
	}
	d.soft = append(d.soft, z)
}

// Symbols returns the equalised symbol samples of the burst so far, header
// first.
func (d *Demodulator) Symbols() []complex128 {
	return append([]complex128(nil), d.soft...)
}

// Bits returns the hard-decided payload bits, or nil before Done.
func (d *Demodulator) Bits() []byte {
	if !d.Done() {
		return nil
	}
	bits := d.wf.Demap(d.soft[len(d.header):d.total])
	return bits[:d.format.PayloadBits()]
}

// Stats returns the loop state.
func (d *Demodulator) Stats() Stats {
	agc := d.dagc.gain
	if d.cfg.Architecture == NonDecisionDirected {
		agc = d.eagc.gain()
	}
	return Stats{
		ClockOffset:  d.clock.Offset(),
		ClockUpdates: d.clock.Updates(),
		Phase:        d.carrier.Phase(),
		Frequency:    d.carrier.Frequency(),
		AGCGain:      agc,
		Degenerate:   d.clock.Degenerate() + d.carrier.Degenerate() + d.dagc.skipped + d.eagc.skipped,
		Erased:       d.erased,
		HeaderErrors: d.headerErrors,
	}
}
