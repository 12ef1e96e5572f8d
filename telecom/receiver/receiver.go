package receiver

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/charmbracelet/log"

	"github.com/cwbudde/algo-modem/dsp/buffer"
	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/spectrum"
	"github.com/cwbudde/algo-modem/dsp/transform"
	"github.com/cwbudde/algo-modem/telecom/demod"
	"github.com/cwbudde/algo-modem/telecom/detect"
	"github.com/cwbudde/algo-modem/telecom/frame"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

// Mode is the receiver state.
type Mode int

const (
	// Scanning correlates the input with no burst in progress.
	Scanning Mode = iota
	// Aligning seeds the loops from a detection. It only lasts inside
	// Step.
	Aligning
	// Demodulating streams a burst through the demodulator.
	Demodulating
)

func (m Mode) String() string {
	switch m {
	case Scanning:
		return "scanning"
	case Aligning:
		return "aligning"
	case Demodulating:
		return "demodulating"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is a snapshot of the receiver.
type State struct {
	Mode Mode
	// ExpectedBlockSize is the correlator block size. Blocks of this size
	// are processed without internal buffering.
	ExpectedBlockSize int
	// Queued counts accepted detections waiting for demodulation.
	Queued int
	// Processed counts samples passed to Step.
	Processed int64
	// Frames counts decoded bursts.
	Frames int
	// Rejected counts detections dropped by the SNR gate or the history
	// bound.
	Rejected int
	// Erased counts non-finite input samples replaced by zero.
	Erased int64
}

// Frame is one decoded burst.
type Frame struct {
	Detection detect.Detection
	// Bits holds the payload bits, one per byte.
	Bits []byte
	// EbN0 is the Eb/N0 in dB derived from the detection SNR.
	EbN0 float64
	// PayloadSNR is the symbol SNR in dB measured blind on the payload
	// symbols with demod.M2M4. It is NaN unless the payload is PSK and the
	// estimate exists.
	PayloadSNR float64
	// Symbols holds the equalised symbols, header first.
	Symbols []complex128
	// Samples holds the front-end output the burst was demodulated from,
	// when Config.KeepSamples is set.
	Samples []complex128
	// Loops reports the demodulator loops at the end of the burst.
	Loops demod.Stats
}

// Receiver is a streaming burst receiver. It is not safe for concurrent use;
// independent instances share no state.
type Receiver struct {
	log         *log.Logger
	observers   []Observer
	correlation detect.Observer
	transform   transform.Factory

	c        *compiled
	frontEnd *demod.FrontEnd
	detector *detect.Detector
	history  buffer.Timeline
	scratch  []complex128
	lookback int64

	mode     Mode
	queue    []detect.Detection
	current  detect.Detection
	start    int64
	cursor   int64
	frames   int
	rejected int
}

// New returns a receiver configured with cfg.
func New(cfg Config, opts ...Option) (*Receiver, error) {
	r := &Receiver{log: log.Default().WithPrefix("receiver")}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if err := r.Configure(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Configure validates cfg and rebuilds the receiver. On error the previous
// configuration and stream state are kept. On success all stream state is
// discarded.
func (r *Receiver) Configure(cfg Config) error {
	c, err := compile(cfg)
	if err != nil {
		return err
	}
	fe, err := demod.NewFrontEnd(c.format, nil)
	if err != nil {
		return configError("filter", ErrWaveform, err)
	}
	det, err := detect.New(detect.Config{
		Pattern:   c.pattern,
		Threshold: cfg.DetectionThreshold,
		BlockSize: cfg.BlockSize,
		Transform: r.transform,
		Observer:  r.correlation,
	})
	if err != nil {
		return configError("block_size", ErrBlockSize, err)
	}

	r.c = c
	r.frontEnd = fe
	r.detector = det
	m := int64(len(c.pattern))
	r.lookback = 2*m + int64(det.BlockSize()) + int64(c.demod.MatchedLen()) + 8
	r.Reset()

	r.log.Info("configured",
		"format", c.format,
		"architecture", cfg.Architecture,
		"pattern", len(c.pattern),
		"block", det.BlockSize(),
		"threshold", cfg.DetectionThreshold,
		"min_snr", cfg.MinimumSNR)
	return nil
}

// Config returns the active configuration.
func (r *Receiver) Config() Config { return r.c.cfg }

// Format returns the frame format derived from the configuration.
func (r *Receiver) Format() *frame.Format { return r.c.format }

// Reset discards every queued or in-flight burst and restarts the stream at
// sample 0.
func (r *Receiver) Reset() {
	r.frontEnd.Reset()
	r.detector.Reset()
	r.history.Reset()
	r.mode = Scanning
	r.queue = r.queue[:0]
	r.frames = 0
	r.rejected = 0
}

// State returns a snapshot of the receiver.
func (r *Receiver) State() State {
	return State{
		Mode:              r.mode,
		ExpectedBlockSize: r.detector.BlockSize(),
		Queued:            len(r.queue),
		Processed:         r.history.End(),
		Frames:            r.frames,
		Rejected:          r.rejected,
		Erased:            r.frontEnd.Erased(),
	}
}

// Step consumes one block of samples and returns the bursts completed by
// it.
func (r *Receiver) Step(block []complex128) []Frame {
	if len(block) == 0 {
		return nil
	}
	r.scratch = core.EnsureLenComplex(r.scratch, len(block))
	y := r.scratch[:len(block)]
	erased := r.frontEnd.Erased()
	r.frontEnd.Process(y, block)
	if n := r.frontEnd.Erased() - erased; n > 0 {
		r.log.Debug("non-finite samples erased", "count", n, "at", r.history.End())
	}
	r.history.Append(y)

	for _, d := range r.detector.Process(y) {
		r.admit(d)
	}

	var out []Frame
	for {
		if r.mode == Scanning {
			if len(r.queue) == 0 {
				break
			}
			d := r.queue[0]
			r.queue = r.queue[1:]
			if !r.align(d) {
				continue
			}
		}
		if !r.demodulate() {
			break
		}
		f := r.finish()
		out = append(out, f)
	}

	r.trim()
	return out
}

func (r *Receiver) admit(d detect.Detection) {
	if d.SNR < r.c.cfg.MinimumSNR {
		r.rejected++
		r.log.Debug("detection below SNR floor", "detection", d, "min_snr", r.c.cfg.MinimumSNR)
		r.notifyDetection(d, false)
		return
	}
	r.log.Debug("detection", "detection", d)
	r.queue = append(r.queue, d)
	r.notifyDetection(d, true)
}

// firstSample is the stream index the demodulator starts from so that its
// matched filter holds the samples preceding the burst.
func (r *Receiver) firstSample(d detect.Detection) int64 {
	return max(d.Index()-int64(r.c.demod.MatchedLen()-1), 0)
}

func (r *Receiver) align(d detect.Detection) bool {
	r.mode = Aligning
	n0 := r.firstSample(d)
	if n0 < r.history.Start() {
		r.mode = Scanning
		r.rejected++
		r.log.Warn("detection left the history", "detection", d, "start", r.history.Start())
		return false
	}

	var freq float64
	if r.c.cfg.CarrierRecovery.FrequencySeed && r.c.format.Waveform().IsLinear() {
		freq = r.frequencySeed(d)
	}
	r.c.demod.Start(d.Gain, d.Position-float64(n0)+r.c.demod.SymbolDelay(), freq)
	r.current = d
	r.start = n0
	r.cursor = n0
	r.mode = Demodulating
	return true
}

// frequencySeed estimates the carrier offset, in radians per symbol, from
// the residual of the header after removing the known pattern.
func (r *Receiver) frequencySeed(d detect.Detection) float64 {
	p := r.c.pattern
	from := d.Index()
	x, ok := r.history.Slice(from, from+int64(len(p)))
	if !ok {
		return 0
	}
	res := make([]complex128, len(p))
	for i := range p {
		res[i] = x[i] * cmplx.Conj(p[i])
	}
	peak, err := spectrum.PeakFrequency(res, 4, r.transform)
	if err != nil {
		return 0
	}
	w := 2 * math.Pi * peak.Frequency * float64(r.c.format.OSF())
	r.log.Debug("frequency seed", "rad_per_symbol", w)
	return w
}

// demodulate feeds the stored samples to the demodulator and reports
// whether the burst is complete.
func (r *Receiver) demodulate() bool {
	x, _ := r.history.Slice(r.cursor, r.history.End())
	r.cursor += int64(r.c.demod.Process(x))
	return r.c.demod.Done()
}

func (r *Receiver) finish() Frame {
	d := r.current
	dm := r.c.demod
	hk := r.c.format.HeaderWaveform().BitsPerSymbol()
	f := Frame{
		Detection: d,
		Bits:      dm.Bits(),
		EbN0:      d.SNR + core.LinearPowerToDB(float64(r.c.format.OSF())/float64(hk)),
		Symbols:   dm.Symbols(),
		Loops:     dm.Stats(),
	}
	f.PayloadSNR = math.NaN()
	if r.c.format.Waveform().Family() == waveform.PSK {
		if snr, ok := demod.M2M4(f.Symbols[r.c.format.HeaderSymbols():]); ok {
			f.PayloadSNR = snr
		}
	}
	if r.c.cfg.KeepSamples {
		x, _ := r.history.Slice(r.start, r.cursor)
		f.Samples = append([]complex128(nil), x...)
	}
	if f.Loops.Degenerate > 0 {
		r.log.Debug("degenerate loop updates", "count", f.Loops.Degenerate)
	}
	r.log.Info("frame decoded",
		"position", fmt.Sprintf("%.2f", d.Position),
		"snr", fmt.Sprintf("%.1f", d.SNR),
		"bits", len(f.Bits),
		"payload_snr", fmt.Sprintf("%.1f", f.PayloadSNR),
		"header_errors", f.Loops.HeaderErrors)

	r.mode = Scanning
	r.frames++
	for _, o := range r.observers {
		o.Frame(f)
	}
	return f
}

// trim releases history no pending work can reach.
func (r *Receiver) trim() {
	keep := r.history.End() - r.lookback
	if r.mode == Demodulating {
		keep = min(keep, r.start)
	}
	for _, d := range r.queue {
		keep = min(keep, r.firstSample(d))
	}
	r.history.TrimBefore(keep)
}

func (r *Receiver) notifyDetection(d detect.Detection, accepted bool) {
	for _, o := range r.observers {
		o.Detection(d, accepted)
	}
}
