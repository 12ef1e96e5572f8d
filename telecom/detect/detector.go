package detect

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-modem/dsp/buffer"
	"github.com/cwbudde/algo-modem/dsp/conv"
	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/transform"
	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by New.
var (
	ErrEmptyPattern = errors.New("detect: empty pattern")
	ErrThreshold    = errors.New("detect: threshold must be within (0, 1]")
	ErrBlockSize    = errors.New("detect: invalid block size")
)

// energyFloor is the window energy below which the score is forced to 0.
const energyFloor = 1e-30

// Observer receives the score and the raw correlation magnitude |c| of
// every processed sample, one block at a time. The slices are only valid
// during the call.
type Observer func(start int64, scores, magnitudes []float64)

// Config configures a Detector.
type Config struct {
	// Pattern is the reference preamble, M samples.
	Pattern []complex128
	// Threshold is the minimum score of a detection, in (0, 1].
	Threshold float64
	// BlockSize is the internal processing block Ne; 0 selects the next
	// power of two >= M.
	BlockSize int
	// Holdoff is the number of samples without a better score after which
	// a candidate peak is reported; 0 selects M.
	Holdoff int
	// Transform builds the FFT plans; nil selects transform.Default.
	Transform transform.Factory
	// Observer, if set, receives per-sample scores and magnitudes.
	Observer Observer
}

type candidate struct {
	idx      int64
	score    float64
	c, left  complex128
	right    complex128
	hasRight bool
}

// Detector is a streaming preamble correlator. It is not safe for
// concurrent use.
type Detector struct {
	cfg         Config
	pattern     []complex128
	patternNorm float64
	m           int
	ne          int

	ola     *conv.StreamingOverlapAdd
	pending []complex128
	corr    []complex128
	scores  []float64
	mags    []float64
	re, im  []float64

	history *buffer.Ring
	energy  float64
	window  []complex128
	prevC   complex128
	cand    *candidate

	clean     []complex128
	processed int64
	dropped   int
	erased    int64
}

// New validates cfg and returns a detector.
func New(cfg Config) (*Detector, error) {
	m := len(cfg.Pattern)
	if m == 0 {
		return nil, ErrEmptyPattern
	}
	if !(cfg.Threshold > 0 && cfg.Threshold <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrThreshold, cfg.Threshold)
	}
	if cfg.BlockSize < 0 || cfg.Holdoff < 0 {
		return nil, fmt.Errorf("%w: block %d, holdoff %d", ErrBlockSize, cfg.BlockSize, cfg.Holdoff)
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = core.NextPowerOf2(m)
	}
	if cfg.Holdoff == 0 {
		cfg.Holdoff = m
	}

	pattern := append([]complex128(nil), cfg.Pattern...)
	cfg.Pattern = pattern
	norm := math.Sqrt(core.Energy(pattern))
	if norm == 0 {
		return nil, fmt.Errorf("%w: zero energy", ErrEmptyPattern)
	}

	ola, err := conv.NewStreamingOverlapAdd(conv.CorrelationKernel(pattern), cfg.BlockSize, cfg.Transform)
	if err != nil {
		return nil, err
	}

	ne := cfg.BlockSize
	return &Detector{
		cfg:         cfg,
		pattern:     pattern,
		patternNorm: norm,
		m:           m,
		ne:          ne,
		ola:         ola,
		pending:     make([]complex128, 0, ne),
		corr:        make([]complex128, ne),
		scores:      make([]float64, ne),
		mags:        make([]float64, ne),
		re:          make([]float64, ne),
		im:          make([]float64, ne),
		history:     buffer.NewRing(m + cfg.Holdoff + 8),
		window:      make([]complex128, m),
		clean:       make([]complex128, ne),
	}, nil
}

// BlockSize returns the internal block size Ne.
func (d *Detector) BlockSize() int { return d.ne }

// PatternLen returns M.
func (d *Detector) PatternLen() int { return d.m }

// Pattern returns the reference pattern. It must not be modified.
func (d *Detector) Pattern() []complex128 { return d.pattern }

// Threshold returns the detection threshold.
func (d *Detector) Threshold() float64 { return d.cfg.Threshold }

// Processed returns the number of samples correlated so far. Samples still
// waiting for a complete block are not counted.
func (d *Detector) Processed() int64 { return d.processed }

// Dropped returns the number of peaks discarded because they started before
// the beginning of the stream.
func (d *Detector) Dropped() int { return d.dropped }

// Erased returns the number of non-finite samples correlated as zeros.
func (d *Detector) Erased() int64 { return d.erased }

// Reset clears all stream state.
func (d *Detector) Reset() {
	d.ola.Reset()
	d.pending = d.pending[:0]
	d.history.Reset()
	d.energy = 0
	d.prevC = 0
	d.cand = nil
	d.processed = 0
	d.dropped = 0
	d.erased = 0
}

// Process consumes block, of any length, and returns the detections that
// became final. Samples that do not fill a complete internal block are kept
// for the next call.
func (d *Detector) Process(block []complex128) []Detection {
	var out []Detection
	for len(block) > 0 {
		if len(d.pending) == 0 && len(block) >= d.ne {
			out = d.processBlock(block[:d.ne], out)
			block = block[d.ne:]
			continue
		}
		n := min(d.ne-len(d.pending), len(block))
		d.pending = append(d.pending, block[:n]...)
		block = block[n:]
		if len(d.pending) == d.ne {
			out = d.processBlock(d.pending, out)
			d.pending = d.pending[:0]
		}
	}
	return out
}

func (d *Detector) processBlock(x []complex128, out []Detection) []Detection {
	x = d.erase(x)
	if err := d.ola.ProcessBlockTo(d.corr, x); err != nil {
		// Sizes are fixed at construction; this cannot happen.
		panic(err)
	}

	for i, c := range d.corr {
		d.re[i] = real(c)
		d.im[i] = imag(c)
	}
	vecmath.Magnitude(d.mags, d.re, d.im)

	start := d.processed
	for i, v := range x {
		n := start + int64(i)
		d.pushEnergy(n, v)

		score := 0.0
		if d.energy > energyFloor {
			score = core.Clamp(d.mags[i]/(d.patternNorm*math.Sqrt(d.energy)), 0, 1)
		}
		d.scores[i] = score

		c := d.corr[i]
		switch {
		case score >= d.cfg.Threshold && (d.cand == nil || score > d.cand.score):
			d.cand = &candidate{idx: n, score: score, c: c, left: d.prevC}
		case d.cand != nil && n == d.cand.idx+1:
			d.cand.right = c
			d.cand.hasRight = true
		}
		d.prevC = c

		if d.cand != nil && d.cand.hasRight && n-d.cand.idx >= int64(d.cfg.Holdoff) {
			if det, ok := d.finalize(d.cand); ok {
				out = append(out, det)
			}
			d.cand = nil
		}
	}
	d.processed += int64(len(x))

	if d.cfg.Observer != nil {
		d.cfg.Observer(start, d.scores[:len(x)], d.mags[:len(x)])
	}
	return out
}

// erase returns x, or a copy of it with non-finite samples set to zero.
func (d *Detector) erase(x []complex128) []complex128 {
	first := -1
	for i, v := range x {
		if !core.IsFiniteComplex(v) {
			first = i
			break
		}
	}
	if first < 0 {
		return x
	}
	y := d.clean[:len(x)]
	copy(y, x)
	for i := first; i < len(y); i++ {
		if !core.IsFiniteComplex(y[i]) {
			y[i] = 0
			d.erased++
		}
	}
	return y
}

// pushEnergy appends v to the history and updates the energy of the last M
// samples, recomputing it from scratch every M samples to bound rounding
// drift.
func (d *Detector) pushEnergy(n int64, v complex128) {
	d.history.Push(v)
	if (n+1)%int64(d.m) == 0 {
		d.history.Last(d.window)
		d.energy = core.Energy(d.window)
		return
	}
	old, _ := d.history.At(n - int64(d.m))
	d.energy += real(v)*real(v) + imag(v)*imag(v) - real(old)*real(old) - imag(old)*imag(old)
	if d.energy < 0 {
		d.energy = 0
	}
}

func (d *Detector) finalize(c *candidate) (Detection, bool) {
	c0, c1, c2 := cmplx.Abs(c.left), cmplx.Abs(c.c), cmplx.Abs(c.right)
	delta := 0.0
	if den := c0 - 2*c1 + c2; den < 0 {
		delta = core.Clamp(0.5*(c0-c2)/den, -0.5, 0.5)
	}

	cPeak := c.c - (c.left-c.right)*complex(delta/4, 0)
	gain := cPeak / complex(d.patternNorm*d.patternNorm, 0)

	pos := float64(c.idx-int64(d.m)+1) + delta
	if pos < 0 {
		d.dropped++
		return Detection{}, false
	}

	s0 := int64(math.Floor(pos))
	frac := pos - float64(s0)
	for k := range d.window {
		d.window[k], _ = d.history.At(s0 + int64(k))
	}
	snr, noise := EstimateSNR(d.window, d.pattern, gain, frac)

	amp, phase := foldPhase(gain)
	return Detection{
		Position:    pos,
		Score:       c.score,
		Gain:        gain,
		Amplitude:   amp,
		Phase:       phase,
		SNR:         snr,
		NoiseStdDev: noise,
	}, true
}
