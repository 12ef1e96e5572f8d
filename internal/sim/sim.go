// Package sim measures a receiver configuration over a simulated channel:
// bursts with random or PRBS payloads are emitted, impaired and received,
// and the bit error rate is compared with theory. In PRBS mode the decoded
// payloads are also fed, in order, to a self-synchronising sequence
// checker, which measures the error rate without knowing what was sent.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-modem/telecom/bits"
	"github.com/cwbudde/algo-modem/telecom/channel"
	"github.com/cwbudde/algo-modem/telecom/emitter"
	"github.com/cwbudde/algo-modem/telecom/receiver"
)

// ErrConfig is returned for invalid simulation settings.
var ErrConfig = errors.New("sim: invalid configuration")

// Config describes a simulation run.
type Config struct {
	// Bursts is the number of bursts per Eb/N0 point.
	Bursts int `koanf:"bursts" yaml:"bursts"`
	// Gap is the number of noise samples before each burst.
	Gap int `koanf:"gap" yaml:"gap"`
	// EbN0 lists the Eb/N0 points in dB.
	EbN0 []float64 `koanf:"ebn0" yaml:"ebn0"`
	Seed uint64    `koanf:"seed" yaml:"seed"`
	// Channel sets the gain, phase and frequency impairments. Its delay
	// is added to every burst position and its noise is replaced by the
	// Eb/N0 points.
	Channel channel.Config `koanf:"channel" yaml:"channel"`
	// BlockSize is the Step size; 0 uses the receiver's expected size.
	BlockSize int `koanf:"block_size" yaml:"block_size,omitempty"`
	// PRBSOrder, when non-zero, fills consecutive payloads with one
	// continuous LFSR sequence of that order instead of random bits.
	PRBSOrder int `koanf:"prbs_order" yaml:"prbs_order,omitempty"`
}

// DefaultConfig returns 10 bursts at 4, 6, 8 and 10 dB.
func DefaultConfig() Config {
	return Config{
		Bursts: 10,
		Gap:    500,
		EbN0:   []float64{4, 6, 8, 10},
		Seed:   1,
	}
}

// Point is the outcome at one Eb/N0.
type Point struct {
	EbN0   float64
	Theory float64
	Bits   int
	Errors int
	BER    float64
	Frames int
	// Missed counts bursts without a matching frame; their bits are not
	// part of BER.
	Missed int
	// EstimatedEbN0 and its spread are measured by the receiver.
	EstimatedEbN0       float64
	EstimatedEbN0StdDev float64
	// PRBS reports the sequence checker in PRBS mode.
	PRBS PRBSResult
}

// PRBSResult is the state of the sequence checker after a point.
type PRBSResult struct {
	Locked bool
	Bits   int64
	Errors int64
	BER    float64
}

// Run simulates every Eb/N0 point of cfg. Each point uses a fresh receiver
// built from rx and opts.
func Run(ctx context.Context, rx receiver.Config, cfg Config, opts ...receiver.Option) ([]Point, error) {
	if cfg.Bursts < 1 || cfg.Gap < 0 || len(cfg.EbN0) == 0 {
		return nil, fmt.Errorf("%w: bursts %d, gap %d, %d points", ErrConfig, cfg.Bursts, cfg.Gap, len(cfg.EbN0))
	}
	if cfg.PRBSOrder != 0 {
		if _, err := bits.Polynomial(cfg.PRBSOrder); err != nil {
			return nil, fmt.Errorf("%w: prbs order: %w", ErrConfig, err)
		}
	}
	out := make([]Point, 0, len(cfg.EbN0))
	for i, ebn0 := range cfg.EbN0 {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p, err := runPoint(rx, cfg, ebn0, cfg.Seed+uint64(i)*7919, opts)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

func runPoint(rxCfg receiver.Config, cfg Config, ebn0 float64, seed uint64, opts []receiver.Option) (Point, error) {
	rx, err := receiver.New(rxCfg, opts...)
	if err != nil {
		return Point{}, err
	}
	f := rx.Format()
	e, err := emitter.New(f)
	if err != nil {
		return Point{}, err
	}
	wf := f.Waveform()
	osf := f.OSF()

	block := cfg.BlockSize
	if block <= 0 {
		block = rx.State().ExpectedBlockSize
	}

	rng := rand.New(rand.NewPCG(seed, 0x5eed))
	payload := func() []byte { return bits.Random(rng, f.PayloadBits()) }
	var checker *bits.Checker
	if cfg.PRBSOrder != 0 {
		gen, err := bits.NewLFSR(cfg.PRBSOrder, uint32(seed))
		if err != nil {
			return Point{}, err
		}
		if checker, err = bits.NewChecker(cfg.PRBSOrder); err != nil {
			return Point{}, err
		}
		payload = func() []byte {
			b := make([]byte, f.PayloadBits())
			gen.Fill(b)
			return b
		}
	}
	slot := cfg.Gap + e.Len()
	// The tail lets the correlator confirm the last burst.
	tail := 2*f.PatternLen() + 2*block
	stream := make([]complex128, cfg.Bursts*slot+tail)
	payloads := make([][]byte, cfg.Bursts)
	positions := make([]float64, cfg.Bursts)
	for k := range cfg.Bursts {
		payloads[k] = payload()
		b, err := e.Burst(payloads[k])
		if err != nil {
			return Point{}, err
		}
		positions[k] = float64(cfg.Gap+k*slot) + rng.Float64()
		if err := channel.Embed(stream, positions[k], b); err != nil {
			return Point{}, err
		}
		positions[k] += cfg.Channel.Delay
	}

	power := 1.0
	if wf.IsLinear() {
		power /= float64(osf)
	}
	gain := cfg.Channel.Gain
	if gain == 0 {
		gain = 1
	}
	chCfg := cfg.Channel
	chCfg.NoiseVariance = channel.NoiseVarianceForEbN0(power*gain*gain, osf, wf.BitsPerSymbol(), ebn0)
	ch, err := channel.New(chCfg, seed)
	if err != nil {
		return Point{}, err
	}
	x, err := ch.Apply(stream)
	if err != nil {
		return Point{}, err
	}

	var frames []receiver.Frame
	for len(x) > 0 {
		n := min(block, len(x))
		frames = append(frames, rx.Step(x[:n])...)
		x = x[n:]
	}

	p := Point{EbN0: ebn0, Theory: wf.TheoreticalBER(ebn0), Frames: len(frames)}
	var estimates []float64
	matched := make([]bool, cfg.Bursts)
	for _, fr := range frames {
		k := nearest(positions, fr.Detection.Position, float64(osf))
		if k < 0 || matched[k] {
			continue
		}
		matched[k] = true
		p.Bits += len(payloads[k])
		p.Errors += bits.Errors(payloads[k], fr.Bits)
		estimates = append(estimates, fr.EbN0)
		if checker != nil {
			checker.Process(fr.Bits)
		}
	}
	for _, m := range matched {
		if !m {
			p.Missed++
		}
	}
	if p.Bits > 0 {
		p.BER = float64(p.Errors) / float64(p.Bits)
	}
	if checker != nil {
		p.PRBS.Locked = checker.Locked()
		p.PRBS.Bits, p.PRBS.Errors = checker.Counts()
		p.PRBS.BER = checker.BER()
	}
	if len(estimates) > 0 {
		p.EstimatedEbN0, p.EstimatedEbN0StdDev = stat.MeanStdDev(estimates, nil)
		if len(estimates) == 1 {
			p.EstimatedEbN0StdDev = 0
		}
	}
	return p, nil
}

// nearest returns the index of the position within tol of pos, or -1.
func nearest(positions []float64, pos, tol float64) int {
	best, bestDist := -1, tol
	for i, p := range positions {
		if d := math.Abs(p - pos); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
