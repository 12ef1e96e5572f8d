// Package channel simulates a radio link for tests and the simulator:
// fractional delay, gain, carrier phase and frequency offset, and additive
// white Gaussian noise.
package channel

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/delay"
	"github.com/cwbudde/algo-modem/dsp/mixer"
)

// ErrInvalidParameter is returned for out of range channel settings.
var ErrInvalidParameter = errors.New("channel: invalid parameter")

// Config describes the impairments applied by a Channel.
type Config struct {
	// Gain scales the signal amplitude; 0 means 1.
	Gain float64 `koanf:"gain" yaml:"gain,omitempty"`
	// Phase rotates the carrier, in radians.
	Phase float64 `koanf:"phase" yaml:"phase,omitempty"`
	// FrequencyOffset shifts the carrier, in cycles per sample.
	FrequencyOffset float64 `koanf:"frequency_offset" yaml:"frequency_offset,omitempty"`
	// Delay is a non-negative, possibly fractional, delay in samples.
	Delay float64 `koanf:"delay" yaml:"delay,omitempty"`
	// NoiseVariance is the total complex noise power per sample.
	NoiseVariance float64 `koanf:"noise_variance" yaml:"noise_variance,omitempty"`
}

// Channel applies a Config to sample buffers. Noise is drawn from a seeded
// generator so runs are reproducible.
type Channel struct {
	cfg    Config
	normal distuv.Normal
}

// New returns a channel seeded with seed.
func New(cfg Config, seed uint64) (*Channel, error) {
	if cfg.Gain == 0 {
		cfg.Gain = 1
	}
	if cfg.Delay < 0 || math.IsNaN(cfg.Delay) {
		return nil, fmt.Errorf("%w: delay %v", ErrInvalidParameter, cfg.Delay)
	}
	if cfg.NoiseVariance < 0 || math.IsNaN(cfg.NoiseVariance) {
		return nil, fmt.Errorf("%w: noise variance %v", ErrInvalidParameter, cfg.NoiseVariance)
	}
	if math.Abs(cfg.FrequencyOffset) > 0.5 {
		return nil, fmt.Errorf("%w: frequency offset %v", ErrInvalidParameter, cfg.FrequencyOffset)
	}
	return &Channel{
		cfg: cfg,
		normal: distuv.Normal{
			Mu:    0,
			Sigma: math.Sqrt(cfg.NoiseVariance / 2),
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}, nil
}

// Config returns the channel configuration.
func (c *Channel) Config() Config { return c.cfg }

// Apply returns x after the configured impairments. With a non-zero delay
// the output is longer than x by ceil(Delay) samples.
func (c *Channel) Apply(x []complex128) ([]complex128, error) {
	y := append([]complex128(nil), x...)
	if c.cfg.Delay > 0 {
		var err error
		y, err = delay.Apply(y, c.cfg.Delay, 0)
		if err != nil {
			return nil, err
		}
	}

	rot := complex(c.cfg.Gain, 0) * core.Rotor(c.cfg.Phase)
	for i := range y {
		y[i] *= rot
	}

	if c.cfg.FrequencyOffset != 0 {
		nco, err := mixer.New(c.cfg.FrequencyOffset)
		if err != nil {
			return nil, err
		}
		nco.MixInPlace(y)
	}

	c.AddNoise(y)
	return y, nil
}

// AddNoise adds complex Gaussian noise of the configured variance to x.
func (c *Channel) AddNoise(x []complex128) {
	if c.cfg.NoiseVariance == 0 {
		return
	}
	for i := range x {
		x[i] += complex(c.normal.Rand(), c.normal.Rand())
	}
}

// Noise returns n samples of complex Gaussian noise.
func (c *Channel) Noise(n int) []complex128 {
	out := make([]complex128, n)
	c.AddNoise(out)
	return out
}

// NoiseVarianceForSNR returns the per-sample noise variance giving snrDB
// relative to signalPower.
func NoiseVarianceForSNR(signalPower, snrDB float64) float64 {
	return signalPower / core.DBPowerToLinear(snrDB)
}

// NoiseVarianceForEbN0 returns the per-sample noise variance giving ebn0DB
// for a signal of mean sample power signalPower at osf samples per symbol
// carrying k bits per symbol: N0 = Es / (k Eb/N0) with Es = P*osf.
func NoiseVarianceForEbN0(signalPower float64, osf, k int, ebn0DB float64) float64 {
	es := signalPower * float64(osf)
	return es / (float64(k) * core.DBPowerToLinear(ebn0DB))
}

// Embed adds burst into dst starting at the fractional sample position
// pos >= 0. Samples falling past the end of dst are dropped.
func Embed(dst []complex128, pos float64, burst []complex128) error {
	if pos < 0 || math.IsNaN(pos) {
		return fmt.Errorf("%w: position %v", ErrInvalidParameter, pos)
	}
	start := int(math.Floor(pos))
	src := burst
	if frac := pos - float64(start); frac > 0 {
		var err error
		src, err = delay.Apply(burst, frac, 0)
		if err != nil {
			return err
		}
	}
	for i, v := range src {
		j := start + i
		if j >= len(dst) {
			break
		}
		dst[j] += v
	}
	return nil
}
