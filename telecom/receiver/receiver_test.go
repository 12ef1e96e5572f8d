package receiver

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/mixer"
	"github.com/cwbudde/algo-modem/internal/testutil"
	"github.com/cwbudde/algo-modem/telecom/bits"
	"github.com/cwbudde/algo-modem/telecom/carrierrec"
	"github.com/cwbudde/algo-modem/telecom/channel"
	"github.com/cwbudde/algo-modem/telecom/demod"
	"github.com/cwbudde/algo-modem/telecom/detect"
	"github.com/cwbudde/algo-modem/telecom/emitter"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

type recorder struct {
	detections []detect.Detection
	accepted   []bool
	frames     []Frame
}

func (r *recorder) Detection(d detect.Detection, accepted bool) {
	r.detections = append(r.detections, d)
	r.accepted = append(r.accepted, accepted)
}

func (r *recorder) Frame(f Frame) { r.frames = append(r.frames, f) }

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newReceiver(t *testing.T, cfg Config, opts ...Option) *Receiver {
	t.Helper()
	rx, err := New(cfg, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return rx
}

// scene is a noisy stream with bursts embedded at known positions.
type scene struct {
	x        []complex128
	payloads [][]byte
}

// newScene returns n samples of noise of the given variance.
func newScene(t *testing.T, n int, variance float64, seed uint64) *scene {
	t.Helper()
	ch, err := channel.New(channel.Config{NoiseVariance: variance}, seed)
	require.NoError(t, err)
	return &scene{x: ch.Noise(n)}
}

// add embeds a burst with a random payload at pos, scaled by gain.
func (s *scene) add(t *testing.T, rx *Receiver, pos float64, gain complex128, seed uint64) []byte {
	t.Helper()
	f := rx.Format()
	payload := testutil.RandomBits(seed, f.PayloadBits())
	e, err := emitter.New(f)
	require.NoError(t, err)
	b, err := e.Burst(payload)
	require.NoError(t, err)
	for i := range b {
		b[i] *= gain
	}
	require.NoError(t, channel.Embed(s.x, pos, b))
	s.payloads = append(s.payloads, payload)
	return payload
}

// feed passes x to rx in blocks of size n and collects the frames.
func feed(rx *Receiver, x []complex128, n int) []Frame {
	var out []Frame
	for len(x) > 0 {
		k := min(n, len(x))
		out = append(out, rx.Step(x[:k])...)
		x = x[k:]
	}
	return out
}

// linearNoise returns the noise variance giving snrDB per sample for a
// unit-energy linear burst at osf samples per symbol.
func linearNoise(osf int, snrDB float64) float64 {
	return channel.NoiseVarianceForSNR(1/float64(osf), snrDB)
}

func TestScenario(t *testing.T) {
	cfg := DefaultConfig()
	rec := &recorder{}
	rx := newReceiver(t, cfg, WithObserver(rec))
	require.Equal(t, 508, rx.Format().PatternLen())

	s := newScene(t, 5000, linearNoise(4, 6), 1)
	payload := s.add(t, rx, 1000.5, 1, 2)

	frames := feed(rx, s.x, rx.State().ExpectedBlockSize)

	require.Len(t, rec.detections, 1)
	require.Len(t, frames, 1)
	d := frames[0].Detection
	assert.InDelta(t, 1000.5, d.Position, 0.2)
	assert.GreaterOrEqual(t, d.Score, 0.8)
	assert.InDelta(t, 6, d.SNR, 1)
	assert.InDelta(t, d.SNR+10*math.Log10(4), frames[0].EbN0, 1e-9)
	// BPSK symbols carry one bit: the blind payload estimate tracks Eb/N0.
	assert.InDelta(t, frames[0].EbN0, frames[0].PayloadSNR, 2)
	assert.Equal(t, payload, frames[0].Bits)
	assert.Zero(t, frames[0].Loops.HeaderErrors)
	assert.Equal(t, frames, rec.frames)

	st := rx.State()
	assert.Equal(t, Scanning, st.Mode)
	assert.Equal(t, 1, st.Frames)
	assert.Equal(t, int64(len(s.x)), st.Processed)
}

func TestDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	a := newReceiver(t, cfg)
	b := newReceiver(t, cfg)

	s := newScene(t, 6000, linearNoise(4, 3), 3)
	s.add(t, a, 700.25, complexGain(0.8, 1), 4)
	s.add(t, a, 3000.75, complexGain(1.2, -0.5), 5)

	fa := feed(a, s.x, 512)
	fb := feed(b, s.x, 512)
	require.Len(t, fa, 2)
	assert.Equal(t, fa, fb)
}

func TestBlockSizeDoesNotMatter(t *testing.T) {
	cfg := DefaultConfig()
	s := newScene(t, 5000, linearNoise(4, 6), 6)
	ref := newReceiver(t, cfg)
	s.add(t, ref, 1234.4, 1, 7)
	want := feed(ref, s.x, ref.State().ExpectedBlockSize)
	require.Len(t, want, 1)

	for _, n := range []int{1, 37, 700, len(s.x)} {
		rx := newReceiver(t, cfg)
		got := feed(rx, s.x, n)
		assert.Equal(t, want, got, "block size %d", n)
	}
}

func TestUnderrunWaitsForSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PayloadBitLength = 1024
	rx := newReceiver(t, cfg)
	s := newScene(t, 7000, linearNoise(4, 8), 8)
	payload := s.add(t, rx, 1000, 1, 9)

	blk := rx.State().ExpectedBlockSize
	split := 9 * blk
	require.Empty(t, feed(rx, s.x[:split], blk))
	assert.Equal(t, Demodulating, rx.State().Mode)

	frames := feed(rx, s.x[split:], blk)
	require.Len(t, frames, 1)
	assert.Equal(t, payload, frames[0].Bits)
	assert.Equal(t, Scanning, rx.State().Mode)
}

func TestQueuedBursts(t *testing.T) {
	cfg := DefaultConfig()
	rx := newReceiver(t, cfg)
	burstLen := (127+256)*4 + 32

	s := newScene(t, 600+2*burstLen+2000, linearNoise(4, 12), 10)
	first := s.add(t, rx, 500, 1, 11)
	second := s.add(t, rx, float64(500+burstLen+40)+0.6, complexGain(0.5, 2), 12)

	// One block holding both bursts queues both detections.
	frames := rx.Step(s.x)
	require.Len(t, frames, 2)
	assert.Less(t, frames[0].Detection.Position, frames[1].Detection.Position)
	assert.Equal(t, first, frames[0].Bits)
	assert.Equal(t, second, frames[1].Bits)
	assert.Zero(t, rx.State().Queued)
}

func TestSNRGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinimumSNR = 30
	rec := &recorder{}
	rx := newReceiver(t, cfg, WithObserver(rec))

	s := newScene(t, 4000, linearNoise(4, 6), 13)
	s.add(t, rx, 800, 1, 14)

	assert.Empty(t, feed(rx, s.x, 512))
	require.Len(t, rec.accepted, 1)
	assert.False(t, rec.accepted[0])
	assert.Equal(t, 1, rx.State().Rejected)
	assert.Zero(t, rx.State().Frames)
}

func TestKeepSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepSamples = true
	rx := newReceiver(t, cfg)
	s := newScene(t, 4000, linearNoise(4, 10), 15)
	s.add(t, rx, 300, 1, 16)

	frames := feed(rx, s.x, 512)
	require.Len(t, frames, 1)
	f := frames[0]
	// The samples start MatchedLen-1 ahead of the detected burst start,
	// which may round down to the previous sample.
	idx := int(f.Detection.Index())
	assert.InDelta(t, 300, idx, 1)
	start := idx - 32
	require.Greater(t, len(f.Samples), rx.Format().Symbols()*4)
	assert.Equal(t, s.x[start:start+len(f.Samples)], f.Samples)
	assert.Len(t, f.Symbols, rx.Format().Symbols())
}

func TestNonFiniteSamplesMidBurst(t *testing.T) {
	rx := newReceiver(t, DefaultConfig())
	f := rx.Format()
	s := newScene(t, 7000, linearNoise(4, 10), 17)
	first := s.add(t, rx, 600, 1, 18)
	second := s.add(t, rx, 3500.5, 1, 19)
	// Ten samples about 40 symbols into the first payload.
	at := 600 + (f.HeaderSymbols()+40)*f.OSF()
	for i := at; i < at+10; i++ {
		s.x[i] = complex(math.NaN(), math.Inf(-1))
	}

	frames := feed(rx, s.x, 512)
	require.Len(t, frames, 2)
	assert.Equal(t, int64(10), rx.State().Erased)
	for _, fr := range frames {
		l := fr.Loops
		for _, v := range []float64{l.ClockOffset, l.Phase, l.Frequency, l.AGCGain} {
			assert.True(t, core.IsFinite(v), "loops %+v", l)
		}
		testutil.RequireFinite(t, fr.Symbols)
	}
	assert.LessOrEqual(t, bits.Errors(first, frames[0].Bits), 8)
	assert.Equal(t, second, frames[1].Bits)

	rx.Reset()
	assert.Zero(t, rx.State().Erased)
}

func TestCorrelationObserver(t *testing.T) {
	var (
		seen      int64
		peak      int64
		peakScore float64
		peakMag   float64
	)
	obs := func(start int64, scores, magnitudes []float64) {
		assert.Equal(t, seen, start)
		require.Len(t, magnitudes, len(scores))
		for i, sc := range scores {
			if sc > peakScore {
				peak, peakScore, peakMag = start+int64(i), sc, magnitudes[i]
			}
		}
		seen += int64(len(scores))
	}
	rx := newReceiver(t, DefaultConfig(), WithCorrelationObserver(obs))
	s := newScene(t, 4000, linearNoise(4, 10), 21)
	s.add(t, rx, 1000, 1, 22)

	frames := feed(rx, s.x, 512)
	require.Len(t, frames, 1)
	m := int64(rx.Format().PatternLen())
	assert.InDelta(t, 1000+m-1, peak, 1)
	assert.InDelta(t, frames[0].Detection.Score, peakScore, 1e-12)
	assert.Greater(t, peakMag, 0.0)
	assert.Equal(t, int64(len(s.x))/512*512, seen)
}

func TestWaveforms(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		gain   complex128
		snr    float64
		freq   float64
	}{
		{name: "qpsk left half plane", mutate: func(c *Config) {
			c.Waveform, c.HeaderWaveform = "qpsk", "bpsk"
		}, gain: complexGain(0.6, 2.5), snr: 12},
		{name: "16qam", mutate: func(c *Config) {
			c.Waveform, c.HeaderWaveform = "16qam", "bpsk"
		}, gain: complexGain(2, -1), snr: 20},
		{name: "non decision directed", mutate: func(c *Config) {
			c.Architecture = demod.NonDecisionDirected
		}, gain: complexGain(0.3, 0.7), snr: 12},
		{name: "fsk", mutate: func(c *Config) { c.Waveform = "fsk" }, gain: 1, snr: 20},
		{name: "gmsk", mutate: func(c *Config) { c.Waveform = "gmsk" }, gain: complexGain(1, 1), snr: 20},
		{name: "intermediate frequency", mutate: func(c *Config) {
			c.IntermediateFrequency = 25e3
		}, gain: 1, snr: 10},
		{name: "frequency seed", mutate: func(c *Config) {
			c.Waveform, c.HeaderWaveform = "qpsk", "bpsk"
			c.CarrierRecovery.FrequencySeed = true
		}, gain: 1, snr: 15, freq: 0.0005},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			rx := newReceiver(t, cfg)

			power := 1 / float64(cfg.OversamplingFactor)
			if !rx.Format().Waveform().IsLinear() {
				power = 1
			}
			power *= real(tc.gain)*real(tc.gain) + imag(tc.gain)*imag(tc.gain)
			s := newScene(t, 5000, channel.NoiseVarianceForSNR(power, tc.snr), uint64(20+i))
			payload := s.add(t, rx, 900.3, tc.gain, uint64(40+i))
			if tc.freq != 0 {
				nco, err := mixer.New(tc.freq)
				require.NoError(t, err)
				nco.MixInPlace(s.x)
			}

			frames := feed(rx, s.x, 512)
			require.Len(t, frames, 1)
			assert.Equal(t, payload, frames[0].Bits)
			if rx.Format().Waveform().Family() != waveform.PSK {
				assert.True(t, math.IsNaN(frames[0].PayloadSNR), "PayloadSNR = %v", frames[0].PayloadSNR)
			}
			if tc.freq != 0 {
				// Loop noise at this SNR is a sizeable fraction of the
				// offset; check the estimate lies on the right side.
				w := 2 * math.Pi * tc.freq * 4
				assert.InDelta(t, w, frames[0].Loops.Frequency, w)
			}
		})
	}
}

func TestBERFollowsTheory(t *testing.T) {
	const (
		ebn0   = 6.0
		bursts = 8
		nbits  = 2048
	)
	for _, wave := range []string{"bpsk", "qpsk"} {
		t.Run(wave, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Waveform, cfg.HeaderWaveform = wave, "bpsk"
			cfg.PayloadBitLength = nbits
			rx := newReceiver(t, cfg)
			wf := rx.Format().Waveform()

			burstLen := rx.Format().Symbols()*4 + 32
			variance := channel.NoiseVarianceForEbN0(0.25, 4, wf.BitsPerSymbol(), ebn0)
			s := newScene(t, bursts*(burstLen+300)+1000, variance, 50)
			for k := range bursts {
				s.add(t, rx, float64(200+k*(burstLen+300))+0.37*float64(k), 1, uint64(60+k))
			}

			frames := feed(rx, s.x, 512)
			require.Len(t, frames, bursts)
			var errs int
			for k, f := range frames {
				errs += bits.Errors(s.payloads[k], f.Bits)
			}
			ber := float64(errs) / float64(bursts*nbits)
			theory := wf.TheoreticalBER(ebn0)
			t.Logf("%s: BER %.2e, theory %.2e", wave, ber, theory)
			assert.LessOrEqual(t, ber, 3*theory)
		})
	}
}

func TestConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		kind   error
		field  string
	}{
		{"oversampling", func(c *Config) { c.OversamplingFactor = 0 }, ErrOversampling, "oversampling_factor"},
		{"oversampling one", func(c *Config) { c.OversamplingFactor = 1 }, ErrOversampling, "oversampling_factor"},
		{"symbol rate", func(c *Config) { c.SymbolRate = 0 }, ErrSampleRate, "symbol_rate"},
		{"not a multiple", func(c *Config) { c.SampleRate = 410e3 }, ErrSampleRate, "sample_rate"},
		{"osf mismatch", func(c *Config) { c.SampleRate = 800e3 }, ErrSampleRate, "sample_rate"},
		{"intermediate frequency", func(c *Config) { c.IntermediateFrequency = 300e3 }, ErrSampleRate, "intermediate_frequency"},
		{"payload", func(c *Config) { c.PayloadBitLength = -1 }, ErrPayloadLength, "payload_bit_length"},
		{"threshold zero", func(c *Config) { c.DetectionThreshold = 0 }, ErrThreshold, "detection_threshold"},
		{"threshold above one", func(c *Config) { c.DetectionThreshold = 1.5 }, ErrThreshold, "detection_threshold"},
		{"no preamble", func(c *Config) { c.PreambleOrder = 0 }, ErrPreamble, "preamble_bits"},
		{"preamble order", func(c *Config) { c.PreambleOrder = 40 }, ErrPreamble, "preamble_order"},
		{"preamble bits", func(c *Config) { c.PreambleBits = []byte{1, 0, 2} }, ErrPreamble, "preamble_bits"},
		{"waveform", func(c *Config) { c.Waveform = "7psk" }, ErrWaveform, "waveform"},
		{"mixed families", func(c *Config) { c.HeaderWaveform = "fsk" }, ErrWaveform, "header_waveform"},
		{"clock", func(c *Config) { c.ClockRecovery.TimeConstant = 0 }, ErrLoop, "clock_recovery"},
		{"carrier", func(c *Config) { c.CarrierRecovery.LoopBandwidth = 0.7 }, ErrLoop, "carrier_recovery"},
		{"blind detector in decision chain", func(c *Config) { c.CarrierRecovery.Detector = carrierrec.DetectorTan }, ErrLoop, "carrier_recovery"},
		{"architecture", func(c *Config) { c.Architecture = demod.Architecture(9) }, ErrLoop, "architecture"},
		{"block size", func(c *Config) { c.BlockSize = -4 }, ErrBlockSize, "block_size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			_, err := New(cfg, WithLogger(quietLogger()))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.field, ce.Field)
			assert.ErrorIs(t, cfg.Validate(), tc.kind)
		})
	}
}

func TestConfigErrorWrapsCause(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CarrierRecovery.Damping = -1
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrLoop)
	assert.Contains(t, err.Error(), "carrier_recovery")
	assert.Contains(t, err.Error(), "carrierrec")
}

func TestConfigureKeepsStateOnError(t *testing.T) {
	rx := newReceiver(t, DefaultConfig())
	bad := DefaultConfig()
	bad.OversamplingFactor = -3
	require.Error(t, rx.Configure(bad))
	assert.Equal(t, 4, rx.Config().OversamplingFactor)

	good := DefaultConfig()
	good.OversamplingFactor = 8
	require.NoError(t, rx.Configure(good))
	assert.Equal(t, 8, rx.Format().OSF())
	assert.Equal(t, 1024, rx.State().ExpectedBlockSize)
}

func TestDisabledLoopsSkipValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClockRecovery = ClockRecovery{}
	cfg.CarrierRecovery = CarrierRecovery{}
	require.NoError(t, cfg.Validate())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "scanning", Scanning.String())
	assert.Equal(t, "aligning", Aligning.String())
	assert.Equal(t, "demodulating", Demodulating.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}

func complexGain(a, phase float64) complex128 {
	return complex(a*math.Cos(phase), a*math.Sin(phase))
}
