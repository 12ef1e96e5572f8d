package demod

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/interp"
	"github.com/cwbudde/algo-modem/dsp/mixer"
	"github.com/cwbudde/algo-modem/internal/testutil"
	"github.com/cwbudde/algo-modem/telecom/bits"
	"github.com/cwbudde/algo-modem/telecom/carrierrec"
	"github.com/cwbudde/algo-modem/telecom/channel"
	"github.com/cwbudde/algo-modem/telecom/clockrec"
	"github.com/cwbudde/algo-modem/telecom/emitter"
	"github.com/cwbudde/algo-modem/telecom/frame"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

const payloadBits = 240

// newFormat returns a format with an order-6 MLS header, sent in BPSK for
// linear payload waveforms.
func newFormat(t *testing.T, wave string, payload int, timing core.Timing) *frame.Format {
	t.Helper()
	headerWave := wave
	if wf, err := waveform.ByName(wave); err == nil && wf.IsLinear() {
		headerWave = "bpsk"
	}
	return newFormatWithHeader(t, wave, headerWave, payload, timing)
}

func newFormatWithHeader(t *testing.T, wave, headerWave string, payload int, timing core.Timing) *frame.Format {
	t.Helper()
	wf, err := waveform.ByName(wave)
	require.NoError(t, err)
	headerWf, err := waveform.ByName(headerWave)
	require.NoError(t, err)
	header, err := bits.MLS(6)
	require.NoError(t, err)
	f, err := frame.New(header, payload, wf, headerWf, timing)
	require.NoError(t, err)
	return f
}

func testConfig(f *frame.Format, arch Architecture) Config {
	return Config{
		Format:          f,
		Architecture:    arch,
		Clock:           clockrec.Config{TimeConstant: 20, Interpolator: interp.KindCubic, Enabled: true},
		Carrier:         carrierrec.Config{Enabled: true, LoopBandwidth: 0.01, Damping: 0.707},
		AGCTimeConstant: 50,
	}
}

// burstStream embeds a burst carrying payload at pos, scaled by gain, in a
// buffer of silence.
func burstStream(t *testing.T, f *frame.Format, payload []byte, pos float64, gain complex128) []complex128 {
	t.Helper()
	e, err := emitter.New(f)
	require.NoError(t, err)
	b, err := e.Burst(payload)
	require.NoError(t, err)
	for i := range b {
		b[i] *= gain
	}
	x := make([]complex128, int(pos)+len(b)+64)
	require.NoError(t, channel.Embed(x, pos, b))
	return x
}

// demodulate runs x through a front end and d, starting the burst at pos.
func demodulate(t *testing.T, d *Demodulator, x []complex128, pos, timingError float64, gain complex128, freq float64) []byte {
	t.Helper()
	fe, err := NewFrontEnd(d.Format(), nil)
	require.NoError(t, err)
	y := make([]complex128, len(x))
	fe.Process(y, x)

	n0 := max(int(math.Floor(pos))-(d.MatchedLen()-1), 0)
	d.Start(gain, pos-float64(n0)+d.SymbolDelay()+timingError, freq)
	used := d.Process(y[n0:])
	require.True(t, d.Done(), "burst incomplete after %d samples", used)
	assert.Less(t, used, len(y)-n0)
	return d.Bits()
}

func TestDecisionDirectedRoundTrip(t *testing.T) {
	gain := cmplx.Rect(0.7, 0.4)
	for _, wave := range []string{"bpsk", "qpsk", "8psk", "16qam", "64qam", "4ask", "ook"} {
		t.Run(wave, func(t *testing.T) {
			f := newFormat(t, wave, payloadBits, core.DefaultTiming())
			d, err := New(testConfig(f, DecisionDirected))
			require.NoError(t, err)

			payload := testutil.RandomBits(1, payloadBits)
			x := burstStream(t, f, payload, 50.25, gain)
			got := demodulate(t, d, x, 50.25, 0, gain, 0)

			assert.Equal(t, payload, got)
			assert.Zero(t, d.Stats().HeaderErrors)
			assert.Len(t, d.Symbols(), f.Symbols())
		})
	}
}

func TestNonDecisionDirectedRoundTrip(t *testing.T) {
	gain := cmplx.Rect(1.3, -2)
	for _, wave := range []string{"bpsk", "qpsk"} {
		t.Run(wave, func(t *testing.T) {
			// The blind loop needs the header and the payload to share a
			// symmetry order.
			f := newFormatWithHeader(t, wave, wave, payloadBits, core.DefaultTiming())
			d, err := New(testConfig(f, NonDecisionDirected))
			require.NoError(t, err)
			assert.Equal(t, NonDecisionDirected, d.Architecture())

			payload := testutil.RandomBits(2, payloadBits)
			x := burstStream(t, f, payload, 80, gain)
			got := demodulate(t, d, x, 80, 0, gain, 0)

			assert.Equal(t, payload, got)
			assert.InDelta(t, 1, d.Stats().AGCGain, 0.1)
		})
	}
}

func TestFSKRoundTrip(t *testing.T) {
	for _, wave := range []string{"fsk", "msk", "gfsk", "gmsk", "4fsk"} {
		t.Run(wave, func(t *testing.T) {
			f := newFormat(t, wave, payloadBits, core.DefaultTiming())
			d, err := New(testConfig(f, DecisionDirected))
			require.NoError(t, err)

			payload := testutil.RandomBits(3, payloadBits)
			// The gain is irrelevant to the discriminator.
			x := burstStream(t, f, payload, 40.5, cmplx.Rect(0.5, 1))
			got := demodulate(t, d, x, 40.5, 0, 1, 0)

			assert.Equal(t, payload, got)
			assert.Zero(t, d.Stats().HeaderErrors)
		})
	}
}

func TestTimingErrorIsTracked(t *testing.T) {
	const n = 960
	f := newFormat(t, "qpsk", n, core.DefaultTiming())
	d, err := New(testConfig(f, DecisionDirected))
	require.NoError(t, err)

	payload := testutil.RandomBits(4, n)
	x := burstStream(t, f, payload, 33, 1)
	got := demodulate(t, d, x, 33, -0.4, 1, 0)

	assert.Equal(t, payload, got)
	assert.InDelta(t, 0.4, d.Stats().ClockOffset, 0.1)
	assert.Positive(t, d.Stats().ClockUpdates)
}

func TestFrequencySeed(t *testing.T) {
	const (
		pos = 60.0
		df  = 0.002 // cycles per symbol
	)
	f := newFormat(t, "qpsk", 480, core.DefaultTiming())
	osf := float64(f.OSF())
	d, err := New(testConfig(f, DecisionDirected))
	require.NoError(t, err)

	payload := testutil.RandomBits(5, 480)
	x := burstStream(t, f, payload, pos, 1)
	nco, err := mixer.New(df / osf)
	require.NoError(t, err)
	nco.MixInPlace(x)

	// Complex gain as measured over the header: the carrier phase at its
	// centre.
	centre := pos + float64(f.PatternLen()-1)/2
	gain := core.Rotor(2 * math.Pi * df / osf * centre)
	w := 2 * math.Pi * df

	got := demodulate(t, d, x, pos, 0, gain, w)
	assert.Equal(t, payload, got)
	assert.InDelta(t, w, d.Stats().Frequency, 0.2*w)
}

func TestRestartClearsState(t *testing.T) {
	f := newFormat(t, "16qam", payloadBits, core.DefaultTiming())
	d, err := New(testConfig(f, DecisionDirected))
	require.NoError(t, err)

	first := testutil.RandomBits(6, payloadBits)
	second := testutil.RandomBits(7, payloadBits)
	x1 := burstStream(t, f, first, 20, 1)
	x2 := burstStream(t, f, second, 20, 1)

	assert.Equal(t, first, demodulate(t, d, x1, 20, 0, 1, 0))
	assert.Equal(t, second, demodulate(t, d, x2, 20, 0, 1, 0))
}

func TestNonFiniteSamplesAreErased(t *testing.T) {
	const pos = 50.0
	f := newFormat(t, "bpsk", payloadBits, core.DefaultTiming())
	d, err := New(testConfig(f, DecisionDirected))
	require.NoError(t, err)

	first := testutil.RandomBits(8, payloadBits)
	second := testutil.RandomBits(9, payloadBits)
	x := burstStream(t, f, first, pos, 1)
	// Ten samples inside the payload, about 24 symbols past the header.
	at := int(pos) + (f.HeaderSymbols()+24)*f.OSF()
	for i := at; i < at+10; i++ {
		x[i] = complex(math.NaN(), math.Inf(1))
	}

	n0 := int(pos) - (d.MatchedLen() - 1)
	d.Start(1, pos-float64(n0)+d.SymbolDelay(), 0)
	d.Process(x[n0:])
	require.True(t, d.Done())

	st := d.Stats()
	assert.Equal(t, 10, st.Erased)
	for name, v := range map[string]float64{
		"ClockOffset": st.ClockOffset,
		"Phase":       st.Phase,
		"Frequency":   st.Frequency,
		"AGCGain":     st.AGCGain,
	} {
		assert.True(t, core.IsFinite(v), "%s = %v", name, v)
	}
	testutil.RequireFinite(t, d.Symbols())
	// The erased run touches a few symbols only.
	assert.LessOrEqual(t, bits.Errors(first, d.Bits()), 8)

	got := demodulate(t, d, burstStream(t, f, second, pos, 1), pos, 0, 1, 0)
	assert.Equal(t, second, got)
	assert.Zero(t, d.Stats().Erased)
}

func TestBitsBeforeDone(t *testing.T) {
	f := newFormat(t, "bpsk", payloadBits, core.DefaultTiming())
	d, err := New(testConfig(f, DecisionDirected))
	require.NoError(t, err)
	d.Start(1, 40, 0)
	assert.Equal(t, 100, d.Process(make([]complex128, 100)))
	assert.False(t, d.Done())
	assert.Nil(t, d.Bits())
}

func TestSymbolDelay(t *testing.T) {
	lin := newFormat(t, "bpsk", payloadBits, core.DefaultTiming())
	d, err := New(testConfig(lin, DecisionDirected))
	require.NoError(t, err)
	// Pulse and matched filter of 33 taps each.
	assert.InDelta(t, 32, d.SymbolDelay(), 1e-12)
	assert.Equal(t, 33, d.MatchedLen())

	fsk := newFormat(t, "fsk", payloadBits, core.DefaultTiming())
	d, err = New(testConfig(fsk, DecisionDirected))
	require.NoError(t, err)
	fe, err := NewFrontEnd(fsk, nil)
	require.NoError(t, err)
	// Rectangular frequency pulse and boxcar of 4 samples.
	assert.InDelta(t, 3+fe.Delay(), d.SymbolDelay(), 1e-12)
}

func TestNewErrors(t *testing.T) {
	f := newFormat(t, "bpsk", payloadBits, core.DefaultTiming())

	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrFormat)

	cfg := testConfig(f, Architecture(5))
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrArchitecture)

	cfg = testConfig(f, DecisionDirected)
	cfg.Clock.TimeConstant = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, clockrec.ErrTimeConstant)

	cfg = testConfig(f, DecisionDirected)
	cfg.Carrier.Damping = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, carrierrec.ErrLoop)

	cfg = testConfig(f, DecisionDirected)
	cfg.Carrier.Detector = carrierrec.DetectorCostas
	_, err = New(cfg)
	assert.ErrorIs(t, err, carrierrec.ErrDetector)

	cfg.Architecture = NonDecisionDirected
	_, err = New(cfg)
	require.NoError(t, err)

	cfg = testConfig(newFormat(t, "fsk", payloadBits, core.DefaultTiming()), DecisionDirected)
	cfg.Carrier.Detector = carrierrec.DetectorPower
	_, err = New(cfg)
	require.NoError(t, err, "carrier recovery is off for FSK")
}

func TestParseArchitecture(t *testing.T) {
	for _, a := range []Architecture{DecisionDirected, NonDecisionDirected} {
		text, err := a.MarshalText()
		require.NoError(t, err)
		var back Architecture
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, a, back)
	}
	a, err := ParseArchitecture("NDD")
	require.NoError(t, err)
	assert.Equal(t, NonDecisionDirected, a)
	_, err = ParseArchitecture("coherent")
	assert.ErrorIs(t, err, ErrArchitecture)
}
