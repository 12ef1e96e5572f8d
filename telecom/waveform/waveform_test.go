package waveform

import (
	"errors"
	"math"
	"math/bits"
	"math/cmplx"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cwbudde/algo-modem/dsp/filter/design"
)

func linearCatalog(t *testing.T) []*Waveform {
	t.Helper()
	var out []*Waveform
	for _, name := range Catalog() {
		w, err := ByName(name)
		require.NoError(t, err)
		if w.IsLinear() {
			out = append(out, w)
		}
	}
	return out
}

func TestLinearWaveformsHaveUnitEnergy(t *testing.T) {
	for _, w := range linearCatalog(t) {
		var e float64
		for _, p := range w.Constellation() {
			e += real(p)*real(p) + imag(p)*imag(p)
		}
		assert.InDelta(t, 1, e/float64(w.M()), 1e-12, w.Name())
	}
}

func TestBPSKMapping(t *testing.T) {
	w, err := ByName("bpsk")
	require.NoError(t, err)

	assert.InDelta(t, -1, real(w.SymbolValue(0)), 1e-12)
	assert.InDelta(t, 1, real(w.SymbolValue(1)), 1e-12)
	assert.Equal(t, 1, w.NearestSymbol(0.2-3i))
	assert.Equal(t, 0, w.NearestSymbol(-0.2+3i))
}

func TestQPSKHasPiOver4Offset(t *testing.T) {
	w, err := New(PSK, 4)
	require.NoError(t, err)
	for _, p := range w.Constellation() {
		assert.InDelta(t, math.Abs(real(p)), math.Abs(imag(p)), 1e-12)
	}
}

func TestGrayNeighboursDifferInOneBit(t *testing.T) {
	for _, w := range linearCatalog(t) {
		pts := w.Constellation()

		// Minimum distance between any two points.
		dmin := math.Inf(1)
		for i := range pts {
			for j := range i {
				dmin = min(dmin, cmplx.Abs(pts[i]-pts[j]))
			}
		}

		for i := range pts {
			for j := range i {
				if cmplx.Abs(pts[i]-pts[j]) < dmin*1.0001 {
					if n := bits.OnesCount(uint(i ^ j)); n != 1 {
						t.Fatalf("%s: neighbours %d and %d differ in %d bits", w.Name(), i, j, n)
					}
				}
			}
		}
	}
}

func bruteNearest(w *Waveform, z complex128) int {
	best, bestD := 0, math.Inf(1)
	for i, p := range w.Constellation() {
		d := cmplx.Abs(z - p)
		if !w.IsLinear() || w.Family() == ASK {
			d = math.Abs(real(z) - real(p))
		}
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func TestNearestSymbolMatchesExhaustiveSearch(t *testing.T) {
	var all []*Waveform
	for _, name := range Catalog() {
		w, err := ByName(name)
		require.NoError(t, err)
		all = append(all, w)
	}

	rapid.Check(t, func(t *rapid.T) {
		w := all[rapid.IntRange(0, len(all)-1).Draw(t, "waveform")]
		re := rapid.Float64Range(-2, 2).Draw(t, "re")
		im := rapid.Float64Range(-2, 2).Draw(t, "im")
		z := complex(re, im)

		got := w.NearestSymbol(z)
		want := bruteNearest(w, z)
		if got != want {
			// Points equidistant from z are both acceptable.
			pts := w.Constellation()
			assert.InDelta(t, cmplx.Abs(z-pts[want]), cmplx.Abs(z-pts[got]), 1e-9, "%s at %v", w.Name(), z)
		}
	})
}

func TestMapDemapRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := Catalog()
		w, err := ByName(names[rapid.IntRange(0, len(names)-1).Draw(t, "name")])
		require.NoError(t, err)

		nsym := rapid.IntRange(0, 40).Draw(t, "symbols")
		in := rapid.SliceOfN(rapid.ByteRange(0, 1), nsym*w.BitsPerSymbol(), nsym*w.BitsPerSymbol()).Draw(t, "bits")

		symbols, err := w.Map(in)
		require.NoError(t, err)
		require.Len(t, symbols, nsym)
		assert.Equal(t, in, w.Demap(symbols))
	})
}

func TestTheoreticalBER(t *testing.T) {
	bpsk, _ := ByName("bpsk")
	qpsk, _ := ByName("qpsk")
	qam16, _ := ByName("16qam")
	msk, _ := ByName("msk")

	assert.InDelta(t, 9.736e-6, bpsk.TheoreticalBER(9.6), 1e-8)
	assert.InDelta(t, bpsk.TheoreticalBER(7), qpsk.TheoreticalBER(7), 1e-12)
	assert.InDelta(t, 1.754e-3, qam16.TheoreticalBER(10), 1e-6)
	assert.InDelta(t, 0.5*math.Exp(-10.0/2), msk.TheoreticalBER(10), 1e-12)

	// Monotonic in Eb/N0.
	for _, w := range []*Waveform{bpsk, qam16, msk} {
		prev := 1.0
		for db := -2.0; db <= 14; db++ {
			ber := w.TheoreticalBER(db)
			assert.Less(t, ber, prev, "%s at %v dB", w.Name(), db)
			prev = ber
		}
	}
}

func TestNames(t *testing.T) {
	tests := map[string]string{
		"bpsk":   "BPSK",
		"QPSK":   "QPSK",
		"8psk":   "8PSK",
		"64qam":  "64QAM",
		"4ask":   "4ASK",
		"fsk":    "FSK",
		"4fsk":   "4FSK",
		"msk":    "MSK",
		"gmsk":   "GMSK",
		" gfsk ": "GFSK",
	}
	for name, want := range tests {
		w, err := ByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, w.Name())
	}

	assert.True(t, slices.IsSorted(Catalog()))
}

func TestDefaultFilters(t *testing.T) {
	bpsk, _ := ByName("bpsk")
	assert.Equal(t, design.TypeRRC, bpsk.Filter().Type)

	fsk, _ := ByName("fsk")
	assert.Equal(t, design.TypeNRZ, fsk.Filter().Type)
	assert.Equal(t, 1.0, fsk.Index())
	assert.Equal(t, 0.0, bpsk.Index())
}

func TestConstructorErrors(t *testing.T) {
	_, err := New(PSK, 3)
	assert.ErrorIs(t, err, ErrOrder)
	_, err = New(QAM, 8)
	assert.ErrorIs(t, err, ErrOrder)
	_, err = New(FSK, 2, WithIndex(0))
	assert.ErrorIs(t, err, ErrIndex)
	_, err = New(Family(9), 2)
	assert.ErrorIs(t, err, ErrUnknownFamily)
	_, err = ByName("wifi")
	assert.True(t, errors.Is(err, ErrUnknownName))
	_, err = ParseFamily("ofdm")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}
