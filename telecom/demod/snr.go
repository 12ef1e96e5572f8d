package demod

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// M2M4 estimates the symbol SNR, in dB, of constant-modulus symbols from
// their second and fourth moments, without decisions. ok is false when
// the moments admit no positive signal power, which happens at very low
// SNR or for symbols that are not constant modulus. Noiseless symbols
// give +Inf.
func M2M4(symbols []complex128) (snrDB float64, ok bool) {
	if len(symbols) == 0 {
		return 0, false
	}
	p2 := make([]float64, len(symbols))
	p4 := make([]float64, len(symbols))
	for i, z := range symbols {
		e := real(z)*real(z) + imag(z)*imag(z)
		p2[i] = e
		p4[i] = e * e
	}
	m2, m4 := stat.Mean(p2, nil), stat.Mean(p4, nil)
	s2 := 2*m2*m2 - m4
	if !(s2 > 0) {
		return 0, false
	}
	s := math.Sqrt(s2)
	n := m2 - s
	if n <= 0 {
		return math.Inf(1), true
	}
	return 10 * math.Log10(s/n), true
}
