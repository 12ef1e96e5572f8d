package testutil

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Tone generates a complex exponential at freq cycles per sample.
func Tone(freq, amplitude float64, length int) []complex128 {
	out := make([]complex128, length)
	step := 2 * math.Pi * freq
	for i := range out {
		s, c := math.Sincos(step * float64(i))
		out[i] = complex(amplitude*c, amplitude*s)
	}
	return out
}

// ComplexNoise generates circular Gaussian noise of total power variance
// with a fixed seed for reproducibility.
func ComplexNoise(seed uint64, variance float64, length int) []complex128 {
	n := distuv.Normal{Sigma: math.Sqrt(variance / 2), Src: rand.NewPCG(seed, 1)}
	out := make([]complex128, length)
	for i := range out {
		out[i] = complex(n.Rand(), n.Rand())
	}
	return out
}

// RandomBits returns length bits, one per byte, from a fixed seed.
func RandomBits(seed uint64, length int) []byte {
	rng := rand.New(rand.NewPCG(seed, 2))
	out := make([]byte, length)
	for i := range out {
		out[i] = byte(rng.IntN(2))
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []complex128 {
	out := make([]complex128, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value complex128, length int) []complex128 {
	out := make([]complex128, length)
	for i := range out {
		out[i] = value
	}
	return out
}
