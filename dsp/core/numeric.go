package core

import (
	"math"
	"math/cmplx"
)

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// IsFiniteComplex reports whether both parts of z are finite.
func IsFiniteComplex(z complex128) bool {
	return IsFinite(real(z)) && IsFinite(imag(z))
}

// DBPowerToLinear converts dB to linear power (10*log10 convention).
func DBPowerToLinear(db float64) float64 {
	return math.Pow(10, db/10)
}

// LinearPowerToDB converts linear power to dB (10*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearPowerToDB(power float64) float64 {
	if power < 0 {
		return math.NaN()
	}

	if power == 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(power)
}

// WrapPhase maps an angle in radians to (-pi, pi].
func WrapPhase(theta float64) float64 {
	if theta > -math.Pi && theta <= math.Pi {
		return theta
	}

	theta = math.Mod(theta+math.Pi, 2*math.Pi)
	if theta <= 0 {
		theta += 2 * math.Pi
	}

	return theta - math.Pi
}

// Sinc returns the normalized sinc sin(pi x)/(pi x).
func Sinc(x float64) float64 {
	if math.Abs(x) < 1e-9 {
		return 1
	}

	px := math.Pi * x

	return math.Sin(px) / px
}

// NextPowerOf2 returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// Rotor returns exp(j*theta).
func Rotor(theta float64) complex128 {
	return cmplx.Rect(1, theta)
}
