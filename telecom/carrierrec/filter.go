package carrierrec

import (
	"math"

	"github.com/cwbudde/algo-modem/dsp/core"
)

// LoopFilter turns phase errors into a phase estimate.
type LoopFilter interface {
	// Step consumes one phase error and returns the new phase, wrapped to
	// (-pi, pi].
	Step(err float64) float64
	Phase() float64
	SetPhase(theta float64)
	Reset()
}

// SecondOrder is the proportional-integral loop filter
//
//	theta[k] = theta[k-1] + mu[k-1]
//	mu[k]    = mu[k-1] + gamma*((1+rho)*e[k] - e[k-1])
//
// for a PED of unit gain at the origin.
type SecondOrder struct {
	gamma, rho float64
	theta, mu  float64
	lastErr    float64
}

// NewSecondOrder returns a second-order filter with normalised loop
// bandwidth bl (times the symbol period) and damping eta.
func NewSecondOrder(bl, eta float64) *SecondOrder {
	const a = 1.0
	d := 1 + 4*eta*eta
	return &SecondOrder{
		gamma: 16 * eta * eta * bl / (a * d),
		rho:   4 * bl / d,
	}
}

// Coefficients returns gamma and rho.
func (f *SecondOrder) Coefficients() (gamma, rho float64) { return f.gamma, f.rho }

func (f *SecondOrder) Step(err float64) float64 {
	f.theta = core.WrapPhase(f.theta + f.mu)
	f.mu += f.gamma * ((1+f.rho)*err - f.lastErr)
	f.lastErr = err
	return f.theta
}

func (f *SecondOrder) Phase() float64 { return f.theta }

func (f *SecondOrder) SetPhase(theta float64) { f.theta = core.WrapPhase(theta) }

// Frequency returns the integrator state in radians per symbol.
func (f *SecondOrder) Frequency() float64 { return f.mu }

// SetFrequency seeds the integrator with a frequency offset in radians per
// symbol.
func (f *SecondOrder) SetFrequency(w float64) { f.mu = w }

func (f *SecondOrder) Reset() {
	f.theta, f.mu, f.lastErr = 0, 0, 0
}

// FirstOrder is the exponential loop filter theta += alpha*e with
// alpha = 1 - exp(-1/tau).
type FirstOrder struct {
	alpha float64
	theta float64
}

// NewFirstOrder returns a first-order filter with time constant tau
// symbols.
func NewFirstOrder(tau float64) *FirstOrder {
	return &FirstOrder{alpha: 1 - math.Exp(-1/tau)}
}

// Alpha returns the filter coefficient.
func (f *FirstOrder) Alpha() float64 { return f.alpha }

func (f *FirstOrder) Step(err float64) float64 {
	f.theta = core.WrapPhase(f.theta + f.alpha*err)
	return f.theta
}

func (f *FirstOrder) Phase() float64 { return f.theta }

func (f *FirstOrder) SetPhase(theta float64) { f.theta = core.WrapPhase(theta) }

func (f *FirstOrder) Reset() { f.theta = 0 }
