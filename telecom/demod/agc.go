package demod

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-modem/dsp/core"
)

// decisionAGC scales samples so that on-symbol interpolants match their
// decisions in magnitude.
type decisionAGC struct {
	alpha   float64
	gain    float64
	skipped int
}

func newDecisionAGC(tc float64) decisionAGC {
	a := decisionAGC{gain: 1}
	if tc > 0 {
		a.alpha = 1 - math.Exp(-1/tc)
	}
	return a
}

// update moves the gain towards |ye|/|yi|, yi being already scaled by the
// current gain. Non-finite magnitudes leave the gain untouched and are
// counted.
func (a *decisionAGC) update(yi, ye complex128) {
	if a.alpha == 0 {
		return
	}
	mi, me := cmplx.Abs(yi), cmplx.Abs(ye)
	if !core.IsFinite(mi) || !core.IsFinite(me) {
		a.skipped++
		return
	}
	if mi == 0 || me == 0 {
		return
	}
	a.gain = (1-a.alpha)*a.gain + a.alpha*a.gain*me/mi
}

func (a *decisionAGC) reset() {
	a.gain = 1
	a.skipped = 0
}

// envelopeAGC normalises samples by a running mean of their magnitude.
type envelopeAGC struct {
	alpha   float64
	ref     float64
	env     float64
	skipped int
}

func newEnvelopeAGC(tc, ref float64) envelopeAGC {
	a := envelopeAGC{ref: ref, env: ref}
	if tc > 0 {
		a.alpha = 1 - math.Exp(-1/tc)
	}
	return a
}

func (a *envelopeAGC) apply(z complex128) complex128 {
	if a.alpha == 0 {
		return z
	}
	if m := cmplx.Abs(z); core.IsFinite(m) {
		a.env = (1-a.alpha)*a.env + a.alpha*m
	} else {
		a.skipped++
	}
	if a.env <= 0 {
		return z
	}
	return z * complex(a.ref/a.env, 0)
}

func (a *envelopeAGC) gain() float64 {
	if a.env <= 0 {
		return 1
	}
	return a.ref / a.env
}

func (a *envelopeAGC) reset() {
	a.env = a.ref
	a.skipped = 0
}
