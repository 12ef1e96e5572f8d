// Package transform defines the spectral transform service used by the
// overlap-add correlator and by frequency-domain filtering.
//
// A Transform is a fixed-size complex DFT. Forward is unnormalised, Inverse
// is normalised by 1/N so that Inverse(Forward(x)) == x. Two backends are
// provided: NewFFT (algo-fft plans, the default) and NewGonum (gonum
// dsp/fourier). Tests may inject any implementation through a Factory.
//
// # Usage
//
//	t, err := transform.Default(1024)
//	if err != nil {
//		return err
//	}
//	spec := make([]complex128, t.Len())
//	_ = t.Forward(spec, samples)
package transform
