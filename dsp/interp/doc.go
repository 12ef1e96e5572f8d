// Package interp provides the fractional-delay kernels used by clock
// recovery.
//
// Available kernels, from cheapest to highest quality:
//
//   - [Linear]: 2-point linear interpolation
//   - [Cubic]:  4-point cubic Hermite (Catmull-Rom), the default
//   - [Sinc]:   K-point windowed sinc (K even, Hann window by default)
//
// Every kernel reads a window of Taps() consecutive samples, oldest first,
// and returns the value mu in [0,1] past window[Taps()/2-1]. A new sample
// therefore becomes usable Taps()/2 samples after it arrives.
package interp
