// Package fir provides direct-form FIR runtimes for complex baseband
// samples with real coefficients.
//
// A [Filter] applies pre-computed coefficients to an input stream using a
// circular-buffer delay line; an [Upsampler] is its polyphase counterpart
// that turns one symbol into Factor() output samples, which is how shaping
// filters are run on the transmit side.
//
// This package provides the processing runtime only. Coefficient design
// lives in dsp/filter/design.
package fir
