// Package carrierrec tracks the residual carrier phase and frequency of
// symbol-rate samples.
//
// A Loop combines a phase error detector (PED) with a first- or
// second-order loop filter. The demodulator derotates each sample by the
// current phase estimate, feeds the PED output back through Update and
// reads the new estimate on the next sample.
package carrierrec
