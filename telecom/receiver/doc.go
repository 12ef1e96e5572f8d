// Package receiver ties the preamble correlator and the demodulator into a
// streaming burst receiver.
//
// A Receiver is fed sample blocks of any length through Step. Every block is
// converted by the demodulator front end, appended to a bounded history and
// correlated against the header pattern. Detections that pass the SNR gate
// are queued and demodulated one at a time from the history:
//
//	Scanning -> Aligning -> Demodulating -> Scanning
//
// A burst that is not complete at the end of a block keeps the receiver in
// Demodulating until later blocks supply the missing samples.
package receiver
