// Package demod turns the samples of one aligned burst into symbols and
// bits.
//
// Two architectures are available. The decision-directed chain runs the
// matched filter, carrier derotation, AGC and timing interpolation in that
// order and drives both loops from symbol decisions, using the known
// header symbols as decisions while the header is received. The
// non-decision-directed chain runs the timing loop on the matched filter
// output with a Gardner detector, then tracks the carrier with a
// modulation-power detector and normalises the envelope before slicing.
//
// FSK bursts go through a FrontEnd first: a channel low-pass and an FM
// discriminator turn them into a real frequency signal that the same
// chains process with carrier recovery off.
package demod
