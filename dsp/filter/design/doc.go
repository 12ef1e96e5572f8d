// Package design provides the FIR coefficient designers behind the shaping,
// matched and channel filters.
//
// A [Spec] names a filter type and its parameters; a [Designer] turns it
// into real coefficients for a given oversampling factor. [Default] serves
// Hamming low-pass designs through segdsp's firdes port and builds root
// raised cosine, raised cosine, Gaussian, NRZ and windowed-sinc designs
// locally. Pulses are centred on (taps-1)/2 so that their delay is an
// integer.
//
// Pulse shapes (RRC, RC, Gaussian, NRZ, none) are normalised to unit energy,
// so a shaping filter followed by its matched filter has a peak gain of one.
// Low-pass designs are normalised to unit DC gain.
//
// # Usage
//
//	h, err := design.Design(design.Spec{Type: design.TypeRRC, Rolloff: 0.35}, 4)
//	if err != nil {
//		return err
//	}
//	shaper := fir.NewUpsampler(h, 4)
package design
