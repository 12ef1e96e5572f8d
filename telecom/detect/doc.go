// Package detect finds occurrences of a known preamble in a stream of
// complex samples.
//
// The stream is cut into fixed blocks and correlated against the preamble
// with a frequency-domain overlap-add. Each sample gets a normalised score
// in [0, 1]:
//
//	score[n] = |c[n]| / (||p|| * sqrt(E[n]))
//
// where c[n] is the correlation over the M samples ending at n and E[n]
// their energy. Local maxima above the threshold become [Detection] values
// carrying the burst position (with sub-sample refinement), complex gain and
// an SNR estimate.
package detect
