// Package spectrum provides spectrum-domain helpers: bin powers, windowed
// periodograms and interpolated peak-frequency search over complex signals.
//
// Transforms come from an injected [transform.Factory], so the package is
// independent of a specific FFT backend.
package spectrum
