// Package waveform describes digital modulations: the mapping between bit
// groups and constellation points, the shaping filter and, for FSK, the
// modulation index.
//
// A [Waveform] is immutable once built and safe to share between an
// emitter, a receiver and a correlator. Labels are Gray coded, bits are
// packed least significant bit first and linear constellations have unit
// average symbol energy.
package waveform
