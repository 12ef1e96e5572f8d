// Package bits holds bit-level helpers for the modem: maximum-length
// sequence generation, PRBS checking and packing of bits into symbol
// indices.
//
// Bit streams are []byte slices holding one bit (0 or 1) per element.
package bits
