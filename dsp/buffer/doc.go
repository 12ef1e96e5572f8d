// Package buffer provides the complex sample stores used by the streaming
// receiver: a fixed-capacity Ring addressed by absolute sample index and a
// growable Timeline that keeps a trimmed window of the stream.
//
// Both types count samples from the start of the stream, so callers can keep
// int64 sample positions (as reported by a detector) and look samples up long
// after the block that carried them has been consumed.
package buffer
