// Package core holds the small numeric and buffer helpers shared by the DSP
// and telecom packages: clamping, dB conversions, phase wrapping, complex
// buffer management and the sample/symbol timing description of a link.
//
// # Usage
//
//	t, err := core.NewTiming(core.WithSampleRate(400e3), core.WithSymbolRate(100e3))
//	if err != nil {
//		return err
//	}
//	osf := t.OSF() // 4
package core
