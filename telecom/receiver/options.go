package receiver

import (
	"github.com/charmbracelet/log"

	"github.com/cwbudde/algo-modem/dsp/transform"
	"github.com/cwbudde/algo-modem/telecom/detect"
)

// Observer is notified of receiver events. Calls happen synchronously from
// Step.
type Observer interface {
	// Detection reports a correlator detection; accepted is false when the
	// SNR gate or the history bound dropped it.
	Detection(d detect.Detection, accepted bool)
	// Frame reports a decoded burst.
	Frame(f Frame)
}

// Option customises a Receiver.
type Option func(*Receiver)

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Receiver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(r *Receiver) { r.observers = append(r.observers, o) }
}

// WithTransform selects the FFT backend of the correlator and the frequency
// estimator.
func WithTransform(f transform.Factory) Option {
	return func(r *Receiver) { r.transform = f }
}

// WithCorrelationObserver streams the correlator output: for every sample,
// its normalised score and the raw correlation magnitude. start counts
// samples from the beginning of the stream.
func WithCorrelationObserver(o detect.Observer) Option {
	return func(r *Receiver) { r.correlation = o }
}
