// Package metrics exports receiver events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cwbudde/algo-modem/telecom/detect"
	"github.com/cwbudde/algo-modem/telecom/receiver"
)

// Receiver collects receiver events. It implements receiver.Observer.
type Receiver struct {
	detections   *prometheus.CounterVec // by result: accepted, rejected
	frames       prometheus.Counter
	bits         prometheus.Counter
	headerErrors prometheus.Counter
	degenerate   prometheus.Counter
	score        prometheus.Histogram
	snr          prometheus.Histogram
	clockOffset  prometheus.Gauge
	frequency    prometheus.Gauge
}

var _ receiver.Observer = (*Receiver)(nil)

// New registers the receiver metrics with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Receiver {
	f := promauto.With(reg)
	return &Receiver{
		detections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Preamble detections by gate result.",
		}, []string{"result"}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Decoded bursts.",
		}),
		bits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bits_total",
			Help:      "Decoded payload bits.",
		}),
		headerErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "header_symbol_errors_total",
			Help:      "Header symbols decided differently from the known pattern.",
		}),
		degenerate: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_updates_total",
			Help:      "Loop updates skipped for non-finite errors.",
		}),
		score: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_score",
			Help:      "Normalised correlation score of detections.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		snr: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_snr_db",
			Help:      "Per-sample SNR estimated on the header.",
			Buckets:   prometheus.LinearBuckets(-10, 5, 10),
		}),
		clockOffset: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_offset_samples",
			Help:      "Timing correction accumulated over the last burst.",
		}),
		frequency: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "carrier_frequency_rad_per_symbol",
			Help:      "Carrier frequency estimate at the end of the last burst.",
		}),
	}
}

// Detection implements receiver.Observer.
func (m *Receiver) Detection(d detect.Detection, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	m.detections.WithLabelValues(result).Inc()
	m.score.Observe(d.Score)
	m.snr.Observe(d.SNR)
}

// Frame implements receiver.Observer.
func (m *Receiver) Frame(f receiver.Frame) {
	m.frames.Inc()
	m.bits.Add(float64(len(f.Bits)))
	m.headerErrors.Add(float64(f.Loops.HeaderErrors))
	m.degenerate.Add(float64(f.Loops.Degenerate))
	m.clockOffset.Set(f.Loops.ClockOffset)
	m.frequency.Set(f.Loops.Frequency)
}
