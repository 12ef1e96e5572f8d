package receiver

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-modem/dsp/core"
	"github.com/cwbudde/algo-modem/dsp/filter/design"
	"github.com/cwbudde/algo-modem/dsp/interp"
	"github.com/cwbudde/algo-modem/telecom/bits"
	"github.com/cwbudde/algo-modem/telecom/carrierrec"
	"github.com/cwbudde/algo-modem/telecom/clockrec"
	"github.com/cwbudde/algo-modem/telecom/demod"
	"github.com/cwbudde/algo-modem/telecom/frame"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

// Configuration errors. Configure wraps them in a *ConfigError.
var (
	ErrOversampling  = errors.New("receiver: oversampling factor must be >= 2")
	ErrSampleRate    = errors.New("receiver: invalid sample or symbol rate")
	ErrPayloadLength = errors.New("receiver: invalid payload length")
	ErrPreamble      = errors.New("receiver: invalid preamble")
	ErrThreshold     = errors.New("receiver: invalid detection threshold")
	ErrWaveform      = errors.New("receiver: invalid waveform")
	ErrLoop          = errors.New("receiver: invalid loop settings")
	ErrBlockSize     = errors.New("receiver: invalid block size")
)

// ConfigError reports a rejected configuration.
type ConfigError struct {
	// Field names the offending setting.
	Field string
	// Kind is one of the receiver sentinel errors.
	Kind error
	// Err is the underlying cause, if any.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Field)
	}
	return fmt.Sprintf("%v (%s): %v", e.Kind, e.Field, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func configError(field string, kind, err error) *ConfigError {
	return &ConfigError{Field: field, Kind: kind, Err: err}
}

// ClockRecovery configures the timing loop.
type ClockRecovery struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
	// TimeConstant is the loop time constant in symbols.
	TimeConstant float64     `koanf:"time_constant" yaml:"time_constant"`
	Interpolator interp.Kind `koanf:"interpolator" yaml:"interpolator"`
}

// CarrierRecovery configures the carrier loop.
type CarrierRecovery struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
	// Order is 1 or 2; 0 selects 2.
	Order int `koanf:"order" yaml:"order,omitempty"`
	// LoopBandwidth is the normalised loop bandwidth B_L*T.
	LoopBandwidth float64 `koanf:"loop_bandwidth" yaml:"loop_bandwidth"`
	Damping       float64 `koanf:"damping" yaml:"damping"`
	// TimeConstant is the first-order time constant in symbols.
	TimeConstant float64             `koanf:"time_constant" yaml:"time_constant,omitempty"`
	Detector     carrierrec.Detector `koanf:"detector" yaml:"detector"`
	// FrequencySeed estimates the frequency offset on the header and
	// starts the loop from it.
	FrequencySeed bool `koanf:"frequency_seed" yaml:"frequency_seed"`
}

// Config describes the link a Receiver listens to.
type Config struct {
	// PreambleBits is the header bit pattern. When empty an MLS of
	// PreambleOrder is used.
	PreambleBits  []byte `koanf:"preamble_bits" yaml:"preamble_bits,omitempty"`
	PreambleOrder int    `koanf:"preamble_order" yaml:"preamble_order,omitempty"`
	// PayloadBitLength is the number of payload bits per burst.
	PayloadBitLength   int     `koanf:"payload_bit_length" yaml:"payload_bit_length"`
	OversamplingFactor int     `koanf:"oversampling_factor" yaml:"oversampling_factor"`
	SymbolRate         float64 `koanf:"symbol_rate" yaml:"symbol_rate"`
	// SampleRate defaults to SymbolRate*OversamplingFactor and must equal
	// it when set.
	SampleRate            float64 `koanf:"sample_rate" yaml:"sample_rate,omitempty"`
	IntermediateFrequency float64 `koanf:"intermediate_frequency" yaml:"intermediate_frequency,omitempty"`
	// DetectionThreshold is the minimum correlation score, in (0, 1].
	DetectionThreshold float64 `koanf:"detection_threshold" yaml:"detection_threshold"`
	// MinimumSNR drops detections whose per-sample SNR (dB) is lower.
	MinimumSNR   float64            `koanf:"minimum_snr" yaml:"minimum_snr"`
	Architecture demod.Architecture `koanf:"architecture" yaml:"architecture"`

	ClockRecovery   ClockRecovery   `koanf:"clock_recovery" yaml:"clock_recovery"`
	CarrierRecovery CarrierRecovery `koanf:"carrier_recovery" yaml:"carrier_recovery"`
	// AGCTimeConstant is in symbols; 0 disables the AGC.
	AGCTimeConstant float64 `koanf:"agc_time_constant" yaml:"agc_time_constant"`

	// Waveform and HeaderWaveform are catalog names. HeaderWaveform
	// defaults to Waveform.
	Waveform       string `koanf:"waveform" yaml:"waveform"`
	HeaderWaveform string `koanf:"header_waveform" yaml:"header_waveform,omitempty"`
	// Filter replaces the catalog shaping filter of both waveforms.
	Filter *design.Spec `koanf:"filter" yaml:"filter,omitempty"`

	// BlockSize is the correlator block; 0 selects the next power of two
	// of the pattern length.
	BlockSize int `koanf:"block_size" yaml:"block_size,omitempty"`
	// KeepSamples attaches the front-end samples of each burst to its
	// Frame.
	KeepSamples bool `koanf:"keep_samples" yaml:"keep_samples,omitempty"`
}

// DefaultConfig returns a BPSK link at 100 kBd and 4 samples per symbol with
// a 127-bit MLS header and 256 payload bits.
func DefaultConfig() Config {
	return Config{
		PreambleOrder:      7,
		PayloadBitLength:   256,
		OversamplingFactor: 4,
		SymbolRate:         100e3,
		DetectionThreshold: 0.5,
		MinimumSNR:         -5,
		Architecture:       demod.DecisionDirected,
		ClockRecovery: ClockRecovery{
			Enabled:      true,
			TimeConstant: 20,
			Interpolator: interp.KindCubic,
		},
		CarrierRecovery: CarrierRecovery{
			Enabled:       true,
			LoopBandwidth: 0.01,
			Damping:       math.Sqrt2 / 2,
			TimeConstant:  20,
		},
		AGCTimeConstant: 50,
		Waveform:        "bpsk",
	}
}

// compiled holds everything built from a valid Config.
type compiled struct {
	cfg     Config
	format  *frame.Format
	pattern []complex128
	demod   *demod.Demodulator
}

// Validate checks cfg without building the receiver.
func (cfg Config) Validate() error {
	_, err := compile(cfg)
	return err
}

func compile(cfg Config) (*compiled, error) {
	osf := cfg.OversamplingFactor
	if osf < 2 {
		return nil, configError("oversampling_factor", ErrOversampling, fmt.Errorf("got %d", osf))
	}
	if !(cfg.SymbolRate > 0) || math.IsInf(cfg.SymbolRate, 0) {
		return nil, configError("symbol_rate", ErrSampleRate, fmt.Errorf("got %v", cfg.SymbolRate))
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = cfg.SymbolRate * float64(osf)
	}
	timing, err := core.NewTiming(
		core.WithSampleRate(cfg.SampleRate),
		core.WithSymbolRate(cfg.SymbolRate),
		core.WithIntermediateFrequency(cfg.IntermediateFrequency),
	)
	if err != nil {
		return nil, configError("sample_rate", ErrSampleRate, err)
	}
	if timing.OSF() != osf {
		return nil, configError("sample_rate", ErrSampleRate,
			fmt.Errorf("%v/%v is not %d", cfg.SampleRate, cfg.SymbolRate, osf))
	}
	if math.Abs(timing.NormalizedIF()) >= 0.5 {
		return nil, configError("intermediate_frequency", ErrSampleRate,
			fmt.Errorf("%v Hz beyond Nyquist", cfg.IntermediateFrequency))
	}
	if cfg.PayloadBitLength < 0 {
		return nil, configError("payload_bit_length", ErrPayloadLength, fmt.Errorf("got %d", cfg.PayloadBitLength))
	}
	if !(cfg.DetectionThreshold > 0 && cfg.DetectionThreshold <= 1) {
		return nil, configError("detection_threshold", ErrThreshold, fmt.Errorf("got %v", cfg.DetectionThreshold))
	}
	if math.IsNaN(cfg.MinimumSNR) {
		return nil, configError("minimum_snr", ErrThreshold, errors.New("NaN"))
	}
	if cfg.BlockSize < 0 {
		return nil, configError("block_size", ErrBlockSize, fmt.Errorf("got %d", cfg.BlockSize))
	}

	header, err := preamble(cfg)
	if err != nil {
		return nil, err
	}

	var opts []waveform.Option
	if cfg.Filter != nil {
		opts = append(opts, waveform.WithFilter(*cfg.Filter))
	}
	wf, err := waveform.ByName(cfg.Waveform, opts...)
	if err != nil {
		return nil, configError("waveform", ErrWaveform, err)
	}
	headerWf := wf
	if cfg.HeaderWaveform != "" {
		headerWf, err = waveform.ByName(cfg.HeaderWaveform, opts...)
		if err != nil {
			return nil, configError("header_waveform", ErrWaveform, err)
		}
	}

	f, err := frame.New(header, cfg.PayloadBitLength, wf, headerWf, timing)
	switch {
	case errors.Is(err, frame.ErrPayloadLength):
		return nil, configError("payload_bit_length", ErrPayloadLength, err)
	case err != nil:
		return nil, configError("header_waveform", ErrWaveform, err)
	}

	d, err := demod.New(demod.Config{
		Format:       f,
		Architecture: cfg.Architecture,
		Clock: clockrec.Config{
			TimeConstant: cfg.ClockRecovery.TimeConstant,
			Interpolator: cfg.ClockRecovery.Interpolator,
			Enabled:      cfg.ClockRecovery.Enabled,
		},
		Carrier: carrierrec.Config{
			Enabled:       cfg.CarrierRecovery.Enabled,
			Order:         cfg.CarrierRecovery.Order,
			LoopBandwidth: cfg.CarrierRecovery.LoopBandwidth,
			Damping:       cfg.CarrierRecovery.Damping,
			TimeConstant:  cfg.CarrierRecovery.TimeConstant,
			Detector:      cfg.CarrierRecovery.Detector,
		},
		AGCTimeConstant: cfg.AGCTimeConstant,
	})
	switch {
	case errors.Is(err, demod.ErrArchitecture):
		return nil, configError("architecture", ErrLoop, err)
	case errors.Is(err, clockrec.ErrOversampling), errors.Is(err, clockrec.ErrTimeConstant):
		return nil, configError("clock_recovery", ErrLoop, err)
	case err != nil:
		return nil, configError("carrier_recovery", ErrLoop, err)
	}

	pattern, err := demod.Pattern(f, nil)
	if err != nil {
		return nil, configError("filter", ErrWaveform, err)
	}

	return &compiled{cfg: cfg, format: f, pattern: pattern, demod: d}, nil
}

func preamble(cfg Config) ([]byte, error) {
	if len(cfg.PreambleBits) == 0 {
		if cfg.PreambleOrder == 0 {
			return nil, configError("preamble_bits", ErrPreamble, errors.New("no header bits"))
		}
		b, err := bits.MLS(cfg.PreambleOrder)
		if err != nil {
			return nil, configError("preamble_order", ErrPreamble, err)
		}
		return b, nil
	}
	for i, b := range cfg.PreambleBits {
		if b > 1 {
			return nil, configError("preamble_bits", ErrPreamble, fmt.Errorf("bit %d is %d", i, b))
		}
	}
	return append([]byte(nil), cfg.PreambleBits...), nil
}
