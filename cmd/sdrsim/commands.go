package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/algo-modem/dsp/transform"
	"github.com/cwbudde/algo-modem/internal/config"
	"github.com/cwbudde/algo-modem/internal/metrics"
	"github.com/cwbudde/algo-modem/internal/sim"
	"github.com/cwbudde/algo-modem/telecom/demod"
	"github.com/cwbudde/algo-modem/telecom/receiver"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

type globals struct {
	out  io.Writer
	log  *log.Logger
	file config.File
}

type simulateCmd struct {
	Waveform       string    `help:"Payload waveform (see catalog)."`
	HeaderWaveform string    `help:"Header waveform; defaults to the payload waveform."`
	Architecture   string    `help:"dd or ndd."`
	EbN0           []float64 `name:"ebn0" help:"Eb/N0 points in dB." sep:","`
	Bursts         int       `help:"Bursts per point."`
	PayloadBits    int       `help:"Payload bits per burst."`
	Seed           uint64    `help:"Noise and payload seed."`
	PRBSOrder      int       `name:"prbs-order" help:"Fill payloads with a PRBS of this order and check it."`
	Transform      string    `help:"FFT backend: algo-fft or gonum."`
	MetricsAddr    string    `help:"Serve Prometheus metrics on this address while running."`
}

// apply overlays the flags that were set on the loaded configuration.
func (c *simulateCmd) apply(f config.File) (config.File, error) {
	if c.Waveform != "" {
		f.Receiver.Waveform = c.Waveform
	}
	if c.HeaderWaveform != "" {
		f.Receiver.HeaderWaveform = c.HeaderWaveform
	}
	if c.Architecture != "" {
		a, err := demod.ParseArchitecture(c.Architecture)
		if err != nil {
			return f, err
		}
		f.Receiver.Architecture = a
	}
	if len(c.EbN0) > 0 {
		f.Simulation.EbN0 = c.EbN0
	}
	if c.Bursts > 0 {
		f.Simulation.Bursts = c.Bursts
	}
	if c.PayloadBits > 0 {
		f.Receiver.PayloadBitLength = c.PayloadBits
	}
	if c.Seed > 0 {
		f.Simulation.Seed = c.Seed
	}
	if c.PRBSOrder > 0 {
		f.Simulation.PRBSOrder = c.PRBSOrder
	}
	if c.Transform != "" {
		f.Transform = c.Transform
	}
	if _, err := transform.ByName(f.Transform); err != nil {
		return f, err
	}
	return f, nil
}

func (c *simulateCmd) Run(g *globals) error {
	f, err := c.apply(g.file)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Per-frame logs only with --verbose.
	rxLog := g.log.WithPrefix("receiver")
	if g.log.GetLevel() > log.DebugLevel {
		rxLog.SetLevel(log.WarnLevel)
	}

	fft, err := transform.ByName(f.Transform)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []receiver.Option{
		receiver.WithLogger(rxLog),
		receiver.WithObserver(metrics.New(reg, "sdrsim")),
		receiver.WithTransform(fft),
	}
	if c.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.log.Error("metrics server", "err", err)
			}
		}()
		defer srv.Close()
		g.log.Info("serving metrics", "addr", c.MetricsAddr)
	}

	points, err := sim.Run(ctx, f.Receiver, f.Simulation, opts...)
	if len(points) > 0 {
		printPoints(g.out, points, f.Simulation.PRBSOrder > 0)
	}
	return err
}

func printPoints(w io.Writer, points []sim.Point, prbs bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := "Eb/N0 dB\tBER\ttheory\terrors\tbits\tframes\tmissed\test. Eb/N0\t"
	if prbs {
		header += "PRBS BER\t"
	}
	fmt.Fprintln(tw, header)
	for _, p := range points {
		fmt.Fprintf(tw, "%.1f\t%.2e\t%.2e\t%d\t%d\t%d\t%d\t%.1f ± %.1f\t",
			p.EbN0, p.BER, p.Theory, p.Errors, p.Bits, p.Frames, p.Missed,
			p.EstimatedEbN0, p.EstimatedEbN0StdDev)
		if prbs {
			if p.PRBS.Locked {
				fmt.Fprintf(tw, "%.2e\t", p.PRBS.BER)
			} else {
				fmt.Fprint(tw, "no lock\t")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

type configCmd struct{}

func (configCmd) Run(g *globals) error {
	if err := g.file.Receiver.Validate(); err != nil {
		g.log.Warn("configuration is not usable", "err", err)
	}
	return config.Dump(g.out, g.file)
}

type catalogCmd struct {
	EbN0 float64 `name:"ebn0" default:"10" help:"Eb/N0 in dB for the theoretical BER column."`
}

func (c catalogCmd) Run(g *globals) error {
	tw := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "name\twaveform\tbits/symbol\tBER @ %g dB\n", c.EbN0)
	for _, name := range waveform.Catalog() {
		w, err := waveform.ByName(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%v\t%d\t%.2e\n", name, w, w.BitsPerSymbol(), w.TheoreticalBER(c.EbN0))
	}
	return tw.Flush()
}
