package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/cwbudde/algo-modem/internal/config"
	"github.com/cwbudde/algo-modem/telecom/demod"
	"github.com/cwbudde/algo-modem/telecom/waveform"
)

func testGlobals(out io.Writer) *globals {
	return &globals{out: out, log: log.New(io.Discard), file: config.Default()}
}

func TestCatalogListsEveryWaveform(t *testing.T) {
	var buf bytes.Buffer
	if err := (catalogCmd{EbN0: 10}).Run(testGlobals(&buf)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got, want := len(lines), len(waveform.Catalog())+1; got != want {
		t.Fatalf("lines = %d, want %d", got, want)
	}
	if !strings.Contains(buf.String(), "gmsk") {
		t.Fatalf("catalog misses gmsk:\n%s", buf.String())
	}
}

func TestConfigDumpsYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := (configCmd{}).Run(testGlobals(&buf)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"receiver:", "simulation:", "waveform: bpsk"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("dump misses %q", want)
		}
	}
}

func TestSimulateFlagsOverrideFile(t *testing.T) {
	cmd := simulateCmd{
		Waveform:     "qpsk",
		Architecture: "ndd",
		EbN0:         []float64{3},
		Bursts:       2,
		PayloadBits:  64,
	}
	f, err := cmd.apply(config.Default())
	if err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if f.Receiver.Waveform != "qpsk" || f.Receiver.Architecture != demod.NonDecisionDirected {
		t.Fatalf("receiver = %+v", f.Receiver)
	}
	if f.Simulation.Bursts != 2 || len(f.Simulation.EbN0) != 1 || f.Receiver.PayloadBitLength != 64 {
		t.Fatalf("simulation = %+v", f.Simulation)
	}
	if f.Simulation.Seed != config.Default().Simulation.Seed {
		t.Fatalf("seed = %d, want default", f.Simulation.Seed)
	}

	if _, err := (&simulateCmd{Architecture: "x"}).apply(config.Default()); err == nil {
		t.Fatal("apply() accepted an unknown architecture")
	}
}

func TestSimulatePrintsTable(t *testing.T) {
	var buf bytes.Buffer
	g := testGlobals(&buf)
	cmd := simulateCmd{EbN0: []float64{12}, Bursts: 2}
	if err := cmd.Run(g); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "12.0") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestSimulateSelectsTransform(t *testing.T) {
	f, err := (&simulateCmd{Transform: "gonum", PRBSOrder: 9}).apply(config.Default())
	if err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if f.Transform != "gonum" || f.Simulation.PRBSOrder != 9 {
		t.Fatalf("file = %+v", f)
	}
	if _, err := (&simulateCmd{Transform: "fftw"}).apply(config.Default()); err == nil {
		t.Fatal("apply() accepted an unknown transform")
	}
}

func TestSimulatePRBSColumn(t *testing.T) {
	var buf bytes.Buffer
	cmd := simulateCmd{EbN0: []float64{12}, Bursts: 2, PRBSOrder: 9, Transform: "gonum"}
	if err := cmd.Run(testGlobals(&buf)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output:\n%s", buf.String())
	}
	if !strings.Contains(lines[0], "PRBS BER") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[1], "no lock") {
		t.Errorf("row = %q", lines[1])
	}
}
