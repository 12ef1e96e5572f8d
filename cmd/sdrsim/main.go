// Command sdrsim exercises the burst receiver over a simulated channel.
//
// Usage:
//
//	sdrsim [--file FILE] [--verbose] <command>
//
// Commands:
//
//	simulate   measure the bit error rate against theory
//	config     print the effective configuration as YAML
//	catalog    list the waveform catalog
//
// Examples:
//
//	sdrsim catalog
//	sdrsim simulate --waveform qpsk --ebn0 4,6,8
//	sdrsim --file link.hcl simulate --metrics-addr :9100
//	SDRSIM_RECEIVER__ARCHITECTURE=ndd sdrsim config
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/cwbudde/algo-modem/internal/config"
)

var cli struct {
	File    string `short:"f" help:"Configuration file (.yaml, .yml or .hcl)." type:"existingfile"`
	Verbose bool   `short:"v" help:"Log receiver events."`

	Simulate simulateCmd `cmd:"" help:"Measure the bit error rate over a simulated channel."`
	Config   configCmd   `cmd:"" help:"Print the effective configuration."`
	Catalog  catalogCmd  `cmd:"" help:"List the waveform catalog."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("sdrsim"),
		kong.Description("Burst receiver simulator."),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "sdrsim",
		ReportTimestamp: true,
	})
	if cli.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	file, err := config.Load(cli.File)
	if err != nil {
		logger.Fatal("configuration", "err", err)
	}

	err = ctx.Run(&globals{out: os.Stdout, log: logger, file: file})
	ctx.FatalIfErrorf(err)
}
