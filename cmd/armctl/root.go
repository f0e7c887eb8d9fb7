package main

import (
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/config"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/logger"
	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/seriallink"
)

// Version is the armctl version.
const Version = "0.1.0"

// options are the persistent flags; defaults come from the same environment the
// controller reads.
type options struct {
	cfg     *config.Config
	port    string
	baud    int
	dbPath  string
	verbose bool

	// replaced in tests
	enumerate seriallink.Enumerator
	linkOpts  []seriallink.Option
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	o := &options{cfg: cfg, enumerate: serial.GetPortsList}
	return newRootCmdWith(o)
}

func newRootCmdWith(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "armctl",
		Short:         "Bench tool for the pick-and-place arm: serial link and pick journal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVar(&o.port, "port", "", "serial port (default: discover like the controller)")
	root.PersistentFlags().IntVar(&o.baud, "baud", o.cfg.SerialBaud, "serial baud rate")
	root.PersistentFlags().StringVar(&o.dbPath, "db", o.cfg.DatabasePath, "pick journal database")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newPortsCmd(o),
		newHomeCmd(o),
		newListenCmd(o),
		newPicksCmd(o),
	)
	return root
}

func (o *options) logger(cmd *cobra.Command) *logger.Logger {
	return logger.NewWriterLogger(cmd.ErrOrStderr(), o.verbose)
}

// serialOptions narrows discovery to --port when it is given.
func (o *options) serialOptions() seriallink.Options {
	opts := seriallink.Options{
		Candidates: o.cfg.SerialPorts,
		Patterns:   o.cfg.SerialPatterns,
		Baud:       o.baud,
		Settle:     o.cfg.SerialSettle,
	}
	if o.port != "" {
		opts.Candidates = []string{o.port}
		opts.Patterns = nil
	}
	return opts
}

func (o *options) connect(cmd *cobra.Command) (*seriallink.Link, error) {
	linkOpts := append([]seriallink.Option{seriallink.WithEnumerator(o.enumerate)}, o.linkOpts...)
	return seriallink.Connect(o.serialOptions(), o.logger(cmd), linkOpts...)
}
