package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KARTIK-KUMAR-SINGH/Smart-Farming-Robot/internal/service/seriallink"
)

func newPortsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports in the order the controller tries them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := seriallink.Candidates(o.serialOptions(), o.enumerate)
			if err != nil {
				o.logger(cmd).Warning("Port enumeration failed: %v", err)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No candidate ports.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newHomeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Send HOME to the arm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendOnce(cmd, o, seriallink.Home())
		},
	}
}

func sendOnce(cmd *cobra.Command, o *options, c seriallink.Command) error {
	link, err := o.connect(cmd)
	if err != nil {
		return err
	}
	defer link.Close()

	if err := link.Send(c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s", link.Port(), c)
	return nil
}

func newListenCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print telemetry lines from the arm until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := o.connect(cmd)
			if err != nil {
				return err
			}
			defer link.Close()

			o.logger(cmd).Info("Listening on %s", link.Port())
			return link.Listen(cmd.Context(), func(line string) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			})
		},
	}
}
