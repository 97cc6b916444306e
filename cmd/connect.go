package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nolp/pkg/config"
	"nolp/pkg/ui"
)

// newConnectCmd builds the connect command
func newConnectCmd() *cobra.Command {
	connectCmd := &cobra.Command{
		Use:   "connect <port>",
		Short: "Connect to a serial port",
		Long: `Connect to a serial port and open the terminal right away.

Parameters not given on the command line use their defaults (9600 8-N-1,
ascii display). Invalid parameters are rejected before the UI starts.

Examples:
  # Connect to COM3 with default settings
  nolp connect COM3

  # Connect to /dev/ttyUSB0 at 115200 baud showing hex bytes
  nolp connect /dev/ttyUSB0 -b 115200 --mode hex`,
		Args:    cobra.ExactArgs(1),
		Aliases: []string{"open", "c"},
		RunE:    runConnect,
	}

	config.RegisterPortFlags(connectCmd.Flags(), false)
	return connectCmd
}

func runConnect(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadFromProcess(cmd.Flags())
	if err != nil {
		return err
	}
	params, err := config.PortParameters(cmd.Flags(), args[0])
	if err != nil {
		return err
	}

	if settings.Verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Connecting to %s\n", params)
	}
	if !isTerminal() {
		return ErrNotTerminal
	}
	return run(cmd, settings, ui.ToTerminal(params))
}
