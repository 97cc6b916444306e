package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nolp/pkg/app"
	"nolp/pkg/config"
	"nolp/pkg/ui"
)

// ErrNotTerminal is returned when the UI is started without a terminal
var ErrNotTerminal = errors.New("nolp needs an interactive terminal on stdin")

var (
	// isTerminal reports whether stdin is attached to a terminal
	isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

	// run starts the UI; replaced in tests
	run = func(cmd *cobra.Command, settings config.Settings, initial ui.State) error {
		return app.NewRunner(settings).WithOutput(cmd.OutOrStdout()).Run(cmd.Context(), initial)
	}
)

// newRootCmd builds the command tree. Every call returns fresh commands so
// parsed flags and arguments never leak from one execution into the next.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nolp",
		Short: "An interactive serial port terminal",
		Long: `nolp discovers serial devices, configures a connection and exchanges
raw bytes with the device while showing them as an encoded live log.

Without a subcommand it starts on the configuration menu. Port flags given
on the command line pre-fill that menu.`,
		Version:           "1.0.0",
		RunE:              runRoot,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	config.RegisterFlags(rootCmd.PersistentFlags())
	config.RegisterPortFlags(rootCmd.Flags(), true)

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newConnectCmd())
	return rootCmd
}

// Execute builds the command tree and runs it against os.Args
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadFromProcess(cmd.Flags())
	if err != nil {
		return err
	}
	if !isTerminal() {
		return ErrNotTerminal
	}
	return run(cmd, settings, ui.ToMenu(nil))
}
