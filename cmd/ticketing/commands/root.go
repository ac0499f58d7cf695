package commands

import (
	"fmt"

	"ticket-marketplace/internal/printer"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ticketing",
	Short: "Ticket marketplace server and tools",
	Long: `Ticketing runs the ticket marketplace API (event catalog, ticket
selection, session carts, checkout and door validation) and ships the
maintenance commands that go with it.

Configuration is read from the environment, .env.local and .env.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version reported by --version
func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
}

func newPrinter(cmd *cobra.Command) *printer.Printer {
	return printer.NewWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr())
}
