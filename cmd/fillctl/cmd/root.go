package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var verbosity int

var rootCmd = &cobra.Command{
	Use:   "fillctl",
	Short: "Crossword grid-fill CLI",
	Long: `fillctl drives the ingrid-core constraint solver from the command line.

It fills a grid template with words from a Peter Broda-format wordlist using
arc-consistency propagation and weighted backtracking search, and can also
exercise the same solver as a long-running server (serve) or inspect past
runs (history).`,
	Version: version,
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "verbosity level (0=errors only, 1=info, 2=debug)")
}

func logInfo(format string, args ...interface{}) {
	if verbosity > 0 {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
