// Package main provides the entry point for the masquerade anonymizer.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TFMV/masquerade/version"
)

// errRunFailed signals a completed run in which some rule set failed.
var errRunFailed = errors.New("one or more rule sets failed")

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "masquerade",
		Short: "Masquerade replaces sensitive column values with synthetic ones",
		Long: `Masquerade anonymizes relational databases in place. Each configured
column is bound to a generator (patterns, dates, dictionary words, value
pools) and every row is rewritten page by page, keyed by primary key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "masquerade.yaml", "Path to the YAML configuration")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides logging.level")
	flags.StringVar(&opts.LogFile, "log-file", "", "Log file path; overrides logging.file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of masquerade",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newFunctionsCommand(opts))
	rootCmd.AddCommand(newGenerateCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))

	return rootCmd
}

// Main entry point for masquerade
func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
