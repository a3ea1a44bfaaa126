package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blinter/internal/cliconfig"
	"blinter/internal/discover"
	"blinter/internal/lint"
	"blinter/internal/report"
)

// version is a plain constant; no build step injects build info
// through ldflags.
const version = "0.1.0"

var (
	flagSummary       bool
	flagMaxLineLength int
	flagNoRecursive   bool
	flagFollowCalls   bool
	flagNoConfig      bool
	flagCreateConfig  bool
	flagConfigPath    string
)

var rootCmd = &cobra.Command{
	Use:     "blinter <path>",
	Short:   "A static analyzer for Windows batch scripts",
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runRoot,
}

func init() {
	rootCmd.Flags().BoolVar(&flagSummary, "summary", false, "emit aggregate counts after per-file output")
	rootCmd.Flags().IntVar(&flagMaxLineLength, "max-line-length", 0, "override the configured max line length")
	rootCmd.Flags().BoolVar(&flagNoRecursive, "no-recursive", false, "limit directory walk to depth 1")
	rootCmd.Flags().BoolVar(&flagFollowCalls, "follow-calls", false, "follow CALL targets into other scripts")
	rootCmd.Flags().BoolVar(&flagNoConfig, "no-config", false, "ignore the on-disk config file")
	rootCmd.Flags().BoolVar(&flagCreateConfig, "create-config", false, "write a default config file and exit")
	rootCmd.Flags().StringVar(&flagConfigPath, "config", cliconfig.FileName, "path to the config file")
}

// run executes the CLI with args and returns the process exit code, per
// spec.md §6: 0 clean, 1 any Error-severity diagnostic, 2 on load failure.
func run(args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return 2
	}
	return exitCode
}

// exitCode is set by runRoot since cobra's RunE only reports whether an
// error occurred, not which of our three exit codes applies.
var exitCode int

func runRoot(cmd *cobra.Command, args []string) error {
	if flagCreateConfig {
		if err := cliconfig.Create(flagConfigPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 2
			return nil
		}
		exitCode = 0
		return nil
	}

	if len(args) == 0 {
		exitCode = 2
		return fmt.Errorf("blinter: a file or directory path is required")
	}
	target := args[0]

	opts, err := resolveOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 2
		return nil
	}

	info, err := os.Stat(target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 2
		return nil
	}

	var files []string
	if info.IsDir() {
		files, err = discover.CollectFiles(target, !flagNoRecursive)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 2
			return nil
		}
	} else {
		files = []string{target}
	}

	results := discover.Run(context.Background(), files, opts)
	report.WriteResults(os.Stdout, results)

	summary := report.Summarize(results)
	if flagSummary {
		report.WriteSummary(os.Stdout, summary)
	}

	exitCode = exitCodeFor(results, summary)
	return nil
}

func exitCodeFor(results []discover.FileResult, summary report.Summary) int {
	for _, r := range results {
		if r.Err != nil {
			return 2
		}
	}
	if summary.BySeverity[lint.SeverityError] > 0 {
		return 1
	}
	return 0
}

func resolveOptions() (lint.Options, error) {
	cfg := cliconfig.Default()
	if !flagNoConfig {
		loaded, err := cliconfig.Load(flagConfigPath)
		if err != nil {
			return lint.Options{}, err
		}
		cfg = loaded
	}
	if flagMaxLineLength > 0 {
		cfg.MaxLineLength = flagMaxLineLength
	}
	if flagFollowCalls {
		cfg.FollowCalls = true
	}
	return cliconfig.ToOptions(cfg)
}
