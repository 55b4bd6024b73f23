package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	repoRoot   string
	output     string
	verbose    bool
)

// rootCmd is manifold-merge's entry point: a thin cobra tree over the
// core phase operations of spec.md §6. No merge logic lives here.
var rootCmd = &cobra.Command{
	Use:   "manifold-merge",
	Short: "Deterministic N-way merge engine",
	Long: `manifold-merge drives the crash-recoverable merge pipeline over a
content-addressed object store: prepare, build, validate, commit, cleanup,
and the quarantine fix-forward path.

Typical flow:
  manifold-merge prepare <workspace-id>...
  manifold-merge build
  manifold-merge validate
  manifold-merge commit --branch main
  manifold-merge cleanup

If the process is interrupted mid-merge:
  manifold-merge recover`,
	SilenceUsage: true,
}

// Execute adds all child commands and runs the root command, exiting with
// the process's final exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeForErr(err))
	}
}

func init() {
	cwd, _ := os.Getwd()
	rootCmd.PersistentFlags().StringVar(&repoRoot, "repo-root", cwd, "repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format (not read: every command prints text)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose phase logging")
}

func manifoldDir() string { return filepath.Join(repoRoot, ".manifold") }
func wsRoot() string      { return filepath.Join(repoRoot, "ws") }
func statePath() string   { return filepath.Join(manifoldDir(), "merge-state.json") }
func configPath() string  { return filepath.Join(manifoldDir(), "config.toml") }

// verbosef prints a phase log line only when --verbose is set, matching
// the teacher's VerbosePrintf.
func verbosef(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
