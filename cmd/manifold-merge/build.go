package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/phases"
	"github.com/agentmesh/manifold/pkg/mergeresult"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Collect, partition, resolve, and build a candidate commit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := mergestate.Load(statePath())
		if err != nil {
			return withExit(1, err)
		}
		if state == nil {
			return withExit(1, fmt.Errorf("no merge in progress: run prepare first"))
		}

		cfg, err := loadConfig()
		if err != nil {
			return withExit(1, err)
		}

		out, err := phases.Build(newStore(), newBackend(), statePath(), state, cfg, mergedriversRunner(), now())
		if err != nil {
			return withExit(1, err)
		}

		verbosef("build: unique=%d shared=%d driven=%d resolved=%d conflicts=%d regenerated=%d\n",
			out.Counts.UniquePaths, out.Counts.SharedPaths, out.Counts.DriverDriven,
			out.Counts.Resolved, out.Counts.Conflicts, out.Counts.Regenerated)

		fmt.Printf("candidate: %s\n", out.Candidate)
		fmt.Printf("unique=%d shared=%d driver-driven=%d resolved=%d conflicts=%d regenerated=%d\n",
			out.Counts.UniquePaths, out.Counts.SharedPaths, out.Counts.DriverDriven,
			out.Counts.Resolved, out.Counts.Conflicts, out.Counts.Regenerated)

		for _, f := range out.DriverFailures {
			fmt.Printf("driver failure (%d path(s)): %v\n", len(f.Paths), f.Err)
		}
		for _, c := range out.Conflicts {
			fmt.Printf("conflict: %s (%s)\n", c.Path, c.Reason)
		}

		if len(out.Conflicts) > 0 {
			return withExit(mergeresult.ExitConflict, fmt.Errorf("build produced %d conflict(s)", len(out.Conflicts)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
