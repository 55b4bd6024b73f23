package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/manifold/internal/phases"
	"github.com/agentmesh/manifold/internal/workspace"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <workspace-id>...",
	Short: "Freeze source workspace heads and the current epoch",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := make([]workspace.ID, 0, len(args))
		for _, a := range args {
			id, err := workspace.NewID(a)
			if err != nil {
				return withExit(1, fmt.Errorf("invalid workspace id %q: %w", a, err))
			}
			sources = append(sources, id)
		}

		state, err := phases.Prepare(newStore(), newBackend(), statePath(), sources, now())
		if err != nil {
			return withExit(1, err)
		}

		verbosef("prepare: froze epoch %s over %d source(s)\n", state.EpochBefore, len(state.Sources))
		fmt.Printf("prepared merge: epoch=%s sources=%d\n", state.EpochBefore, len(state.Sources))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}
