package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/phases"
	"github.com/agentmesh/manifold/internal/workspace"
)

var cleanupKeepWorkspaces bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Tear down source workspaces and remove the merge-state document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := mergestate.Load(statePath())
		if err != nil {
			return withExit(1, err)
		}
		if state == nil {
			return withExit(1, fmt.Errorf("no merge in progress: nothing to clean up"))
		}

		backend := newBackend()
		var destroy phases.Destroyer
		if !cleanupKeepWorkspaces {
			destroy = func(ws workspace.ID) error {
				dir, err := backend.PathOf(ws)
				if err != nil {
					if errors.Is(err, workspace.ErrNotFound) {
						return nil // already torn down: idempotent
					}
					return err
				}
				return os.RemoveAll(dir)
			}
		}

		if err := phases.Cleanup(statePath(), state, destroy, now()); err != nil {
			return withExit(1, err)
		}

		fmt.Println("cleanup complete")
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupKeepWorkspaces, "keep-workspaces", false, "do not remove source workspace worktrees")
	rootCmd.AddCommand(cleanupCmd)
}
