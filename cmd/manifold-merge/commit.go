package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/phases"
)

var commitBranch string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "CAS epoch/current and the mainline branch ref onto the candidate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := mergestate.Load(statePath())
		if err != nil {
			return withExit(1, err)
		}
		if state == nil {
			return withExit(1, fmt.Errorf("no merge in progress: run prepare, build, and validate first"))
		}

		branch := commitBranch
		if branch == "" {
			cfg, err := loadConfig()
			if err != nil {
				return withExit(1, err)
			}
			branch = cfg.Repo.Branch
		}

		if err := phases.Commit(newStore(), statePath(), state, branch, now()); err != nil {
			return withExit(1, err)
		}

		fmt.Printf("committed: epoch/current and branch/%s now at %s\n", branch, state.EpochAfter)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitBranch, "branch", "", "mainline branch to CAS (default: repo.branch from config)")
	rootCmd.AddCommand(commitCmd)
}
