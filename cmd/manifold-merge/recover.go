package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/phases"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Inspect a crashed merge-state document and say what to do next",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, err := phases.Recover(statePath())
		if err != nil {
			return withExit(1, err)
		}

		switch outcome.Action {
		case mergestate.RecoveryNoFile:
			fmt.Println("no merge in progress")
			return nil
		case mergestate.RecoveryAbortDeleteState:
			fmt.Printf("phase %s touched no refs: deleting state file\n", outcome.State.Phase)
			return mergestate.Delete(statePath())
		case mergestate.RecoveryRerunValidate:
			fmt.Println("phase validate: re-run `manifold-merge validate`")
			return nil
		case mergestate.RecoveryInspectCommitRefs:
			aligned, err := phases.InspectCommitRefs(newStore(), outcome.State)
			if err != nil {
				return withExit(1, err)
			}
			if aligned {
				fmt.Println("epoch/current already advanced: run `manifold-merge cleanup`")
			} else {
				fmt.Println("epoch/current did not advance: aborting, deleting state file")
				return mergestate.Delete(statePath())
			}
			return nil
		case mergestate.RecoveryRerunCleanup:
			fmt.Println("phase cleanup: re-run `manifold-merge cleanup` (idempotent)")
			return nil
		case mergestate.RecoveryDeleteState:
			fmt.Printf("phase %s already terminal: deleting state file\n", outcome.State.Phase)
			return mergestate.Delete(statePath())
		default:
			return withExit(1, fmt.Errorf("recover: unknown recovery action %v", outcome.Action))
		}
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}
