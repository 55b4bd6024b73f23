package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/phases"
	"github.com/agentmesh/manifold/internal/validate"
	"github.com/agentmesh/manifold/pkg/mergeresult"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the configured validation commands against the candidate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := mergestate.Load(statePath())
		if err != nil {
			return withExit(1, err)
		}
		if state == nil {
			return withExit(1, fmt.Errorf("no merge in progress: run prepare and build first"))
		}

		cfg, err := loadConfig()
		if err != nil {
			return withExit(1, err)
		}
		vcfg, err := cfg.ValidateConfig()
		if err != nil {
			return withExit(1, err)
		}

		branch := cfg.Repo.Branch

		result, err := phases.Validate(newStore(), validateRunner(), statePath(), manifoldDir(), wsRoot(), branch, state, vcfg, now())
		if err != nil {
			return withExit(1, err)
		}

		fmt.Printf("outcome: %s\n", result.Outcome)
		if result.Result != nil {
			fmt.Printf("passed=%t duration_ms=%d\n", result.Result.Passed, result.Result.DurationMs)
			for _, cr := range result.Result.CommandResults {
				fmt.Printf("  %s: passed=%t\n", cr.Command, cr.Passed)
			}
		}

		if result.Outcome == validate.OutcomeQuarantine || result.Outcome == validate.BlockedAndQuarantine {
			fmt.Printf("quarantined: merge %s\n", oid.ShortMergeID(state.EpochCandidate))
		}

		switch result.Outcome {
		case validate.Blocked, validate.BlockedAndQuarantine:
			return withExit(mergeresult.ExitValidationBlocked, fmt.Errorf("validation blocked the merge"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
