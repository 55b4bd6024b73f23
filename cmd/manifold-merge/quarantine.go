package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentmesh/manifold/internal/quarantine"
	"github.com/agentmesh/manifold/pkg/mergeresult"
)

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "Inspect and resolve quarantined merge candidates",
}

var quarantineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live quarantines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := quarantine.List(manifoldDir())
		if err != nil {
			return withExit(1, err)
		}
		if len(states) == 0 {
			fmt.Println("no live quarantines")
			return nil
		}
		for _, s := range states {
			passed := false
			if s.ValidationResult != nil {
				passed = s.ValidationResult.Passed
			}
			fmt.Printf("%s  candidate=%s  branch=%s  last_validation_passed=%t\n", s.MergeID, s.Candidate, s.Branch, passed)
		}
		return nil
	},
}

var quarantinePromoteCmd = &cobra.Command{
	Use:   "promote <merge-id>",
	Short: "Fix forward, re-validate, and promote a quarantined candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return withExit(1, err)
		}
		vcfg, err := cfg.ValidateConfig()
		if err != nil {
			return withExit(1, err)
		}

		outcome, err := quarantine.Promote(newStore(), validateRunner(), wsRoot(), manifoldDir(), args[0], vcfg)
		if err != nil {
			return withExit(1, err)
		}

		if !outcome.Committed {
			fmt.Printf("promotion failed: validation did not pass; quarantine %s left intact\n", args[0])
			if outcome.ValidationResult.Result != nil {
				for _, cr := range outcome.ValidationResult.Result.CommandResults {
					fmt.Printf("  %s: passed=%t\n", cr.Command, cr.Passed)
				}
			}
			return withExit(mergeresult.ExitValidationBlocked, fmt.Errorf("quarantine %s: validation still failing", args[0]))
		}

		fmt.Printf("promoted: epoch/current and branch now at %s\n", outcome.NewEpoch)
		return nil
	},
}

var quarantineAbandonCmd = &cobra.Command{
	Use:   "abandon <merge-id>",
	Short: "Discard a quarantined candidate without promoting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := quarantine.Abandon(wsRoot(), manifoldDir(), args[0]); err != nil {
			return withExit(1, err)
		}
		fmt.Printf("abandoned quarantine %s\n", args[0])
		return nil
	},
}

func init() {
	quarantineCmd.AddCommand(quarantineListCmd, quarantinePromoteCmd, quarantineAbandonCmd)
	rootCmd.AddCommand(quarantineCmd)
}
