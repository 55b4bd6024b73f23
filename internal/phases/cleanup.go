package phases

import (
	"fmt"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/workspace"
)

// Destroyer tears down one source workspace. Implementations must be
// idempotent (spec.md §4.13: "callbacks are expected to be idempotent").
type Destroyer func(ws workspace.ID) error

// Cleanup implements run_cleanup_phase (spec.md §4.13): an optional
// per-source destroy callback, then removal of the state file.
func Cleanup(statePath string, state *mergestate.State, destroy Destroyer, now int64) error {
	if state.Phase != mergestate.Cleanup {
		return fmt.Errorf("phases: cleanup precondition failed: phase is %s, want %s", state.Phase, mergestate.Cleanup)
	}

	if destroy != nil {
		for _, ws := range state.Sources {
			if err := destroy(ws); err != nil {
				return fmt.Errorf("phases: destroy workspace %s: %w", ws, err)
			}
		}
	}

	if err := mergestate.Delete(statePath); err != nil {
		return err
	}

	return state.Advance(mergestate.Complete, now)
}
