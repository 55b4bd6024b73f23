package phases

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/agentmesh/manifold/internal/atomicfile"
	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/quarantine"
	"github.com/agentmesh/manifold/internal/validate"
)

// Validate implements run_validate_phase (spec.md §4.11): runs the
// configured command pipeline against the candidate and persists the
// outcome onto the state file plus a best-effort artifact. When the
// outcome requests quarantine (spec.md §4.14), it also materializes the
// quarantine worktree and state before returning.
func Validate(store objstore.Store, runner validate.Runner, statePath, manifoldDir, wsRoot, branch string, state *mergestate.State, cfg validate.Config, now int64) (validate.Result, error) {
	if state.Phase != mergestate.Build {
		return validate.Result{}, fmt.Errorf("phases: validate precondition failed: phase is %s, want %s", state.Phase, mergestate.Build)
	}

	if err := state.Advance(mergestate.Validate, now); err != nil {
		return validate.Result{}, err
	}
	if err := state.Save(statePath); err != nil {
		return validate.Result{}, err
	}

	result, err := validate.Run(store, runner, state.EpochCandidate, cfg)
	if err != nil {
		return validate.Result{}, err
	}

	state.ValidationResult = result.Result
	state.UpdatedAt = now
	if err := state.Save(statePath); err != nil {
		return validate.Result{}, err
	}

	writeValidationArtifact(manifoldDir, oid.ShortMergeID(state.EpochCandidate), result.Result)

	if result.Outcome == validate.OutcomeQuarantine || result.Outcome == validate.BlockedAndQuarantine {
		if _, err := quarantine.Create(store, wsRoot, manifoldDir, state.EpochCandidate, state.EpochBefore, state.Sources, branch, result.Result, now); err != nil {
			return result, fmt.Errorf("phases: create quarantine: %w", err)
		}
	}

	return result, nil
}

// writeValidationArtifact writes artifacts/merge/<merge_id>/validation.json
// best-effort (spec.md §4.11 step 5): a failure here is not surfaced,
// matching "best-effort write".
func writeValidationArtifact(manifoldDir, mergeID string, vr *mergestate.ValidationResult) {
	if vr == nil {
		return
	}
	data, err := json.MarshalIndent(vr, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(manifoldDir, "artifacts", "merge", mergeID, "validation.json")
	_ = atomicfile.Write(path, data)
}
