// Package phases wires the merge pipeline packages into the six-phase
// crash-recoverable state machine (spec.md §4.9-§4.13): each phase here is
// a thin orchestrator over objstore, workspace, patchset, partition,
// resolve, build, mergedrivers, validate, and mergestate.
package phases

import "errors"

// Sentinel errors for Prepare.
var (
	// ErrMergeAlreadyInProgress is returned when a non-terminal state
	// file already exists and the Commit/Cleanup CAS-already-succeeded
	// exception does not apply.
	ErrMergeAlreadyInProgress = errors.New("phases: a merge is already in progress")

	// ErrNoSources is returned when Prepare is called with an empty
	// source list.
	ErrNoSources = errors.New("phases: source list is empty")
)
