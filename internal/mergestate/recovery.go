package mergestate

// RecoveryAction is the pure decision spec.md §4.8's recovery dispatch
// table makes from a persisted phase alone. Executing the action (e.g.
// actually re-running validation, or inspecting live ref values) is the
// caller's job — this package only names what to do.
type RecoveryAction int

const (
	// RecoveryNoFile means no state file was found: nothing to do.
	RecoveryNoFile RecoveryAction = iota
	// RecoveryAbortDeleteState deletes the state file: the phase it was
	// found in touched no refs, so there is nothing else to undo.
	RecoveryAbortDeleteState
	// RecoveryRerunValidate re-runs validation against epoch_candidate
	// with the same config; frozen inputs make this deterministic.
	RecoveryRerunValidate
	// RecoveryInspectCommitRefs requires checking whether epoch/current
	// already equals epoch_candidate: if so, the CAS succeeded before
	// the crash and recovery should proceed to Cleanup; otherwise abort
	// and delete the state file.
	RecoveryInspectCommitRefs
	// RecoveryRerunCleanup re-runs cleanup (idempotent), then deletes
	// the state file.
	RecoveryRerunCleanup
	// RecoveryDeleteState means the phase was already terminal: nothing
	// to do beyond deleting the state file.
	RecoveryDeleteState
)

// Decide implements the recovery dispatch table keyed on the phase read
// from disk (spec.md §4.8). Callers pass nil state (meaning the file was
// absent) as RecoveryNoFile without calling Decide at all; Decide only
// covers phase values actually found in a loaded state file.
func Decide(phase Phase) RecoveryAction {
	switch phase {
	case Prepare, Build:
		return RecoveryAbortDeleteState
	case Validate:
		return RecoveryRerunValidate
	case Commit:
		return RecoveryInspectCommitRefs
	case Cleanup:
		return RecoveryRerunCleanup
	case Complete, Aborted:
		return RecoveryDeleteState
	default:
		return RecoveryAbortDeleteState
	}
}
