package phases

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/agentmesh/manifold/internal/build"
	"github.com/agentmesh/manifold/internal/conflict"
	"github.com/agentmesh/manifold/internal/mergeconfig"
	"github.com/agentmesh/manifold/internal/mergedrivers"
	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/partition"
	"github.com/agentmesh/manifold/internal/patchset"
	"github.com/agentmesh/manifold/internal/resolve"
	"github.com/agentmesh/manifold/internal/workspace"
)

// Counts summarizes one Build phase run, for reporting back to the caller
// (spec.md §4.10 step 10, "return {candidate, conflicts, counts}").
type Counts struct {
	UniquePaths    int
	SharedPaths    int
	DriverDriven   int
	Resolved       int
	Conflicts      int
	Regenerated    int
}

// DriverFailure records a regenerate driver whose command or read-back
// failed; spec.md treats this as a validation-style failure, not a phase
// crash, so Build keeps going and reports it alongside Counts.
type DriverFailure struct {
	Paths []string
	Err   error
}

// BuildOutput is BuildPhaseOutput (spec.md §3).
type BuildOutput struct {
	Candidate      oid.CommitID
	Conflicts      []conflict.Record
	Counts         Counts
	DriverFailures []DriverFailure
}

// osReader reads workspace files directly off disk.
type osReader struct{}

func (osReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// gitBlobHash computes the same SHA-1 content hash `git hash-object` would
// produce, without writing anything to the store — the "optimistic
// pre-image" check spec.md §4.3 describes.
func gitBlobHash(content []byte) (oid.BlobID, error) {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return oid.NewBlobID(hex.EncodeToString(h.Sum(nil)))
}

// Build implements run_build_phase (spec.md §4.10). Precondition: the
// persisted phase is Prepare.
func Build(store objstore.Store, backend workspace.Backend, statePath string, state *mergestate.State, cfg *mergeconfig.Config, runner mergedrivers.Runner, now int64) (BuildOutput, error) {
	if state.Phase != mergestate.Prepare {
		return BuildOutput{}, fmt.Errorf("phases: build precondition failed: phase is %s, want %s", state.Phase, mergestate.Prepare)
	}

	drivers, err := cfg.Drivers()
	if err != nil {
		return BuildOutput{}, err
	}

	if err := state.Advance(mergestate.Build, now); err != nil {
		return BuildOutput{}, err
	}
	if err := state.Save(statePath); err != nil {
		return BuildOutput{}, err
	}

	patchSets, err := collectAll(backend, state.Sources, state.EpochBefore)
	if err != nil {
		return BuildOutput{}, err
	}

	part := partition.Partition(patchSets)

	epochContents, err := readEpochContents(store, state.EpochBefore, touchedPaths(part))
	if err != nil {
		return BuildOutput{}, err
	}
	contentLookup := func(path string) ([]byte, bool) {
		c, ok := epochContents[path]
		return c, ok
	}

	plan, err := mergedrivers.Apply(drivers, part, contentLookup)
	if err != nil {
		return BuildOutput{}, fmt.Errorf("phases: apply merge drivers: %w", err)
	}

	resolved := resolve.Resolve(plan.Remaining, contentLookup, resolve.DefaultHookRegistry())

	changes := mergeChanges(plan.Driven, resolved.Resolved)

	var driverFailures []DriverFailure
	regenerated := 0
	if len(plan.RegeneratePaths) > 0 {
		provisional, err := build.Build(store, state.EpochBefore, state.Sources, changes, "")
		if err != nil {
			return BuildOutput{}, fmt.Errorf("phases: provisional build: %w", err)
		}

		results, err := mergedrivers.Run(store, runner, provisional.Candidate, drivers, plan.RegeneratePaths)
		if err != nil {
			return BuildOutput{}, fmt.Errorf("phases: regenerate drivers: %w", err)
		}
		for _, r := range results {
			if r.Err != nil {
				driverFailures = append(driverFailures, DriverFailure{Paths: r.Paths, Err: r.Err})
				continue
			}
			changes = mergeChanges(changes, r.Changes)
			regenerated += len(r.Changes)
		}
	}

	output, err := build.Build(store, state.EpochBefore, state.Sources, changes, "")
	if err != nil {
		return BuildOutput{}, fmt.Errorf("phases: build candidate: %w", err)
	}

	state.EpochCandidate = output.Candidate
	state.UpdatedAt = now
	if err := state.Save(statePath); err != nil {
		return BuildOutput{}, err
	}

	counts := Counts{
		UniquePaths:  len(part.Unique),
		SharedPaths:  len(part.Shared),
		DriverDriven: len(plan.Driven),
		Resolved:     len(resolved.Resolved),
		Conflicts:    len(resolved.Conflicts),
		Regenerated:  regenerated,
	}

	return BuildOutput{
		Candidate:      output.Candidate,
		Conflicts:      resolved.Conflicts,
		Counts:         counts,
		DriverFailures: driverFailures,
	}, nil
}

func collectAll(backend workspace.Backend, sources []workspace.ID, epoch oid.CommitID) ([]patchset.PatchSet, error) {
	reader := osReader{}
	patchSets := make([]patchset.PatchSet, 0, len(sources))
	for _, ws := range sources {
		snap, err := backend.Snapshot(ws, epoch)
		if err != nil {
			return nil, fmt.Errorf("phases: snapshot %s: %w", ws, err)
		}
		dir, err := backend.PathOf(ws)
		if err != nil {
			return nil, fmt.Errorf("phases: locate %s: %w", ws, err)
		}
		ps, err := patchset.Collect(ws, epoch, snap, dir, reader, gitBlobHash)
		if err != nil {
			return nil, err
		}
		patchSets = append(patchSets, ps)
	}
	return patchSets, nil
}

func touchedPaths(part partition.Result) []string {
	paths := make([]string, 0, len(part.Unique)+len(part.Shared))
	for _, u := range part.Unique {
		paths = append(paths, u.Path)
	}
	for _, s := range part.Shared {
		paths = append(paths, s.Path)
	}
	return paths
}

// readEpochContents reads every touched path's content at the epoch,
// fanning the per-path blob reads out across goroutines (resolve.
// ReadPathsConcurrently): each read is independent and read-only, unlike
// the K-way fold downstream of it, which spec.md §4.5.2 requires to run
// in fixed sequential order.
func readEpochContents(store objstore.Store, epoch oid.CommitID, paths []string) (map[string][]byte, error) {
	if epoch.IsZero() {
		return map[string][]byte{}, nil
	}
	flat, err := store.ReadTreeRecursive(epoch)
	if err != nil {
		return nil, fmt.Errorf("phases: read epoch tree %s: %w", epoch, err)
	}
	return resolve.ReadPathsConcurrently(paths, func(path string) ([]byte, bool, error) {
		entry, ok := flat[path]
		if !ok {
			return nil, false, nil
		}
		content, err := store.ReadBlob(entry.Blob)
		if err != nil {
			return nil, false, fmt.Errorf("phases: read epoch blob for %s: %w", path, err)
		}
		return content, true, nil
	})
}

// mergeChanges overlays extra on top of base, keyed by path, and returns
// the result sorted by path.
func mergeChanges(base, extra []resolve.Change) []resolve.Change {
	byPath := make(map[string]resolve.Change, len(base)+len(extra))
	for _, c := range base {
		byPath[c.Path] = c
	}
	for _, c := range extra {
		byPath[c.Path] = c
	}
	merged := make([]resolve.Change, 0, len(byPath))
	for _, c := range byPath {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Path < merged[j].Path })
	return merged
}
