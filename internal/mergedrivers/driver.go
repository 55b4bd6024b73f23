// Package mergedrivers implements merge drivers (spec.md §4.7): an
// ordered (glob, kind, command?) list that can override the normal
// Resolve decision tree for matching paths.
package mergedrivers

import (
	"errors"
	"fmt"
	"path"

	"github.com/agentmesh/manifold/internal/partition"
	"github.com/agentmesh/manifold/internal/patchset"
	"github.com/agentmesh/manifold/internal/resolve"
)

// Kind is a driver's resolution strategy.
type Kind int

const (
	Ours Kind = iota
	Theirs
	Regenerate
)

// Driver is one (glob, kind, command?) configuration entry. Command is
// only meaningful for Regenerate.
type Driver struct {
	Glob    string
	Kind    Kind
	Command string
}

// Sentinel errors for the Theirs driver's single-side requirement.
var (
	ErrNoTheirsSide     = errors.New("mergedrivers: theirs driver requires exactly one workspace to have touched the path, found none")
	ErrAmbiguousTheirs  = errors.New("mergedrivers: theirs driver requires exactly one workspace to have touched the path, found more than one")
)

// EpochContent looks up epoch-side content for a path, for the Ours
// driver. Missing means the path did not exist at the epoch.
type EpochContent func(path string) (content []byte, ok bool)

// Plan is Apply's output: changes already resolved by Ours/Theirs
// drivers, paths deferred to the Regenerate flow (grouped by driver
// index into the original drivers slice), and the paths with no
// matching driver, left for the normal Resolve decision tree.
type Plan struct {
	Driven          []resolve.Change
	RegeneratePaths map[int][]string
	Remaining       partition.Result
}

// Apply selects, for every unique and shared path, the first driver
// whose glob matches (spec.md §4.7). Paths with no matching driver (or
// when drivers is empty) pass through in Remaining unchanged.
func Apply(drivers []Driver, part partition.Result, epoch EpochContent) (Plan, error) {
	plan := Plan{RegeneratePaths: map[int][]string{}}

	for _, u := range part.Unique {
		idx, ok := match(drivers, u.Path)
		if !ok {
			plan.Remaining.Unique = append(plan.Remaining.Unique, u)
			continue
		}
		if err := applyDriver(&plan, drivers[idx], idx, u.Path, []partition.Entry{u.Entry}, epoch); err != nil {
			return Plan{}, err
		}
	}

	for _, s := range part.Shared {
		idx, ok := match(drivers, s.Path)
		if !ok {
			plan.Remaining.Shared = append(plan.Remaining.Shared, s)
			continue
		}
		if err := applyDriver(&plan, drivers[idx], idx, s.Path, s.Entries, epoch); err != nil {
			return Plan{}, err
		}
	}

	return plan, nil
}

func applyDriver(plan *Plan, d Driver, idx int, p string, entries []partition.Entry, epoch EpochContent) error {
	switch d.Kind {
	case Ours:
		if content, ok := epoch(p); ok {
			plan.Driven = append(plan.Driven, resolve.Change{Path: p, Op: resolve.OpUpsert, Content: content})
		} else {
			plan.Driven = append(plan.Driven, resolve.Change{Path: p, Op: resolve.OpDelete})
		}
	case Theirs:
		switch len(entries) {
		case 0:
			return fmt.Errorf("%w: path %s", ErrNoTheirsSide, p)
		case 1:
			e := entries[0]
			if e.Kind == patchset.Deleted {
				plan.Driven = append(plan.Driven, resolve.Change{Path: p, Op: resolve.OpDelete})
			} else {
				plan.Driven = append(plan.Driven, resolve.Change{Path: p, Op: resolve.OpUpsert, Content: e.Content})
			}
		default:
			return fmt.Errorf("%w: path %s", ErrAmbiguousTheirs, p)
		}
	case Regenerate:
		plan.RegeneratePaths[idx] = append(plan.RegeneratePaths[idx], p)
	}
	return nil
}

func match(drivers []Driver, p string) (int, bool) {
	for i, d := range drivers {
		if ok, _ := path.Match(d.Glob, p); ok {
			return i, true
		}
	}
	return 0, false
}
