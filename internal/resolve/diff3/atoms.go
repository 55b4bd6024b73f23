package diff3

import (
	"fmt"
	"strings"

	"github.com/agentmesh/manifold/internal/conflict"
)

// state is one of the four automaton states spec.md §4.5.5 names.
type state int

const (
	stateContext state = iota
	stateOurs
	stateBase
	stateTheirs
)

// ParseConflictAtoms parses diff3 marker output (as RenderMarkers emits,
// or as an external `merge -p --diff3` would) into ConflictAtoms. It is
// the four-state automaton of spec.md §4.5.5: Context, Ours, Base, Theirs,
// tracking a 1-indexed base cursor and accumulating lines per region.
func ParseConflictAtoms(markerText []byte, oursLabel, theirsLabel string) ([]conflict.Atom, error) {
	lines := strings.Split(strings.TrimRight(string(markerText), "\n"), "\n")
	if len(markerText) == 0 {
		lines = nil
	}

	var atoms []conflict.Atom
	st := stateContext
	baseCursor := 1 // 1-indexed per spec.md §4.5.5
	var ours, base, theirs []string
	atomBaseStart := 0

	for _, line := range lines {
		switch {
		case st == stateContext && strings.HasPrefix(line, markerOurs):
			st = stateOurs
			ours, base, theirs = nil, nil, nil
		case st == stateOurs && strings.HasPrefix(line, markerBase):
			st = stateBase
			atomBaseStart = baseCursor
		case st == stateBase && line == markerSep:
			st = stateTheirs
		case st == stateTheirs && strings.HasPrefix(line, markerTheirs):
			atoms = append(atoms, conflict.Atom{
				BaseRegion: conflict.BaseRegion{
					IsLineRange: true,
					LineLo:      atomBaseStart - 1, // convert back to 0-indexed for BaseRegion
					LineHi:      baseCursor - 1,
				},
				Edits: []conflict.AtomEdit{
					{WorkspaceLabel: oursLabel, Region: conflict.BaseRegion{IsLineRange: true, LineLo: atomBaseStart - 1, LineHi: baseCursor - 1}, Text: strings.Join(ours, "\n")},
					{WorkspaceLabel: theirsLabel, Region: conflict.BaseRegion{IsLineRange: true, LineLo: atomBaseStart - 1, LineHi: baseCursor - 1}, Text: strings.Join(theirs, "\n")},
				},
				Reason: conflict.ReasonDiff3Conflict,
			})
			st = stateContext
		default:
			switch st {
			case stateContext:
				baseCursor++
			case stateOurs:
				ours = append(ours, line)
			case stateBase:
				base = append(base, line)
				baseCursor++
			case stateTheirs:
				theirs = append(theirs, line)
			}
		}
	}

	if st != stateContext {
		return nil, fmt.Errorf("diff3: unterminated conflict marker (state=%d)", st)
	}

	return atoms, nil
}
