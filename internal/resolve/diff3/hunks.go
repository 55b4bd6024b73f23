// Package diff3 implements the three-way line merge engine of spec.md
// §4.5.4: a deterministic Myers-based merge producing diff3 conflict
// markers, built on sergi/go-diff (the line-diff library the pack's two
// git-engine repos, go-git and src-d/go-git.v4, both depend on).
package diff3

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// hunk replaces base lines [BaseStart, BaseEnd) with Lines from one side.
// A pure insertion has BaseStart == BaseEnd.
type hunk struct {
	BaseStart, BaseEnd int
	Lines              []string
}

// diffHunks computes the line-level edit hunks transforming base into
// variant, expressed as replacements against base line indices.
func diffHunks(base, variant []string) []hunk {
	dmp := diffmatchpatch.New()
	baseText := joinLines(base)
	variantText := joinLines(variant)

	a, b, lineArray := dmp.DiffLinesToChars(baseText, variantText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var hunks []hunk
	cursor := 0
	var current *hunk

	flush := func() {
		if current != nil {
			hunks = append(hunks, *current)
			current = nil
		}
	}

	for _, d := range diffs {
		lines := splitDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			cursor += len(lines)
		case diffmatchpatch.DiffDelete:
			if current == nil {
				current = &hunk{BaseStart: cursor, BaseEnd: cursor}
			}
			current.BaseEnd += len(lines)
			cursor += len(lines)
		case diffmatchpatch.DiffInsert:
			if current == nil {
				current = &hunk{BaseStart: cursor, BaseEnd: cursor}
			}
			current.Lines = append(current.Lines, lines...)
		}
	}
	flush()

	return hunks
}

// joinLines joins lines with '\n', always leaving a trailing separator so
// DiffLinesToChars treats every entry as a complete line token.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// splitDiffLines splits a diff chunk's text (as reassembled by
// DiffCharsToLines, '\n'-terminated) back into individual lines, dropping
// the final empty element the trailing separator produces.
func splitDiffLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
