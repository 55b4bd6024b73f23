package diff3

import "strings"

// Marker lines match the textual output of `git merge-file -p --diff3` /
// `merge -p --diff3`, the shape spec.md §4.5.4's "shell out" alternative
// produces and spec.md §4.5.5's four-state automaton parses.
const (
	markerOurs   = "<<<<<<< "
	markerBase   = "||||||| "
	markerSep    = "======="
	markerTheirs = ">>>>>>> "
)

// RenderMarkers renders a conflicted Result as diff3 marker text. Clean
// regions are emitted verbatim; each conflict region is wrapped in
// <<<<<<</|||||||/=======/>>>>>>> markers labeled with oursLabel and
// theirsLabel.
func RenderMarkers(base []string, conflicts []ConflictRegion, oursLabel, theirsLabel string) []byte {
	var b strings.Builder
	cursor := 0

	for _, c := range conflicts {
		for _, l := range base[cursor:c.BaseStart] {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteString(markerOurs + oursLabel + "\n")
		writeLines(&b, c.OursLines)
		b.WriteString(markerBase + "base\n")
		writeLines(&b, c.BaseLines)
		b.WriteString(markerSep + "\n")
		writeLines(&b, c.TheirsLines)
		b.WriteString(markerTheirs + theirsLabel + "\n")
		cursor = c.BaseEnd
	}
	for _, l := range base[cursor:] {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	return []byte(b.String())
}

func writeLines(b *strings.Builder, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
}
