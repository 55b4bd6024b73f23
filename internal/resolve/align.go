package resolve

import (
	"sort"
	"strings"

	"github.com/agentmesh/manifold/internal/resolve/diff3"
)

// block is one blank-line-delimited span of non-blank lines (spec.md
// §4.5.3). Blank lines act only as separators; they are not retained as
// block content and are reinserted between blocks on reassembly.
type block struct {
	Lines     []string
	Signature string // trimmed content, used for anchor matching
}

func splitBlocks(lines []string) []block {
	var blocks []block
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, block{
				Lines:     append([]string(nil), cur...),
				Signature: strings.TrimSpace(strings.Join(cur, "\n")),
			})
			cur = nil
		}
	}
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			flush()
			continue
		}
		cur = append(cur, l)
	}
	flush()
	return blocks
}

func reassembleBlocks(blocks []block) []string {
	var out []string
	for i, b := range blocks {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, b.Lines...)
	}
	return out
}

// signatureCounts maps each block's signature to its occurrence count.
func signatureCounts(blocks []block) map[string]int {
	counts := make(map[string]int, len(blocks))
	for _, b := range blocks {
		counts[b.Signature]++
	}
	return counts
}

type anchor struct {
	varPos  int
	basePos int
}

// normalize reorders variant's blocks to match base's anchored positions,
// per spec.md §4.5.3. Returns the input unchanged (ok=false) if no anchor
// is out of place.
func normalize(base, variant []block) ([]block, bool) {
	baseCounts := signatureCounts(base)
	varCounts := signatureCounts(variant)

	baseIndex := make(map[string]int, len(base))
	for i, b := range base {
		if baseCounts[b.Signature] == 1 {
			baseIndex[b.Signature] = i
		}
	}

	var anchors []anchor
	for i, b := range variant {
		if varCounts[b.Signature] != 1 {
			continue
		}
		if basePos, ok := baseIndex[b.Signature]; ok {
			anchors = append(anchors, anchor{varPos: i, basePos: basePos})
		}
	}
	if len(anchors) == 0 {
		return variant, false
	}

	changed := false
	for _, a := range anchors {
		if a.varPos != a.basePos {
			changed = true
			break
		}
	}
	if !changed {
		return variant, false
	}

	sort.Slice(anchors, func(i, j int) bool { return anchors[i].varPos < anchors[j].varPos })

	ranks := make([]float64, len(variant))
	for i := range variant {
		ranks[i] = interpolateRank(i, anchors)
	}

	order := make([]int, len(variant))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := ranks[order[a]], ranks[order[b]]
		if ra != rb {
			return ra < rb
		}
		return order[a] < order[b] // unmatched blocks: variant index as lowest-priority tiebreaker
	})

	reordered := make([]block, len(variant))
	for newPos, oldIdx := range order {
		reordered[newPos] = variant[oldIdx]
	}
	return reordered, true
}

// interpolateRank computes block i's target rank from the nearest
// anchored base positions: an anchored block takes its base rank
// directly; a block between two anchors takes a linearly interpolated
// rank; a block outside every anchor's span takes the nearest anchor's
// rank nudged by its own offset.
func interpolateRank(i int, anchors []anchor) float64 {
	var prev, next *anchor
	for idx := range anchors {
		a := &anchors[idx]
		if a.varPos <= i {
			prev = a
		}
		if a.varPos >= i && next == nil {
			next = a
		}
	}
	switch {
	case prev != nil && next != nil && prev.varPos != next.varPos:
		frac := float64(i-prev.varPos) / float64(next.varPos-prev.varPos)
		return float64(prev.basePos) + frac*float64(next.basePos-prev.basePos)
	case prev != nil:
		return float64(prev.basePos) + float64(i-prev.varPos)*0.001
	case next != nil:
		return float64(next.basePos) - float64(next.varPos-i)*0.001
	default:
		return float64(i)
	}
}

// ShiftedAlignmentRetry implements spec.md §4.5.3: when a pairwise
// three-way merge conflicts, try reordering each variant's blank-line-
// delimited blocks to match anchored positions in base before giving up.
// Applied only once; ok is false if neither variant needed reordering or
// the reordered merge still conflicts.
func ShiftedAlignmentRetry(base, acc, theirs []string) ([]string, bool) {
	baseBlocks := splitBlocks(base)
	accBlocks := splitBlocks(acc)
	theirBlocks := splitBlocks(theirs)

	normAcc, accChanged := normalize(baseBlocks, accBlocks)
	normTheirs, theirsChanged := normalize(baseBlocks, theirBlocks)
	if !accChanged && !theirsChanged {
		return nil, false
	}

	result := diff3.Merge(base, reassembleBlocks(normAcc), reassembleBlocks(normTheirs))
	if !result.Clean {
		return nil, false
	}
	return result.Lines, true
}
