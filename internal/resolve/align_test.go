package resolve

import (
	"reflect"
	"testing"

	"github.com/agentmesh/manifold/internal/resolve/diff3"
)

// TestShiftedAlignmentRetryMovedFunctionVsInPlaceEdit is the canonical
// "moved function vs in-place edit" fixture spec.md §4.5.3 calls out: one
// side reorders blank-line-delimited blocks without touching their
// content, the other edits inside one block in place. A bare three-way
// merge conflicts on the misalignment; the retry must resolve it.
func TestShiftedAlignmentRetryMovedFunctionVsInPlaceEdit(t *testing.T) {
	base := []string{"func A() {}", "", "func B() {}", "", "func C() {}"}
	acc := []string{"func C() {}", "", "func A() {}", "", "func B() {}"}
	theirs := []string{"func A() { return 1 }", "", "func B() {}", "", "func C() {}"}

	bare := diff3.Merge(base, acc, theirs)
	if bare.Clean {
		t.Fatalf("expected the bare three-way merge to conflict on the reorder")
	}

	merged, ok := ShiftedAlignmentRetry(base, acc, theirs)
	if !ok {
		t.Fatalf("expected shifted-alignment retry to resolve cleanly")
	}
	want := []string{"func A() { return 1 }", "", "func B() {}", "", "func C() {}"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %v, want %v", merged, want)
	}
}

func TestShiftedAlignmentRetryNoAnchorsFails(t *testing.T) {
	base := []string{"x", "", "y"}
	acc := []string{"p", "", "q"}
	theirs := []string{"r", "", "s"}

	_, ok := ShiftedAlignmentRetry(base, acc, theirs)
	if ok {
		t.Fatalf("expected retry to decline when neither side has an anchored block")
	}
}
