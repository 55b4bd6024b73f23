package resolve

import "testing"

func TestJSONHookDisjointKeysMergeClean(t *testing.T) {
	base := []byte(`{"a":1,"b":2}`)
	ours := []byte(`{"a":10,"b":2}`)
	theirs := []byte(`{"a":1,"b":20}`)

	result, err := JSONHook{}.Merge(base, []HookSide{
		{WorkspaceLabel: "ws-00", Content: ours},
		{WorkspaceLabel: "ws-01", Content: theirs},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.Supported || !result.Clean {
		t.Fatalf("result = %+v, want Supported+Clean", result)
	}
	if string(result.Content) != `{"a":10,"b":20}`+"\n" {
		t.Errorf("Content = %q", result.Content)
	}
}

func TestJSONHookOverlappingKeyConflicts(t *testing.T) {
	base := []byte(`{"a":1}`)
	ours := []byte(`{"a":2}`)
	theirs := []byte(`{"a":3}`)

	result, err := JSONHook{}.Merge(base, []HookSide{
		{WorkspaceLabel: "ws-00", Content: ours},
		{WorkspaceLabel: "ws-01", Content: theirs},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !result.Supported || result.Clean {
		t.Fatalf("result = %+v, want Supported+Conflict", result)
	}
	if len(result.Atoms) != 1 || result.Atoms[0].BaseRegion.NodeName != "a" {
		t.Errorf("Atoms = %+v", result.Atoms)
	}
}

func TestJSONHookUnsupportedOnArray(t *testing.T) {
	result, err := JSONHook{}.Merge([]byte(`[1,2,3]`), []HookSide{
		{WorkspaceLabel: "ws-00", Content: []byte(`[1,2,3]`)},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Supported {
		t.Errorf("expected Unsupported for array-shaped JSON")
	}
}
