package patchset

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/workspace"
)

type fakeReader map[string][]byte

func (f fakeReader) ReadFile(path string) ([]byte, error) {
	if b, ok := f[path]; ok {
		return b, nil
	}
	return nil, errors.New("no such file")
}

func sha1Hash(b []byte) (oid.BlobID, error) {
	sum := sha1.Sum(b)
	return oid.NewBlobID(hex.EncodeToString(sum[:]))
}

func TestCollectOrdersByPath(t *testing.T) {
	ws, _ := workspace.NewID("ws-00")
	snap := workspace.Snapshot{
		Added:    []string{"zeta.txt"},
		Modified: []string{"alpha.txt"},
		Deleted:  []string{"middle.txt"},
	}
	reader := fakeReader{
		"/ws/ws-00/zeta.txt":  []byte("z\n"),
		"/ws/ws-00/alpha.txt": []byte("a\n"),
	}

	ps, err := Collect(ws, oid.CommitID("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"), snap, "/ws/ws-00", reader, sha1Hash)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if len(ps.Changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(ps.Changes))
	}
	wantOrder := []string{"alpha.txt", "middle.txt", "zeta.txt"}
	for i, want := range wantOrder {
		if ps.Changes[i].Path != want {
			t.Errorf("Changes[%d].Path = %q, want %q", i, ps.Changes[i].Path, want)
		}
	}
	if ps.Changes[1].Kind != Deleted || ps.Changes[1].Content != nil {
		t.Errorf("middle.txt should be a contentless delete, got %+v", ps.Changes[1])
	}
}

func TestCollectFailsOnUnreadablePath(t *testing.T) {
	ws, _ := workspace.NewID("ws-00")
	snap := workspace.Snapshot{Added: []string{"missing.txt"}}
	reader := fakeReader{}

	_, err := Collect(ws, oid.CommitID("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"), snap, "/ws/ws-00", reader, sha1Hash)
	if !errors.Is(err, workspace.ErrChangeReadErr) {
		t.Fatalf("Collect err = %v, want wrapped ErrChangeReadErr", err)
	}
}

func TestCollectEmptySnapshotIsPreserved(t *testing.T) {
	ws, _ := workspace.NewID("ws-00")
	ps, err := Collect(ws, oid.CommitID("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"), workspace.Snapshot{}, "/ws/ws-00", fakeReader{}, sha1Hash)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if ps.Changes != nil {
		t.Errorf("expected no changes, got %v", ps.Changes)
	}
}
