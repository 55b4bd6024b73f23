package partition

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/agentmesh/manifold/internal/patchset"
	"github.com/agentmesh/manifold/internal/workspace"
)

func ws(id string) workspace.ID {
	w, err := workspace.NewID(id)
	if err != nil {
		panic(err)
	}
	return w
}

func TestPartitionUniqueAndShared(t *testing.T) {
	patchSets := []patchset.PatchSet{
		{WorkspaceID: ws("ws-00"), Changes: []patchset.FileChange{
			{Path: "alpha.rs", Kind: patchset.Added, Content: []byte("fn alpha() {}\n")},
			{Path: "shared.txt", Kind: patchset.Modified, Content: []byte("from A\n")},
		}},
		{WorkspaceID: ws("ws-01"), Changes: []patchset.FileChange{
			{Path: "beta.rs", Kind: patchset.Added, Content: []byte("fn beta() {}\n")},
			{Path: "shared.txt", Kind: patchset.Modified, Content: []byte("from B\n")},
		}},
	}

	result := Partition(patchSets)

	if len(result.Unique) != 2 {
		t.Fatalf("got %d unique entries, want 2", len(result.Unique))
	}
	if result.Unique[0].Path != "alpha.rs" || result.Unique[1].Path != "beta.rs" {
		t.Errorf("unique entries not path-sorted: %+v", result.Unique)
	}

	if len(result.Shared) != 1 || result.Shared[0].Path != "shared.txt" {
		t.Fatalf("got shared = %+v, want one entry for shared.txt", result.Shared)
	}
	if len(result.Shared[0].Entries) != 2 {
		t.Fatalf("shared.txt has %d entries, want 2", len(result.Shared[0].Entries))
	}
	if result.Shared[0].Entries[0].WorkspaceID != ws("ws-00") {
		t.Errorf("shared entries not workspace-sorted: %+v", result.Shared[0].Entries)
	}
}

func TestPartitionOrderIndependentOfArrivalOrder(t *testing.T) {
	base := []patchset.PatchSet{
		{WorkspaceID: ws("ws-00"), Changes: []patchset.FileChange{{Path: "a", Kind: patchset.Added, Content: []byte("1")}}},
		{WorkspaceID: ws("ws-01"), Changes: []patchset.FileChange{{Path: "a", Kind: patchset.Added, Content: []byte("2")}}},
		{WorkspaceID: ws("ws-02"), Changes: []patchset.FileChange{{Path: "b", Kind: patchset.Added, Content: []byte("3")}}},
	}

	want := Partition(base)

	shuffled := make([]patchset.PatchSet, len(base))
	copy(shuffled, base)
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Partition(shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Partition not order-independent:\ngot  %+v\nwant %+v", got, want)
		}
	}
}

func TestPartitionEveryPairAppearsOnce(t *testing.T) {
	patchSets := []patchset.PatchSet{
		{WorkspaceID: ws("ws-00"), Changes: []patchset.FileChange{{Path: "a", Kind: patchset.Added, Content: []byte("1")}}},
	}
	result := Partition(patchSets)
	if len(result.Unique) != 1 || len(result.Shared) != 0 {
		t.Fatalf("unexpected partition result: %+v", result)
	}
}
