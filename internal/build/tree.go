package build

import (
	"path"
	"sort"
	"strings"

	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
)

// synthesizeTrees implements spec.md §4.6 step 3: collect every ancestor
// directory, sort deepest-first (tie-broken lexicographically), and call
// WriteTree bottom-up so every subtree referenced by a parent is already
// built by the time its parent is synthesized.
func synthesizeTrees(store objstore.Store, flat map[string]Entry) (oid.TreeID, error) {
	dirSet := map[string]bool{"": true}
	for p := range flat {
		dir := parentOf(p)
		for !dirSet[dir] {
			dirSet[dir] = true
			if dir == "" {
				break
			}
			dir = parentOf(dir)
		}
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di > dj // deepest first
		}
		return dirs[i] < dirs[j]
	})

	children := make(map[string][]string, len(dirs)) // dir -> direct subdirectories
	for _, d := range dirs {
		if d == "" {
			continue
		}
		p := parentOf(d)
		children[p] = append(children[p], d)
	}

	blobChildren := make(map[string][]string, len(flat)) // dir -> direct file paths
	for p := range flat {
		dir := parentOf(p)
		blobChildren[dir] = append(blobChildren[dir], p)
	}

	built := make(map[string]oid.TreeID, len(dirs))
	for _, dir := range dirs {
		var entries []objstore.NamedEntry

		files := append([]string(nil), blobChildren[dir]...)
		sort.Strings(files)
		for _, p := range files {
			e := flat[p]
			entries = append(entries, objstore.NamedEntry{
				Name:  path.Base(p),
				Entry: objstore.TreeEntry{Mode: e.Mode, Blob: e.Blob},
			})
		}

		subdirs := append([]string(nil), children[dir]...)
		sort.Strings(subdirs)
		for _, d := range subdirs {
			entries = append(entries, objstore.NamedEntry{
				Name:    path.Base(d),
				SubTree: built[d],
				IsDir:   true,
			})
		}

		tid, err := store.WriteTree(entries)
		if err != nil {
			return "", err
		}
		built[dir] = tid
	}

	return built[""], nil
}

func depth(dir string) int {
	if dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}
