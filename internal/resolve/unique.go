package resolve

import (
	"github.com/agentmesh/manifold/internal/conflict"
	"github.com/agentmesh/manifold/internal/partition"
	"github.com/agentmesh/manifold/internal/patchset"
)

// resolveUnique implements spec.md §4.5.1. Exactly one of the return
// values is non-nil.
func resolveUnique(u partition.UniqueEntry) (*Change, *conflict.Record) {
	e := u.Entry
	switch e.Kind {
	case patchset.Deleted:
		return &Change{Path: u.Path, Op: OpDelete}, nil
	default:
		if e.Content == nil {
			return nil, &conflict.Record{
				Path:   u.Path,
				Sides:  []conflict.Side{{WorkspaceID: e.WorkspaceID, Kind: e.Kind, Content: e.Content}},
				Reason: conflict.ReasonMissingContent,
			}
		}
		return &Change{Path: u.Path, Op: OpUpsert, Content: e.Content}, nil
	}
}
