package resolve

import (
	"path/filepath"
	"strings"

	"github.com/agentmesh/manifold/internal/conflict"
)

// HookSide is one workspace's content for a structural-merge hook call.
type HookSide struct {
	WorkspaceLabel string
	Content        []byte
}

// HookResult is a structural-merge hook's verdict (spec.md §4.5.6):
// Clean(bytes), Conflict(atoms with AstNode regions), or Unsupported
// (Supported == false).
type HookResult struct {
	Supported bool
	Clean     bool
	Content   []byte
	Atoms     []conflict.Atom
}

// StructuralHook is a language-aware merge plug-in, keyed to file
// extensions by a HookRegistry (spec.md §4.5.6).
type StructuralHook interface {
	Extensions() []string
	Merge(base []byte, sides []HookSide) (HookResult, error)
}

// HookRegistry dispatches a path to a StructuralHook by its extension.
type HookRegistry struct {
	byExt map[string]StructuralHook
}

// NewHookRegistry returns an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{byExt: make(map[string]StructuralHook)}
}

// Register associates hook with every extension it declares.
func (r *HookRegistry) Register(hook StructuralHook) {
	for _, ext := range hook.Extensions() {
		r.byExt[strings.ToLower(ext)] = hook
	}
}

// Lookup returns the hook registered for path's extension, if any.
func (r *HookRegistry) Lookup(path string) (StructuralHook, bool) {
	h, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return h, ok
}

// DefaultHookRegistry returns a registry with the one hook SPEC_FULL.md
// commits to: JSONHook.
func DefaultHookRegistry() *HookRegistry {
	r := NewHookRegistry()
	r.Register(JSONHook{})
	return r
}
