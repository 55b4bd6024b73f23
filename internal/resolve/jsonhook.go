package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agentmesh/manifold/internal/conflict"
)

// JSONHook is the one concrete structural-merge hook spec.md §4.5.6
// leaves as a pluggable interface: it detects disjoint top-level key
// edits in JSON object files and merges them even when the surrounding
// bytes (key order, whitespace) differ enough to make diff3 conflict.
// Non-object JSON (arrays, scalars) and malformed JSON report Unsupported
// so the caller falls back to the line-based merge.
type JSONHook struct{}

// Extensions implements StructuralHook.
func (JSONHook) Extensions() []string { return []string{".json"} }

// sideDiff is one side's changes to the base object's keys.
type sideDiff struct {
	label   string
	changed map[string]json.RawMessage
	deleted map[string]bool
}

// Merge implements StructuralHook.
func (JSONHook) Merge(base []byte, sides []HookSide) (HookResult, error) {
	baseObj, ok := decodeJSONObject(base)
	if !ok {
		return HookResult{Supported: false}, nil
	}

	diffs := make([]sideDiff, 0, len(sides))
	for _, s := range sides {
		obj, ok := decodeJSONObject(s.Content)
		if !ok {
			return HookResult{Supported: false}, nil
		}
		d := sideDiff{label: s.WorkspaceLabel, changed: map[string]json.RawMessage{}, deleted: map[string]bool{}}
		for k, v := range obj {
			if bv, present := baseObj[k]; !present || !bytes.Equal(bv, v) {
				d.changed[k] = v
			}
		}
		for k := range baseObj {
			if _, present := obj[k]; !present {
				d.deleted[k] = true
			}
		}
		diffs = append(diffs, d)
	}

	touched := map[string][]int{}
	for i, d := range diffs {
		for k := range d.changed {
			touched[k] = append(touched[k], i)
		}
		for k := range d.deleted {
			touched[k] = append(touched[k], i)
		}
	}

	merged := make(map[string]json.RawMessage, len(baseObj))
	for k, v := range baseObj {
		merged[k] = v
	}

	var atoms []conflict.Atom
	for k, idxs := range touched {
		if agreed, deleted, value := diffsAgree(diffs, idxs, k); agreed {
			if deleted {
				delete(merged, k)
			} else {
				merged[k] = value
			}
			continue
		}

		edits := make([]conflict.AtomEdit, 0, len(idxs))
		for _, idx := range idxs {
			d := diffs[idx]
			text := "<deleted>"
			if !d.deleted[k] {
				text = string(d.changed[k])
			}
			edits = append(edits, conflict.AtomEdit{
				WorkspaceLabel: d.label,
				Region:         conflict.BaseRegion{NodeKind: "json_key", NodeName: k},
				Text:           text,
			})
		}
		atoms = append(atoms, conflict.Atom{
			BaseRegion: conflict.BaseRegion{NodeKind: "json_key", NodeName: k},
			Edits:      edits,
			Reason:     conflict.ReasonDiff3Conflict,
		})
	}

	if len(atoms) > 0 {
		sort.Slice(atoms, func(i, j int) bool { return atoms[i].BaseRegion.NodeName < atoms[j].BaseRegion.NodeName })
		return HookResult{Supported: true, Clean: false, Atoms: atoms}, nil
	}

	out, err := encodeJSONObjectSorted(merged)
	if err != nil {
		return HookResult{}, fmt.Errorf("json hook: encode: %w", err)
	}
	return HookResult{Supported: true, Clean: true, Content: out}, nil
}

// diffsAgree reports whether every side touching key k produced the same
// outcome: all delete it, or all replace it with byte-identical content.
func diffsAgree(diffs []sideDiff, idxs []int, k string) (agreed bool, deleted bool, value json.RawMessage) {
	first := diffs[idxs[0]]
	deleted = first.deleted[k]
	value = first.changed[k]
	for _, idx := range idxs[1:] {
		d := diffs[idx]
		if d.deleted[k] != deleted {
			return false, false, nil
		}
		if !deleted && !bytes.Equal(d.changed[k], value) {
			return false, false, nil
		}
	}
	return true, deleted, value
}

func decodeJSONObject(b []byte) (map[string]json.RawMessage, bool) {
	if len(b) == 0 {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func encodeJSONObjectSorted(obj map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(obj[k])
	}
	buf.WriteByte('}')
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
