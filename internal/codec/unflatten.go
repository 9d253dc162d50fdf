package codec

import (
	"encoding/json"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// array is a growable list under construction. Slices are finalized once
// every entry has been applied so parents never hold stale slice headers.
type array struct {
	items []any
}

func (a *array) grow(i int) {
	for len(a.items) <= i {
		a.items = append(a.items, nil)
	}
}

// Unflatten applies entries in order to an empty object and returns it.
//
// A segment selects a key of an object or, when it is a positive integer, a
// 1-based slot of a list. New intermediate containers are lists when the
// following segment is numeric and objects otherwise. The last segment
// receives the value, replacing whatever was there, except that an existence
// marker never replaces a container that is already present.
//
// Entries whose path contradicts structure already built (a key against a
// list) are skipped. The object is always returned; when anything was
// skipped the error is a *types.UnflattenError naming those paths.
func Unflatten(entries []types.Entry) (map[string]any, error) {
	root := map[string]any{}
	var skipped []types.Path
	for _, e := range entries {
		if len(e.Path) == 0 {
			continue
		}
		if !set(root, e.Path, e.Value) {
			skipped = append(skipped, e.Path)
		}
	}
	out := finalize(root).(map[string]any)
	if len(skipped) > 0 {
		return out, &types.UnflattenError{Skipped: skipped}
	}
	return out, nil
}

// decodeValue turns codec sentinels back into the values they stand for.
func decodeValue(v any) any {
	switch x := v.(type) {
	case types.Existence:
		return map[string]any{}
	case types.List:
		var items []any
		if err := json.Unmarshal([]byte(x), &items); err != nil {
			return string(x)
		}
		if items == nil {
			items = []any{}
		}
		return items
	}
	return v
}

func set(root map[string]any, p types.Path, v any) bool {
	var cur any = root
	last := len(p) - 1
	for i, seg := range p[:last] {
		next, ok := descend(cur, seg, p[i+1])
		if !ok {
			return false
		}
		cur = next
	}
	return assign(cur, p[last], v)
}

// descend returns the container stored under seg in cur, creating one when
// the slot is empty or holds a scalar.
func descend(cur any, seg, nextSeg string) (any, bool) {
	switch c := cur.(type) {
	case map[string]any:
		if child, ok := container(c[seg]); ok {
			return child, true
		}
		child := newContainer(nextSeg)
		c[seg] = child
		return child, true
	case *array:
		idx, ok := types.Index(seg)
		if !ok {
			return nil, false
		}
		c.grow(idx)
		if child, ok := container(c.items[idx]); ok {
			return child, true
		}
		child := newContainer(nextSeg)
		c.items[idx] = child
		return child, true
	}
	return nil, false
}

func assign(cur any, seg string, v any) bool {
	_, isMarker := v.(types.Existence)
	switch c := cur.(type) {
	case map[string]any:
		if _, ok := container(c[seg]); ok && isMarker {
			return true
		}
		c[seg] = decodeValue(v)
		return true
	case *array:
		idx, ok := types.Index(seg)
		if !ok {
			return false
		}
		c.grow(idx)
		if _, ok := container(c.items[idx]); ok && isMarker {
			return true
		}
		c.items[idx] = decodeValue(v)
		return true
	}
	return false
}

func container(v any) (any, bool) {
	switch v.(type) {
	case map[string]any, *array:
		return v, true
	}
	return nil, false
}

func newContainer(nextSeg string) any {
	if _, ok := types.Index(nextSeg); ok {
		return &array{}
	}
	return map[string]any{}
}

// finalize replaces every *array with a plain []any.
func finalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, child := range x {
			x[k] = finalize(child)
		}
		return x
	case *array:
		out := make([]any, len(x.items))
		for i, child := range x.items {
			out[i] = finalize(child)
		}
		return out
	}
	return v
}
