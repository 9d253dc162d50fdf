package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// Flatten converts value into entries rooted at prefix. The root object does
// not emit a marker for the empty path; nested objects do, so an empty
// nested object still shows up in the schema.
func Flatten(value any, prefix types.Path) ([]types.Entry, error) {
	var out []types.Entry
	if err := flatten(value, prefix, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FlattenObject flattens a payload that must be a JSON object.
func FlattenObject(payload any) ([]types.Entry, error) {
	if _, ok := payload.(map[string]any); !ok {
		return nil, types.ErrPayloadNotObject
	}
	return Flatten(payload, nil)
}

func flatten(value any, prefix types.Path, out *[]types.Entry) error {
	switch v := value.(type) {
	case map[string]any:
		if len(prefix) > 0 {
			*out = append(*out, types.Entry{Path: prefix, Value: types.Marker})
		}
		if len(prefix) >= types.MaxDepth {
			return nil
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "" || k == types.NullSegment {
				return &types.PathError{Op: "flatten", Path: prefix.Child(k), Err: types.ErrReservedSegment}
			}
			if err := flatten(v[k], prefix.Child(k), out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		s, err := encodeList(v, prefix)
		if err != nil {
			return err
		}
		*out = append(*out, types.Entry{Path: prefix, Value: s})
		return nil
	default:
		*out = append(*out, types.Entry{Path: prefix, Value: v})
		return nil
	}
}

// encodeList serializes a leaf list. HTML escaping is off so cell text
// matches what a JSON client sent.
func encodeList(items []any, at types.Path) (types.List, error) {
	for _, item := range items {
		if containsObject(item) {
			return "", &types.PathError{Op: "flatten", Path: at, Err: types.ErrListContainsObject}
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", &types.PathError{Op: "flatten", Path: at, Err: fmt.Errorf("%w: %v", types.ErrFormatViolation, err)}
	}
	return types.List(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func containsObject(v any) bool {
	switch x := v.(type) {
	case map[string]any:
		return true
	case []any:
		for _, item := range x {
			if containsObject(item) {
				return true
			}
		}
	}
	return false
}

// Paths returns the entry paths in entry order.
func Paths(entries []types.Entry) []types.Path {
	out := make([]types.Path, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}
