package codec

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []types.Entry
	}{
		{
			name: "leaf list serialized once",
			in:   `{"a":[1,2,3]}`,
			want: []types.Entry{{Path: types.Path{"a"}, Value: types.List("[1,2,3]")}},
		},
		{
			name: "nested object emits marker before children",
			in:   `{"a":{"b":1}}`,
			want: []types.Entry{
				{Path: types.Path{"a"}, Value: types.Marker},
				{Path: types.Path{"a", "b"}, Value: float64(1)},
			},
		},
		{
			name: "empty nested object still emits marker",
			in:   `{"a":{}}`,
			want: []types.Entry{{Path: types.Path{"a"}, Value: types.Marker}},
		},
		{
			name: "keys visited in sorted order",
			in:   `{"b":true,"a":null}`,
			want: []types.Entry{
				{Path: types.Path{"a"}, Value: nil},
				{Path: types.Path{"b"}, Value: true},
			},
		},
		{
			name: "list strings keep html characters",
			in:   `{"a":["<b>","x&y"]}`,
			want: []types.Entry{{Path: types.Path{"a"}, Value: types.List(`["<b>","x&y"]`)}},
		},
		{
			name: "empty list",
			in:   `{"a":[]}`,
			want: []types.Entry{{Path: types.Path{"a"}, Value: types.List("[]")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Flatten(decode(t, tt.in), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlattenRejectsObjectsInLists(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"object element", `{"a":[1,{"b":2}]}`},
		{"object inside nested list", `{"a":[[1],[{"b":2}]]}`},
		{"deep path", `{"x":{"y":[{"z":1}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Flatten(decode(t, tt.in), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrListContainsObject)
			assert.ErrorIs(t, err, types.ErrFormatViolation)

			var pe *types.PathError
			require.True(t, errors.As(err, &pe))
			assert.NotEmpty(t, pe.Path)
		})
	}
}

func TestFlattenRejectsReservedKeys(t *testing.T) {
	for _, in := range []string{`{"x":{"NULL":"v"}}`, `{"NULL":1}`, `{"a":{"":1}}`} {
		t.Run(in, func(t *testing.T) {
			_, err := FlattenObject(decode(t, in))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrReservedSegment)
			assert.ErrorIs(t, err, types.ErrFormatViolation)
		})
	}

	_, err := FlattenObject(decode(t, `{"null":1,"Null":{"x":2}}`))
	assert.NoError(t, err)
}

func TestFlattenDepthLimit(t *testing.T) {
	// Eleven nested levels; nothing deeper than MaxDepth may be emitted.
	in := `{"l1":{"l2":{"l3":{"l4":{"l5":{"l6":{"l7":{"l8":{"l9":{"l10":{"l11":"deep"}}}}}}}}}}}`
	got, err := Flatten(decode(t, in), nil)
	require.NoError(t, err)

	for _, e := range got {
		assert.LessOrEqual(t, len(e.Path), types.MaxDepth, "path %s", e.Path)
	}
	last := got[len(got)-1]
	assert.Len(t, last.Path, types.MaxDepth)
	assert.Equal(t, types.Marker, last.Value)
}

func TestFlattenObject(t *testing.T) {
	_, err := FlattenObject([]any{1, 2})
	assert.ErrorIs(t, err, types.ErrPayloadNotObject)

	_, err = FlattenObject("text")
	assert.ErrorIs(t, err, types.ErrPayloadNotObject)

	entries, err := FlattenObject(map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, []types.Path{{"k"}}, Paths(entries))
}

func TestRoundTrip(t *testing.T) {
	docs := []string{
		`{}`,
		`{"name":"x","age":3,"ok":true,"none":null}`,
		`{"system":{"id":1,"created_at":"2026-01-01T00:00:00Z"},"meta":{"tags":["a","b"]}}`,
		`{"受付":{"氏名":"山田 太郎","相談":{"種別":["一般","個別"]}}}`,
		`{"a":{"1":{"b":2}},"n":[[1,2],[3]]}`,
		`{"empty":{},"list":[],"nested":{"deeper":{}}}`,
		`{"l1":{"l2":{"l3":{"l4":{"l5":{"l6":{"l7":{"l8":{"l9":"leaf"}}}}}}}}}`,
	}

	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			in := decode(t, doc)
			entries, err := Flatten(in, nil)
			require.NoError(t, err)

			out, err := Unflatten(entries)
			require.NoError(t, err)
			assert.Equal(t, decode(t, doc), out)
		})
	}
}

func TestUnflatten(t *testing.T) {
	tests := []struct {
		name    string
		entries []types.Entry
		want    string
		skipped []string
	}{
		{
			name: "numeric segments build lists",
			entries: []types.Entry{
				{Path: types.Path{"tags", "1"}, Value: "x"},
				{Path: types.Path{"tags", "2"}, Value: "y"},
			},
			want: `{"tags":["x","y"]}`,
		},
		{
			name: "list slots hold objects when paths continue",
			entries: []types.Entry{
				{Path: types.Path{"rows", "2", "v"}, Value: "b"},
			},
			want: `{"rows":[null,{"v":"b"}]}`,
		},
		{
			name: "key against list is skipped",
			entries: []types.Entry{
				{Path: types.Path{"a", "1"}, Value: "x"},
				{Path: types.Path{"a", "b"}, Value: "y"},
			},
			want:    `{"a":["x"]}`,
			skipped: []string{"a.b"},
		},
		{
			name: "marker never clobbers a container",
			entries: []types.Entry{
				{Path: types.Path{"a", "b"}, Value: float64(1)},
				{Path: types.Path{"a"}, Value: types.Marker},
			},
			want: `{"a":{"b":1}}`,
		},
		{
			name: "scalar replaced by container",
			entries: []types.Entry{
				{Path: types.Path{"a"}, Value: "x"},
				{Path: types.Path{"a", "b"}, Value: float64(1)},
			},
			want: `{"a":{"b":1}}`,
		},
		{
			name: "last value wins",
			entries: []types.Entry{
				{Path: types.Path{"a", "b"}, Value: float64(1)},
				{Path: types.Path{"a"}, Value: "flat"},
			},
			want: `{"a":"flat"}`,
		},
		{
			name: "serialized list decoded",
			entries: []types.Entry{
				{Path: types.Path{"a"}, Value: types.List(`[1,"two",false]`)},
			},
			want: `{"a":[1,"two",false]}`,
		},
		{
			name: "malformed list kept as text",
			entries: []types.Entry{
				{Path: types.Path{"a"}, Value: types.List(`[oops]`)},
			},
			want: `{"a":"[oops]"}`,
		},
		{
			name: "empty path ignored",
			entries: []types.Entry{
				{Path: types.Path{}, Value: types.Marker},
				{Path: types.Path{"k"}, Value: "v"},
			},
			want: `{"k":"v"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unflatten(tt.entries)
			assert.Equal(t, decode(t, tt.want), got)

			if len(tt.skipped) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrFormatViolation)

			var ue *types.UnflattenError
			require.True(t, errors.As(err, &ue))
			var keys []string
			for _, p := range ue.Skipped {
				keys = append(keys, p.String())
			}
			assert.Equal(t, tt.skipped, keys)
			assert.True(t, strings.Contains(err.Error(), tt.skipped[0]))
		})
	}
}
