package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func setupWorkbook(t *testing.T) *Workbook {
	t.Helper()
	w := NewWorkbook()
	require.NoError(t, w.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { w.Detach() })
	return w
}

func TestGridGetSet(t *testing.T) {
	g := NewGrid("t")

	require.NoError(t, g.Set(2, 3, [][]any{{"a", 1.5}, {true}}))

	got, err := g.Get(1, 1, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"", "", "", ""},
		{"", "", "a", 1.5},
		{"", "", true, ""},
	}, got)

	lastRow, _ := g.LastRow()
	lastCol, _ := g.LastColumn()
	assert.Equal(t, 3, lastRow)
	assert.Equal(t, 4, lastCol)
}

func TestGridBlanking(t *testing.T) {
	g := NewGrid("t")
	require.NoError(t, g.Set(1, 1, [][]any{{"x", "y"}, {"z"}}))
	require.NoError(t, g.Set(2, 1, [][]any{{nil}}))
	require.NoError(t, g.Set(1, 2, [][]any{{""}}))

	lastRow, _ := g.LastRow()
	lastCol, _ := g.LastColumn()
	assert.Equal(t, 1, lastRow)
	assert.Equal(t, 1, lastCol)

	require.NoError(t, g.Clear())
	lastRow, _ = g.LastRow()
	assert.Zero(t, lastRow)
}

func TestGridInvalidRange(t *testing.T) {
	g := NewGrid("t")
	_, err := g.Get(0, 1, 1, 1)
	assert.ErrorIs(t, err, types.ErrInvalidRange)
	assert.ErrorIs(t, g.Set(1, 0, [][]any{{"x"}}), types.ErrInvalidRange)
	assert.ErrorIs(t, g.SetHeaderRows(-1), types.ErrInvalidRange)
}

func TestGridHookAndSnapshot(t *testing.T) {
	var changes []string
	g := NewGridWithHook("hooked", func(name string) { changes = append(changes, name) })

	require.NoError(t, g.Set(1, 1, [][]any{{"a"}}))
	require.NoError(t, g.SetHeaderRows(1))
	assert.Equal(t, []string{"hooked", "hooked"}, changes)

	snap := g.Snapshot()
	assert.Equal(t, [][]any{{"a"}}, snap)

	other := NewGrid("copy")
	other.Load(snap, 1)
	got, _ := other.Get(1, 1, 1, 1)
	assert.Equal(t, "a", got[0][0])
	n, _ := other.HeaderRows()
	assert.Equal(t, 1, n)
}

func TestWorkbookTables(t *testing.T) {
	w := setupWorkbook(t)

	_, err := w.Table("records")
	assert.ErrorIs(t, err, types.ErrTableNotFound)

	a, err := w.CreateTable("records")
	require.NoError(t, err)
	b, err := w.CreateTable("records")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = w.CreateTable("structure")
	require.NoError(t, err)
	_, err = w.CreateTable("bad/name")
	assert.ErrorIs(t, err, types.ErrInvalidTableName)

	names, err := w.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"records", "structure"}, names)
}

func TestWorkbookLifecycle(t *testing.T) {
	w := NewWorkbook()
	_, err := w.Table("x")
	assert.ErrorIs(t, err, types.ErrWorkbookDetached)

	assert.ErrorIs(t, w.Attach(types.Config{}), types.ErrBackendEmpty)
	require.NoError(t, w.Attach(types.Config{Backend: types.BackendMemory}))
	assert.ErrorIs(t, w.Attach(types.Config{Backend: types.BackendMemory}), types.ErrAlreadyAttached)

	require.NoError(t, w.Detach())
	require.NoError(t, w.Detach())
	_, err = w.CreateTable("x")
	assert.ErrorIs(t, err, types.ErrWorkbookDetached)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCacheWithClock(func() time.Time { return now })

	require.NoError(t, c.Put("k", "v", time.Minute))
	require.NoError(t, c.Put("forever", "f", 0))

	v, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get("k")
	assert.False(t, ok)

	v, ok, _ = c.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, "f", v)

	_, ok, _ = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheEachAndRestore(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCacheWithClock(func() time.Time { return now })

	c.Restore("b", "2", time.Time{})
	c.Restore("a", "1", now.Add(time.Hour))
	c.Restore("stale", "x", now.Add(-time.Second))
	require.NoError(t, c.Put("short", "s", time.Second))
	now = now.Add(time.Second)

	var keys []string
	c.Each(func(key, value string, expires time.Time) {
		keys = append(keys, key)
		if key == "b" {
			assert.True(t, expires.IsZero())
		}
	})
	assert.Equal(t, []string{"a", "b"}, keys)
}
