package form

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sheetform/internal/memory"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

var quiet = WithCompilerLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

type failingCache struct{}

func (failingCache) Get(string) (string, bool, error)         { return "", false, errors.New("down") }
func (failingCache) Put(string, string, time.Duration) error { return errors.New("down") }

func TestSignature(t *testing.T) {
	a := Signature([][]string{{"A", "B"}})
	assert.Len(t, a, 32)
	assert.Equal(t, a, Signature([][]string{{"A", "B"}}))
	assert.NotEqual(t, a, Signature([][]string{{"A", "C"}}))
	assert.Equal(t, Signature(nil), Signature([][]string{}))
}

func TestCompileUsesCache(t *testing.T) {
	cache := memory.NewCache()
	c := NewCompiler(cache, quiet)
	grid := [][]string{{"A", "B/re:.+"}}

	first, err := c.Compile(grid, false)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.NotNil(t, first.Tree)

	cached, ok, err := cache.Get("form:" + first.Signature)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.HTML, cached)

	second, err := c.Compile(grid, false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Nil(t, second.Tree)
	assert.Equal(t, first.HTML, second.HTML)

	refreshed, err := c.Compile(grid, true)
	require.NoError(t, err)
	assert.False(t, refreshed.Cached)
}

func TestCompileOptionsSeparateCacheEntries(t *testing.T) {
	cache := memory.NewCache()
	grid := [][]string{{"A", "B/re:.+"}}

	_, err := NewCompiler(cache, quiet).Compile(grid, false)
	require.NoError(t, err)

	byID, err := NewCompiler(cache, quiet, WithRenderOptions(RenderOptions{ExportByID: true})).Compile(grid, false)
	require.NoError(t, err)
	assert.False(t, byID.Cached)
	assert.Contains(t, byID.HTML, `data-export="id"`)
}

func TestCompileValidationFailureNotCached(t *testing.T) {
	cache := memory.NewCache()
	c := NewCompiler(cache, quiet)
	grid := [][]string{{"Q", "a/selector:RADIO"}, {"", "b/selector:CHECKBOX"}}

	res, err := c.Compile(grid, false)
	assert.ErrorIs(t, err, types.ErrMixedSelectors)
	assert.Empty(t, res.HTML)
	assert.NotNil(t, res.Tree)

	_, ok, _ := cache.Get("form:" + Signature(grid))
	assert.False(t, ok)
}

func TestCompileIgnoresCacheFailures(t *testing.T) {
	c := NewCompiler(failingCache{}, quiet)
	res, err := c.Compile([][]string{{"A"}}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, res.HTML)
}

func TestCompileWithoutCache(t *testing.T) {
	c := NewCompiler(nil, quiet, WithCacheTTL(time.Minute))
	res, err := c.Compile([][]string{{"A"}}, false)
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestGridFromTable(t *testing.T) {
	g := memory.NewGrid(types.StructureTable)
	require.NoError(t, WriteGridToTable(g, [][]string{
		{" Intake ", "Name/re:.+"},
		{"", "Age", "", "", "", "", "", "", "", "ignored tenth column"},
	}))
	require.NoError(t, g.Set(3, 2, [][]any{{float64(42)}}))

	grid, err := GridFromTable(g)
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Len(t, grid[0], Levels)
	assert.Equal(t, "Intake", grid[0][0])
	assert.Equal(t, "42", grid[2][1])

	empty, err := GridFromTable(memory.NewGrid("empty"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
