package form

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileGrid(t *testing.T, grid [][]string, opts RenderOptions) string {
	t.Helper()
	tree, err := Build(grid)
	require.NoError(t, err)
	return Render(tree, opts)
}

func TestRenderSelectorGroups(t *testing.T) {
	out := compileGrid(t, [][]string{
		{"Intake", "Kind", "General/selector:RADIO", "Topic/re:.+"},
		{"", "", "Specific/selector:RADIO"},
		{"", "Extras", "Phone/selector:CHECKBOX"},
		{"", "", "Mail/selector:CHECKBOX"},
		{"", "Ward", "East/selector:DROPDOWN", "Bed/re:^\\d+$"},
		{"", "", "West/selector:DROPDOWN"},
	}, RenderOptions{})

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `<div class="block" data-node-id="Intake"><h2>Intake</h2>`)
	assert.Equal(t, 2, strings.Count(out, `type="radio"`))
	assert.Equal(t, 2, strings.Count(out, `type="checkbox"`))
	assert.Equal(t, 1, strings.Count(out, `data-role="opt-select"`))
	assert.Contains(t, out, `name="r_g_0"`)
	assert.Contains(t, out, `data-node-id="Intake_Kind_General_Topic"`)
	assert.Contains(t, out, `data-pattern="^\d+$"`)
	assert.Contains(t, out, `data-export="label"`)
}

func TestRenderDropdownTargetsExist(t *testing.T) {
	out := compileGrid(t, [][]string{
		{"F", "Ward", "East/selector:DROPDOWN", "Bed/re:.+"},
		{"", "", "West/selector:DROPDOWN"},
	}, RenderOptions{})

	targets := regexp.MustCompile(`<option value="[^"]*" data-target="([^"]+)"`).FindAllStringSubmatch(out, -1)
	require.Len(t, targets, 2)
	for _, m := range targets {
		assert.Contains(t, out, `<div id="`+m[1]+`" class="opt-children"`)
	}
}

func TestRenderEscapesText(t *testing.T) {
	out := compileGrid(t, [][]string{{`<b>&<\/b>`, `"q"/display:x/<hint>`}}, RenderOptions{Title: "T<1>"})
	assert.Contains(t, out, "<h2>&lt;b&gt;&amp;&lt;/b&gt;</h2>")
	assert.Contains(t, out, `title="&lt;hint&gt;"`)
	assert.Contains(t, out, "<title>T&lt;1&gt;</title>")
	assert.NotContains(t, out, "<b>&</b>")
}

func TestRenderSyntheticRoot(t *testing.T) {
	out := compileGrid(t, [][]string{{"A"}, {"B"}}, RenderOptions{})
	assert.Equal(t, 2, strings.Count(out, `<div class="block"`))
	assert.NotContains(t, out, "<h2>ROOT</h2>")
}

func TestRenderDeclaredRoot(t *testing.T) {
	out := compileGrid(t, [][]string{{"ROOT", "Name"}}, RenderOptions{})
	assert.Contains(t, out, "<h2>ROOT</h2>")
	assert.Equal(t, 1, strings.Count(out, `<div class="block"`))
}

func TestRenderExportByID(t *testing.T) {
	out := compileGrid(t, [][]string{{"A", "B/re:.+"}}, RenderOptions{ExportByID: true, Lang: "ja"})
	assert.Contains(t, out, `data-export="id"`)
	assert.Contains(t, out, `<html lang="ja">`)
}

func TestRenderEmbedsScript(t *testing.T) {
	out := compileGrid(t, [][]string{{"A"}}, RenderOptions{})
	for _, fn := range []string{"function resetAll", "function toJson", "function bindToggles", "function downloadJson"} {
		assert.Contains(t, out, fn)
	}
	assert.Contains(t, out, ".hint-badge")
}
