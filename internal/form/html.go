package form

import (
	_ "embed"
	"fmt"
	"html"
	"strings"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

//go:embed assets/form.css
var formCSS string

//go:embed assets/form.js
var formJS string

// indentStep is the left margin added per depth level, in pixels.
const indentStep = 16

// RenderOptions controls page chrome and the export format.
type RenderOptions struct {
	Title       string `json:"title" yaml:"title"`
	Lang        string `json:"lang" yaml:"lang"`
	ResetLabel  string `json:"reset_label" yaml:"reset_label"`
	ExportLabel string `json:"export_label" yaml:"export_label"`

	// ExportByID keys exported answers by node id instead of label text, so
	// repeated labels stay distinct.
	ExportByID bool `json:"export_by_id" yaml:"export_by_id"`
}

// DefaultRenderOptions returns the options used when none are given.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Title:       "Form",
		Lang:        "en",
		ResetLabel:  "Reset",
		ExportLabel: "Export JSON",
	}
}

func (o RenderOptions) withDefaults() RenderOptions {
	d := DefaultRenderOptions()
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.Lang == "" {
		o.Lang = d.Lang
	}
	if o.ResetLabel == "" {
		o.ResetLabel = d.ResetLabel
	}
	if o.ExportLabel == "" {
		o.ExportLabel = d.ExportLabel
	}
	return o
}

// renderer accumulates markup and hands out sequential element ids.
type renderer struct {
	b   strings.Builder
	seq int
}

func (r *renderer) next(prefix string) string {
	id := fmt.Sprintf("%s_%d", prefix, r.seq)
	r.seq++
	return id
}

func (r *renderer) printf(format string, args ...any) {
	fmt.Fprintf(&r.b, format, args...)
}

// Render emits a complete HTML document for a validated tree. Top-level
// nodes become blocks; the children of a synthetic ROOT are each top level.
func Render(root *types.Node, opts RenderOptions) string {
	opts = opts.withDefaults()
	esc := html.EscapeString
	export := "label"
	if opts.ExportByID {
		export = "id"
	}

	r := &renderer{}
	r.printf(`<!DOCTYPE html><html lang="%s"><head><meta charset="utf-8">`, esc(opts.Lang))
	r.printf(`<meta name="viewport" content="width=device-width, initial-scale=1.0">`)
	r.printf(`<title>%s</title><style>%s</style></head>`, esc(opts.Title), formCSS)
	r.printf(`<body><div class="container"><div class="header"><div class="title">%s</div>`, esc(opts.Title))
	r.printf(`<div class="actions"><button class="btn" id="btn-reset" type="button">%s</button>`, esc(opts.ResetLabel))
	r.printf(`<button class="btn" id="btn-export" type="button">%s</button></div></div>`, esc(opts.ExportLabel))
	r.printf(`<div class="blocks" id="blocks" data-export="%s">`, export)

	if root.IsSyntheticRoot() {
		for _, c := range root.Children {
			r.node(c, 0)
		}
	} else {
		r.node(root, 0)
	}

	r.printf(`</div><script>%s</script></div></body></html>`, formJS)
	return r.b.String()
}

func (r *renderer) node(n *types.Node, depth int) {
	esc := html.EscapeString
	if depth == 0 {
		r.printf(`<div class="block" data-node-id="%s">`, esc(n.ID))
		if n.Title != "" {
			r.printf(`<h2>%s</h2>`, esc(n.Title))
		}
		if n.Hint != "" {
			r.printf(`<div class="block-hint">%s</div>`, esc(n.Hint))
		}
		r.children(n, depth)
		r.printf(`</div>`)
		return
	}

	if kind, ok := n.SelectorGroup(); ok {
		r.selectorGroup(n, kind, depth)
		return
	}

	switch {
	case n.IsLabel():
		r.openStep(n, depth)
		r.printf(`</div>`)
		r.children(n, depth)
	case n.IsPattern():
		r.openStep(n, depth)
		r.printf(`<input type="text" data-pattern="%s">`, esc(n.Pattern()))
		r.printf(`</div>`)
		r.children(n, depth)
	default:
		r.children(n, depth)
	}
}

func (r *renderer) children(n *types.Node, depth int) {
	for _, c := range n.Children {
		r.node(c, depth+1)
	}
}

// openStep writes the opening of a step and its label.
func (r *renderer) openStep(n *types.Node, depth int) {
	esc := html.EscapeString
	r.printf(`<div class="step" data-node-id="%s" style="margin-left:%dpx">`, esc(n.ID), depth*indentStep)
	r.printf(`<div class="label">%s`, esc(n.Title))
	if n.Hint != "" {
		r.printf(` <span class="hint-badge" title="%s">hint</span>`, esc(n.Hint))
	}
	r.printf(`</div>`)
}

// selectorGroup renders n's children as options. Each option gates a hidden
// container holding the option's own children.
func (r *renderer) selectorGroup(n *types.Node, kind string, depth int) {
	esc := html.EscapeString
	group := r.next("g")
	r.openStep(n, depth)

	containers := make([]string, len(n.Children))
	for i := range n.Children {
		containers[i] = "cont_" + r.next("opt")
	}

	switch kind {
	case types.SelectorRadio, types.SelectorCheckbox:
		inputType, role := "radio", "opt-radio"
		name := ""
		if kind == types.SelectorCheckbox {
			inputType, role = "checkbox", "opt-checkbox"
		} else {
			name = fmt.Sprintf(` name="r_%s"`, group)
		}
		r.printf(`<div class="options" data-group="%s">`, group)
		for i, opt := range n.Children {
			r.printf(`<label class="chip"><input type="%s"%s value="%s" data-role="%s" data-group="%s" data-target="%s" data-node-id="%s">%s</label>`,
				inputType, name, esc(opt.Title), role, group, containers[i], esc(opt.ID), esc(opt.Title))
			r.optionContainer(opt, group, containers[i], depth)
		}
		r.printf(`</div>`)
	case types.SelectorDropdown:
		r.printf(`<select id="sel_%s" data-role="opt-select" data-group="%s"><option value=""></option>`, group, group)
		for i, opt := range n.Children {
			r.printf(`<option value="%s" data-target="%s" data-node-id="%s">%s</option>`,
				esc(opt.Title), containers[i], esc(opt.ID), esc(opt.Title))
		}
		r.printf(`</select>`)
		for i, opt := range n.Children {
			r.optionContainer(opt, group, containers[i], depth)
		}
	}
	r.printf(`</div>`)
}

func (r *renderer) optionContainer(opt *types.Node, group, id string, depth int) {
	r.printf(`<div id="%s" class="opt-children" data-group="%s" style="display:none;">`, id, group)
	r.node(opt, depth+1)
	r.printf(`</div>`)
}
