package form

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

var typePattern = regexp.MustCompile(`^(selector:(RADIO|CHECKBOX|DROPDOWN)|re:.+|display:.+)$`)

// Validate checks the type vocabulary, pattern syntax and selector sibling
// rules over the whole tree and returns every violation found.
func Validate(root *types.Node) types.ValidationErrors {
	var errs types.ValidationErrors
	root.Walk(func(n *types.Node, ancestors []*types.Node) {
		at := titlePath(ancestors, n)
		if n.Type != "" {
			if !typePattern.MatchString(n.Type) {
				errs = append(errs, &types.NodeError{Path: at, Title: n.Title, Type: n.Type, Err: types.ErrInvalidType})
			} else if n.IsPattern() {
				if _, err := regexp.Compile(n.Pattern()); err != nil {
					errs = append(errs, &types.NodeError{
						Path: at, Title: n.Title, Type: n.Type,
						Err: fmt.Errorf("%w: %v", types.ErrInvalidPattern, err),
					})
				}
			}
		}
		errs = append(errs, checkSelectorSiblings(n, at)...)
	})
	return errs
}

func checkSelectorSiblings(n *types.Node, at string) types.ValidationErrors {
	var kinds []string
	seen := map[string]bool{}
	plain := 0
	for _, c := range n.Children {
		if !c.IsSelector() {
			plain++
			continue
		}
		if !seen[c.Type] {
			seen[c.Type] = true
			kinds = append(kinds, c.Type)
		}
	}
	if len(kinds) == 0 {
		return nil
	}
	var errs types.ValidationErrors
	if len(kinds) > 1 {
		errs = append(errs, &types.NodeError{Path: at, Title: n.Title, Type: strings.Join(kinds, ", "), Err: types.ErrMixedSelectors})
	}
	if plain > 0 {
		errs = append(errs, &types.NodeError{Path: at, Title: n.Title, Err: types.ErrNonSelectorSibling})
	}
	return errs
}

// AssignIDs sets the ID of every declared node to the escaped title chain
// from its top-level ancestor. The synthetic ROOT takes no part. Ids that
// collide are reported; the first holder keeps the id.
func AssignIDs(root *types.Node) types.ValidationErrors {
	var errs types.ValidationErrors
	used := make(map[string]types.NodeID)
	var visit func(n *types.Node, chain types.NodeID, ancestors []*types.Node)
	visit = func(n *types.Node, chain types.NodeID, ancestors []*types.Node) {
		if n.Title == "" {
			return
		}
		chain = append(chain[:len(chain):len(chain)], n.Title)
		n.ID = chain.String()
		if prev, ok := used[n.ID]; ok {
			err := fmt.Errorf("%w %q", types.ErrDuplicateID, n.ID)
			if !slices.Equal(prev, chain) {
				err = fmt.Errorf("%w %q (also the id of %s)", types.ErrDuplicateID, n.ID, strings.Join(prev, " > "))
			}
			errs = append(errs, &types.NodeError{Path: titlePath(ancestors, n), Title: n.Title, Err: err})
		} else {
			used[n.ID] = chain
		}
		next := append(ancestors[:len(ancestors):len(ancestors)], n)
		for _, c := range n.Children {
			visit(c, chain, next)
		}
	}
	if root.IsSyntheticRoot() {
		for _, c := range root.Children {
			visit(c, nil, nil)
		}
	} else {
		visit(root, nil, nil)
	}
	return errs
}

// Build parses a text grid into a tree with ids assigned and validates it.
// The tree is returned even when it has violations so callers can report
// them alongside it; the error is then types.ValidationErrors.
func Build(grid [][]string) (*types.Node, error) {
	root, err := BuildTree(ParseGrid(grid))
	if err != nil {
		return nil, err
	}
	errs := append(Validate(root), AssignIDs(root)...)
	if len(errs) > 0 {
		return root, errs
	}
	return root, nil
}

func titlePath(ancestors []*types.Node, n *types.Node) string {
	titles := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		if a.IsSyntheticRoot() {
			continue
		}
		titles = append(titles, a.Title)
	}
	titles = append(titles, n.Title)
	return strings.Join(titles, " > ")
}
