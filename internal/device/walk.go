package device

import "fmt"

// WalkFunc is called for every visited node with its immediate ancestor (nil
// for the tree entry point) and depth. Returning false skips the node's
// children.
type WalkFunc func(d, parent Device, depth int) bool

// Walk visits d and its descendants depth-first, pre-order, children in
// canonical order.
func Walk(d Device, fn WalkFunc) {
	walk(d, nil, 0, fn)
}

func walk(d, parent Device, depth int, fn WalkFunc) {
	if !fn(d, parent, depth) {
		return
	}
	c, ok := d.(Container)
	if !ok {
		return
	}
	for child := range c.Children().All() {
		walk(child, d, depth+1, fn)
	}
}

// Count returns the number of nodes in the tree rooted at d.
func Count(d Device) int {
	n := 0
	Walk(d, func(Device, Device, int) bool {
		n++
		return true
	})
	return n
}

// Validate checks the structural invariants of a host tree: the entry point is
// a Root and no Root appears below it.
func Validate(tree Device) error {
	if tree == nil {
		return fmt.Errorf("%w: empty tree", ErrInvariant)
	}
	if _, ok := tree.(Root); !ok {
		return fmt.Errorf("%w: tree entry point is %s, not Root", ErrInvariant, tree.Kind())
	}

	var err error
	Walk(tree, func(d, parent Device, _ int) bool {
		if err != nil {
			return false
		}
		if _, ok := d.(Root); ok && parent != nil {
			err = fmt.Errorf("%w: Root nested under %s", ErrInvariant, parent)
			return false
		}
		return true
	})
	return err
}
