package zarr

import "errors"

// WalkFunc is called for each node during traversal. Returning SkipGroup
// from a group's call skips its children; any other error stops the walk.
type WalkFunc func(n Node) error

// SkipGroup can be returned from a WalkFunc to leave a group's children
// unvisited.
var SkipGroup = errors.New("skip this group")

// Walk visits root and every node beneath it depth-first, children in
// SortNodeNames order. It keeps an explicit stack instead of recursing, so
// deeply nested stores cannot exhaust the call stack.
func Walk(root *Group, fn WalkFunc) error {
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		err := fn(n)
		g, isGroup := n.AsGroup()
		if err == SkipGroup && isGroup {
			continue
		}
		if err != nil {
			return err
		}
		if !isGroup {
			continue
		}

		children, err := g.Children()
		if err != nil {
			return err
		}
		// push in reverse so the first child is visited next
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

// Arrays collects every array beneath root in walk order
func Arrays(root *Group) ([]*Array, error) {
	var arrays []*Array
	err := Walk(root, func(n Node) error {
		if a, ok := n.AsArray(); ok {
			arrays = append(arrays, a)
		}
		return nil
	})
	return arrays, err
}
