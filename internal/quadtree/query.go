package quadtree

import "github.com/san-kum/quadsim/internal/geom"

// MaxDepth is 1 for a leaf, else 1 + the deepest child. Diagnostics only.
func MaxDepth(n *Node) int {
	if n == nil {
		return 0
	}
	br, ok := n.Branch()
	if !ok {
		return 1
	}
	deepest := 0
	for _, c := range br.Children {
		deepest = max(deepest, MaxDepth(c))
	}
	return deepest + 1
}

func (t *Tree) MaxDepth() int { return MaxDepth(t.Root) }

// Walk visits nodes depth-first, children in quadrant order, with an
// explicit stack. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t.Root == nil {
		return
	}
	type frame struct {
		n     *Node
		depth int
	}
	stack := []frame{{t.Root, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(f.n, f.depth) {
			continue
		}
		if br, ok := f.n.Branch(); ok {
			for i := len(br.Children) - 1; i >= 0; i-- {
				stack = append(stack, frame{br.Children[i], f.depth + 1})
			}
		}
	}
}

// Flatten appends every stored point to dst in leaf order. The result
// holds exactly the points that were accepted by Insert.
func (t *Tree) Flatten(dst []geom.Point) []geom.Point {
	if dst == nil {
		dst = make([]geom.Point, 0, t.Mass())
	}
	t.Walk(func(n *Node, _ int) bool {
		if n.Mass == 0 {
			return false
		}
		if l, ok := n.Leaf(); ok {
			dst = append(dst, l.Points...)
		}
		return true
	})
	return dst
}

// Leaves returns the non-empty leaves in walk order.
func (t *Tree) Leaves() []*Node {
	var leaves []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Mass == 0 {
			return false
		}
		if !n.IsBranch() {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

type Stats struct {
	Nodes        int
	Branches     int
	Leaves       int
	EmptyLeaves  int
	MaxDepth     int
	MaxOccupancy int
	Mass         int
}

func (t *Tree) Stats() Stats {
	var s Stats
	s.Mass = t.Mass()
	t.Walk(func(n *Node, depth int) bool {
		s.Nodes++
		s.MaxDepth = max(s.MaxDepth, depth)
		if l, ok := n.Leaf(); ok {
			s.Leaves++
			if len(l.Points) == 0 {
				s.EmptyLeaves++
			}
			s.MaxOccupancy = max(s.MaxOccupancy, len(l.Points))
			return false
		}
		s.Branches++
		return true
	})
	return s
}
