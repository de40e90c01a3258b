package quadtree

import "github.com/san-kum/quadsim/internal/geom"

// payload is either *Leaf or *Branch.
type payload interface {
	kind() Kind
}

type Kind int

const (
	KindLeaf Kind = iota
	KindBranch
)

func (k Kind) String() string {
	if k == KindBranch {
		return "branch"
	}
	return "leaf"
}

// Leaf holds up to the tree capacity of point copies.
type Leaf struct {
	Points []geom.Point
}

func (*Leaf) kind() Kind { return KindLeaf }

// Branch owns exactly four children in geom.Quadrants order.
type Branch struct {
	Children [4]*Node
}

func (*Branch) kind() Kind { return KindBranch }

// Node is one region of the tree. Mass is the number of points stored in
// the subtree and is maintained during insertion.
type Node struct {
	Bounds geom.Bounds
	Mass   int

	sumX, sumY float64
	payload    payload
}

func newLeaf(b geom.Bounds) *Node {
	return &Node{Bounds: b, payload: &Leaf{}}
}

func (n *Node) Kind() Kind { return n.payload.kind() }

func (n *Node) IsBranch() bool { return n.payload.kind() == KindBranch }

func (n *Node) Leaf() (*Leaf, bool) {
	l, ok := n.payload.(*Leaf)
	return l, ok
}

func (n *Node) Branch() (*Branch, bool) {
	b, ok := n.payload.(*Branch)
	return b, ok
}

// CenterOfMass of the subtree. Empty nodes report their geometric center.
func (n *Node) CenterOfMass() (float64, float64) {
	if n.Mass == 0 {
		return n.Bounds.Center()
	}
	m := float64(n.Mass)
	return n.sumX / m, n.sumY / m
}

func (n *Node) addMass(p geom.Point) {
	n.Mass++
	n.sumX += p.X
	n.sumY += p.Y
}
