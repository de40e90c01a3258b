// Package quadtree implements the adaptive region quadtree rebuilt every
// simulation step.
//
// A [Tree] starts as a single empty leaf covering the simulation domain.
// Points are inserted one at a time; a leaf that is full when a new point
// arrives is converted in place into a [Branch] with four quarter-size
// leaves, its points are redistributed and the new point is inserted
// again. Node mass counts the points in the subtree and is updated on the
// way down, never recomputed.
//
// Points outside the root bounds are rejected. This is how bodies leave
// the simulation; it is not an error.
package quadtree

import (
	"fmt"

	"github.com/san-kum/quadsim/internal/geom"
)

const (
	DefaultCapacity = 8
	DefaultMaxDepth = 48
)

// Config is fixed for the lifetime of a tree.
type Config struct {
	Capacity int
	// MaxDepth stops subdivision. Leaves at this depth may exceed
	// Capacity, which only happens with more than Capacity coincident
	// points.
	MaxDepth int
}

func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity, MaxDepth: DefaultMaxDepth}
}

func (c Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", c.MaxDepth)
	}
	return nil
}

type Tree struct {
	Root *Node

	cfg  Config
	pool *PointPool
}

// New returns an empty tree over bounds. pool may be nil; pass the same
// pool to consecutive builds to reuse leaf storage.
func New(bounds geom.Bounds, cfg Config, pool *PointPool) *Tree {
	if pool == nil || pool.size != cfg.Capacity {
		pool = NewPointPool(cfg.Capacity)
	}
	return &Tree{
		Root: newLeaf(bounds),
		cfg:  cfg,
		pool: pool,
	}
}

func (t *Tree) Config() Config { return t.cfg }

func (t *Tree) Mass() int {
	if t.Root == nil {
		return 0
	}
	return t.Root.Mass
}

// Insert adds a copy of p. It reports false, leaving the tree unchanged,
// when p lies outside the root bounds.
func (t *Tree) Insert(p geom.Point) bool {
	return t.InsertAt(t.Root, p)
}

// InsertAt inserts into the subtree rooted at n, rejecting p when n does
// not contain it. Masses of n's ancestors are not updated, so outside of
// the root this is only useful for building detached subtrees.
func (t *Tree) InsertAt(n *Node, p geom.Point) bool {
	if n == nil || !n.Bounds.Contains(p) {
		return false
	}
	t.place(n, p, 1)
	return true
}

// InsertAll inserts pts in order and returns how many were accepted.
func (t *Tree) InsertAll(pts []geom.Point) int {
	inserted := 0
	for _, p := range pts {
		if t.Insert(p) {
			inserted++
		}
	}
	return inserted
}

// place assumes n contains p.
func (t *Tree) place(n *Node, p geom.Point, depth int) {
	for {
		switch pl := n.payload.(type) {
		case *Branch:
			n.addMass(p)
			n = pl.Children[n.Bounds.Quadrant(p)]
			depth++
		case *Leaf:
			if len(pl.Points) < t.cfg.Capacity || depth >= t.cfg.MaxDepth {
				if pl.Points == nil {
					pl.Points = t.pool.Get()
				}
				pl.Points = append(pl.Points, p)
				n.addMass(p)
				return
			}
			t.subdivide(n, pl, depth)
		}
	}
}

// subdivide turns the full leaf n into a branch and redistributes its
// points. The caller then continues inserting into n as a branch.
func (t *Tree) subdivide(n *Node, l *Leaf, depth int) {
	br := &Branch{}
	for _, q := range geom.Quadrants {
		br.Children[q] = newLeaf(n.Bounds.Quarter(q))
	}
	n.payload = br

	for _, p := range l.Points {
		t.place(br.Children[n.Bounds.Quadrant(p)], p, depth+1)
	}
	t.pool.Put(l.Points)
	l.Points = nil
}

// Release hands leaf storage back to the pool. The tree is unusable
// afterwards.
func (t *Tree) Release() {
	if t.Root == nil {
		return
	}
	t.Walk(func(n *Node, _ int) bool {
		if l, ok := n.Leaf(); ok && l.Points != nil {
			t.pool.Put(l.Points)
			l.Points = nil
		}
		return true
	})
	t.Root = nil
}
