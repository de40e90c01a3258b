// Package force approximates gravitational acceleration on a point by
// walking a quadtree with the Barnes-Hut acceptance criterion.
//
// Branches that are small relative to their distance from the point
// (size/distance < theta) act as a single mass at their anchor. Others are
// opened and their children are visited in the next round. Leaves are
// summed exactly, point by point, skipping the point itself.
//
// The walk is breadth-first over two worklists that are swapped every
// round, so stack use does not grow with tree depth. An Evaluator only
// reads the tree and can be shared by concurrent callers.
package force

import (
	"math"
	"sync"

	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/quadtree"
)

type Evaluator struct {
	cfg   Config
	soft2 float64
	rad2  float64
	lists sync.Pool
}

type worklists struct {
	current, next []*quadtree.Node
}

func New(cfg Config) *Evaluator {
	e := &Evaluator{
		cfg:   cfg,
		soft2: cfg.Softening * cfg.Softening,
		rad2:  cfg.CollisionRadius * cfg.CollisionRadius,
	}
	e.lists.New = func() interface{} {
		return &worklists{
			current: make([]*quadtree.Node, 0, 64),
			next:    make([]*quadtree.Node, 0, 64),
		}
	}
	return e
}

func (e *Evaluator) Config() Config { return e.cfg }

// Sample is the outcome of one walk.
type Sample struct {
	AX, AY float64
	// Near counts exact point interactions, Far accepted branches and
	// Opened branches expanded into their children.
	Near, Far, Opened int
}

// Acceleration returns the net acceleration on p from the tree at root.
func (e *Evaluator) Acceleration(p geom.Point, root *quadtree.Node) (float64, float64) {
	s := e.Evaluate(p, root)
	return s.AX, s.AY
}

// Apply adds the acceleration over dt to p's velocity.
func (e *Evaluator) Apply(p *geom.Point, root *quadtree.Node, dt float64) Sample {
	s := e.Evaluate(*p, root)
	p.VX += s.AX * dt
	p.VY += s.AY * dt
	return s
}

func (e *Evaluator) Evaluate(p geom.Point, root *quadtree.Node) Sample {
	var s Sample
	if root == nil {
		return s
	}

	wl := e.lists.Get().(*worklists)
	wl.current = append(wl.current[:0], root)
	wl.next = wl.next[:0]

	for len(wl.current) > 0 {
		for _, n := range wl.current {
			if n.Mass == 0 {
				continue
			}
			switch n.Kind() {
			case quadtree.KindBranch:
				ax, ay, ok := e.far(p, n)
				if ok {
					s.AX += ax
					s.AY += ay
					s.Far++
					continue
				}
				br, _ := n.Branch()
				wl.next = append(wl.next, br.Children[:]...)
				s.Opened++
			case quadtree.KindLeaf:
				l, _ := n.Leaf()
				for _, q := range l.Points {
					if q.ID == p.ID {
						continue
					}
					ax, ay := e.pair(p, q)
					s.AX += ax
					s.AY += ay
					s.Near++
				}
			}
		}
		wl.current, wl.next = wl.next, wl.current[:0]
	}

	e.lists.Put(wl)
	return s
}

// Opens reports whether the walk must expand branch n for a point at
// (px, py).
func (e *Evaluator) Opens(n *quadtree.Node, px, py float64) bool {
	cx, cy := e.anchor(n)
	return !e.accepts(n, geom.Distance(px, py, cx, cy))
}

func (e *Evaluator) accepts(n *quadtree.Node, dist float64) bool {
	if dist == 0 {
		return false
	}
	return e.size(n.Bounds)/dist < e.cfg.Theta
}

func (e *Evaluator) far(p geom.Point, n *quadtree.Node) (float64, float64, bool) {
	cx, cy := e.anchor(n)
	if !e.accepts(n, geom.Distance(p.X, p.Y, cx, cy)) {
		return 0, 0, false
	}
	ax, ay := e.pull(p.X, p.Y, cx, cy, float64(n.Mass))
	return ax, ay, true
}

func (e *Evaluator) anchor(n *quadtree.Node) (float64, float64) {
	if e.cfg.UseCenterOfMass {
		return n.CenterOfMass()
	}
	return n.Bounds.Center()
}

func (e *Evaluator) size(b geom.Bounds) float64 {
	switch e.cfg.SizeMode {
	case SizeWidth:
		return b.W
	case SizeHeight:
		return b.H
	}
	return b.MaxSide()
}

// pull is the softened inverse-square acceleration toward mass m at
// (qx, qy). The squared distance is floored at MinDistSqrd.
func (e *Evaluator) pull(px, py, qx, qy, m float64) (float64, float64) {
	dx, dy := qx-px, qy-py
	r2 := dx*dx + dy*dy + e.soft2
	if r2 < e.cfg.MinDistSqrd {
		r2 = e.cfg.MinDistSqrd
	}
	s := e.cfg.G * m / (r2 * math.Sqrt(r2))
	return dx * s, dy * s
}

// pair is the near-field interaction between two unit-mass points:
// gravity plus, inside the collision radius, a push away from the pair's
// midpoint that grows linearly as the points close in.
func (e *Evaluator) pair(p, q geom.Point) (float64, float64) {
	ax, ay := e.pull(p.X, p.Y, q.X, q.Y, 1)
	if e.rad2 == 0 || e.cfg.CollisionStrength == 0 {
		return ax, ay
	}

	d2 := geom.DistanceSqrd(q.X, q.Y, p.X, p.Y)
	if d2 >= e.rad2 || d2 == 0 {
		return ax, ay
	}
	r := math.Sqrt(d2)
	mx, my := (p.X+q.X)/2, (p.Y+q.Y)/2
	push := e.cfg.CollisionStrength * (1 - r/e.cfg.CollisionRadius)
	// (p - mid) has length r/2
	ax += (p.X - mx) / (r / 2) * push
	ay += (p.Y - my) / (r / 2) * push
	return ax, ay
}
