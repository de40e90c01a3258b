// Package geom holds the 2D primitives shared by the tree and the force
// engine: mass-points and axis-aligned bounds.
package geom

import "math"

// Point is a unit-mass body. ID identifies the body across steps; the tree
// stores copies, so identity cannot be taken from the address.
type Point struct {
	ID     int
	X, Y   float64
	VX, VY float64
}

func NewPoint(id int, x, y float64) Point {
	return Point{ID: id, X: x, Y: y}
}

func (p Point) Speed() float64 {
	return math.Hypot(p.VX, p.VY)
}

func (p Point) IsValid() bool {
	for _, v := range [4]float64{p.X, p.Y, p.VX, p.VY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Quadrant indexes children of a subdivided region.
type Quadrant int

const (
	TopLeft Quadrant = iota
	TopRight
	BottomLeft
	BottomRight
)

var Quadrants = [4]Quadrant{TopLeft, TopRight, BottomLeft, BottomRight}

func (q Quadrant) String() string {
	switch q {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	}
	return "unknown"
}

// Bounds is an axis-aligned rectangle with origin (X, Y). "Top" is the low-Y
// half, matching raster row order.
type Bounds struct {
	X, Y float64
	W, H float64
}

func NewBounds(x, y, w, h float64) Bounds {
	return Bounds{X: x, Y: y, W: w, H: h}
}

// Contains is half-open: x0 <= x < x0+w and y0 <= y < y0+h.
func (b Bounds) Contains(p Point) bool {
	return b.X <= p.X && p.X < b.X+b.W &&
		b.Y <= p.Y && p.Y < b.Y+b.H
}

func (b Bounds) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

func (b Bounds) Area() float64 { return b.W * b.H }

func (b Bounds) MaxSide() float64 { return math.Max(b.W, b.H) }

func (b Bounds) Empty() bool { return !(b.W > 0 && b.H > 0) }

// Quarter returns the bounds of quadrant q. Far edges are derived from the
// parent's far edge so that siblings share their split line exactly.
func (b Bounds) Quarter(q Quadrant) Bounds {
	mx, my := b.Center()
	right, bottom := b.X+b.W, b.Y+b.H

	var c Bounds
	switch q {
	case TopLeft, BottomLeft:
		c.X, c.W = b.X, mx-b.X
	default:
		c.X, c.W = mx, right-mx
	}
	switch q {
	case TopLeft, TopRight:
		c.Y, c.H = b.Y, my-b.Y
	default:
		c.Y, c.H = my, bottom-my
	}
	return c
}

// Quadrant picks the child region for p by comparing against the split
// lines. Any p contained in b maps to exactly one quadrant.
func (b Bounds) Quadrant(p Point) Quadrant {
	mx, my := b.Center()
	q := TopLeft
	if p.X >= mx {
		q |= TopRight
	}
	if p.Y >= my {
		q |= BottomLeft
	}
	return q
}

// Distance is the Euclidean norm of the offset (x-a, y-b).
func Distance(x, y, a, b float64) float64 {
	return math.Sqrt(DistanceSqrd(x, y, a, b))
}

func DistanceSqrd(x, y, a, b float64) float64 {
	dx, dy := x-a, y-b
	return dx*dx + dy*dy
}
