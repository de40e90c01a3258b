// Package initial generates starting point sets inside a domain.
package initial

import (
	"math"
	"math/rand"

	"github.com/san-kum/quadsim/internal/geom"
)

// Provider fills a domain with n points. Generated points always lie
// inside the domain.
type Provider interface {
	Name() string
	Generate(rng *rand.Rand, n int, domain geom.Bounds) []geom.Point
}

// Uniform scatters points at rest over the whole domain.
type Uniform struct{}

func (Uniform) Name() string { return "uniform" }

func (Uniform) Generate(rng *rand.Rand, n int, domain geom.Bounds) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = geom.NewPoint(i, domain.X+rng.Float64()*domain.W, domain.Y+rng.Float64()*domain.H)
	}
	return pts
}

// Ring places points evenly on a circle with tangential velocity Speed.
type Ring struct {
	Radius float64 // fraction of the half-extent
	Speed  float64
}

func (Ring) Name() string { return "ring" }

func (r Ring) Generate(rng *rand.Rand, n int, domain geom.Bounds) []geom.Point {
	cx, cy := domain.Center()
	radius := r.Radius * 0.5 * math.Min(domain.W, domain.H)

	pts := make([]geom.Point, n)
	for i := range pts {
		angle := float64(i) * 2 * math.Pi / float64(n)
		p := geom.NewPoint(i, cx+radius*math.Cos(angle), cy+radius*math.Sin(angle))
		p.VX = -math.Sin(angle) * r.Speed
		p.VY = math.Cos(angle) * r.Speed
		pts[i] = p
	}
	return pts
}

// Disk is a rotating disk with density falling off from the center.
// Orbital speed grows with the square root of the radius scaled by Spin.
type Disk struct {
	Radius float64
	Spin   float64
}

func (Disk) Name() string { return "disk" }

func (d Disk) Generate(rng *rand.Rand, n int, domain geom.Bounds) []geom.Point {
	cx, cy := domain.Center()
	rmax := d.Radius * 0.5 * math.Min(domain.W, domain.H)

	pts := make([]geom.Point, 0, n)
	for len(pts) < n {
		r := rmax * rng.Float64() * rng.Float64()
		angle := rng.Float64() * 2 * math.Pi
		p := geom.NewPoint(len(pts), cx+r*math.Cos(angle), cy+r*math.Sin(angle))
		v := d.Spin * math.Sqrt(r)
		p.VX = -math.Sin(angle) * v
		p.VY = math.Cos(angle) * v
		if domain.Contains(p) {
			pts = append(pts, p)
		}
	}
	return pts
}

// Clusters draws Count gaussian clumps at random centers, each drifting
// with a random velocity of at most Drift.
type Clusters struct {
	Count  int
	Spread float64 // standard deviation as a fraction of the domain
	Drift  float64
}

func (Clusters) Name() string { return "clusters" }

func (c Clusters) Generate(rng *rand.Rand, n int, domain geom.Bounds) []geom.Point {
	count := max(c.Count, 1)
	type clump struct{ x, y, vx, vy float64 }
	clumps := make([]clump, count)
	for i := range clumps {
		clumps[i] = clump{
			x:  domain.X + domain.W*(0.2+0.6*rng.Float64()),
			y:  domain.Y + domain.H*(0.2+0.6*rng.Float64()),
			vx: (rng.Float64()*2 - 1) * c.Drift,
			vy: (rng.Float64()*2 - 1) * c.Drift,
		}
	}

	pts := make([]geom.Point, 0, n)
	for len(pts) < n {
		k := clumps[len(pts)%count]
		p := geom.NewPoint(len(pts),
			k.x+rng.NormFloat64()*c.Spread*domain.W,
			k.y+rng.NormFloat64()*c.Spread*domain.H)
		p.VX, p.VY = k.vx, k.vy
		if domain.Contains(p) {
			pts = append(pts, p)
		}
	}
	return pts
}
