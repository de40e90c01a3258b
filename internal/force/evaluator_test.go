package force_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/quadsim/internal/force"
	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/quadtree"
)

var domain = geom.NewBounds(-1, -1, 2, 2)

func build(pts []geom.Point, capacity int) *quadtree.Tree {
	tree := quadtree.New(domain, quadtree.Config{Capacity: capacity, MaxDepth: quadtree.DefaultMaxDepth}, nil)
	tree.InsertAll(pts)
	return tree
}

func uniform(n int, seed int64) []geom.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = geom.NewPoint(i, rng.Float64()*2-1, rng.Float64()*2-1)
	}
	return pts
}

func treeAccelerations(e *force.Evaluator, tree *quadtree.Tree, pts []geom.Point) ([]float64, []float64) {
	ax := make([]float64, len(pts))
	ay := make([]float64, len(pts))
	for i, p := range pts {
		ax[i], ay[i] = e.Acceleration(p, tree.Root)
	}
	return ax, ay
}

var _ = Describe("Evaluator", func() {
	var cfg force.Config

	BeforeEach(func() {
		cfg = force.DefaultConfig()
		cfg.G = 1
		cfg.Softening = 0
	})

	Context("with two points", func() {
		It("matches the inverse-square law and is symmetric", func() {
			cfg.Theta = 100
			e := force.New(cfg)
			a := geom.NewPoint(0, -0.3, 0.1)
			b := geom.NewPoint(1, 0.5, -0.2)
			tree := build([]geom.Point{a, b}, 2)

			ax, ay := e.Acceleration(a, tree.Root)
			bx, by := e.Acceleration(b, tree.Root)

			r := geom.Distance(a.X, a.Y, b.X, b.Y)
			Expect(math.Hypot(ax, ay)).To(BeNumerically("~", 1/(r*r), 1e-12))
			Expect(bx).To(BeNumerically("~", -ax, 1e-12))
			Expect(by).To(BeNumerically("~", -ay, 1e-12))

			// pulled toward b
			Expect(ax).To(BeNumerically(">", 0))
			Expect(ay).To(BeNumerically("<", 0))
		})

		It("applies softening", func() {
			cfg.Softening = 0.1
			e := force.New(cfg)
			a := geom.NewPoint(0, 0, 0)
			b := geom.NewPoint(1, 0.1, 0)
			tree := build([]geom.Point{a, b}, 2)

			ax, _ := e.Acceleration(a, tree.Root)
			want := 0.1 / math.Pow(0.01+0.01, 1.5)
			Expect(ax).To(BeNumerically("~", want, 1e-9))
		})
	})

	Context("with a single point", func() {
		It("exerts no force on itself", func() {
			e := force.New(cfg)
			p := geom.NewPoint(7, 0.2, 0.2)
			tree := build([]geom.Point{p}, 4)

			s := e.Evaluate(p, tree.Root)
			Expect(s.AX).To(BeZero())
			Expect(s.AY).To(BeZero())
			Expect(s.Near).To(BeZero())
		})
	})

	Context("with coincident points", func() {
		It("stays finite", func() {
			e := force.New(cfg)
			a := geom.NewPoint(0, 0, 0)
			b := geom.NewPoint(1, 0, 0)
			tree := build([]geom.Point{a, b}, 2)

			ax, ay := e.Acceleration(a, tree.Root)
			Expect(math.IsNaN(ax) || math.IsInf(ax, 0)).To(BeFalse())
			Expect(math.IsNaN(ay) || math.IsInf(ay, 0)).To(BeFalse())
		})

		It("bounds nearly coincident pulls by the distance floor", func() {
			e := force.New(cfg)
			a := geom.NewPoint(0, 0, 0)
			b := geom.NewPoint(1, 1e-300, 0)
			tree := build([]geom.Point{a, b}, 2)

			ax, ay := e.Acceleration(a, tree.Root)
			Expect(math.Hypot(ax, ay)).To(BeNumerically("<=", cfg.G/cfg.MinDistSqrd))
		})
	})

	Context("with many points", func() {
		var pts []geom.Point
		var tree *quadtree.Tree

		BeforeEach(func() {
			cfg.Softening = 0.01
			pts = uniform(1000, 3)
			tree = build(pts, 8)
		})

		It("is exact when theta is zero", func() {
			cfg.Theta = 0
			e := force.New(cfg)
			ax, ay := treeAccelerations(e, tree, pts)
			rx, ry := e.Direct(pts)
			Expect(force.RelativeError(ax, ay, rx, ry)).To(BeNumerically("<", 1e-9))
		})

		It("approximates direct summation around the center of mass", func() {
			cfg.UseCenterOfMass = true
			e := force.New(cfg)
			ax, ay := treeAccelerations(e, tree, pts)
			rx, ry := e.Direct(pts)
			Expect(force.RelativeError(ax, ay, rx, ry)).To(BeNumerically("<", 0.05))
		})

		It("approximates direct summation around the geometric center", func() {
			e := force.New(cfg)
			ax, ay := treeAccelerations(e, tree, pts)
			rx, ry := e.Direct(pts)
			Expect(force.RelativeError(ax, ay, rx, ry)).To(BeNumerically("<", 0.1))
		})

		It("summarizes distant branches instead of visiting every point", func() {
			e := force.New(cfg)
			s := e.Evaluate(pts[0], tree.Root)
			Expect(s.Far).To(BeNumerically(">", 0))
			Expect(s.Near).To(BeNumerically("<", len(pts)-1))
			Expect(s.Opened).To(BeNumerically(">", 0))
		})

		It("visits every other point once when theta is zero", func() {
			cfg.Theta = 0
			e := force.New(cfg)
			s := e.Evaluate(pts[0], tree.Root)
			Expect(s.Near).To(Equal(len(pts) - 1))
			Expect(s.Far).To(BeZero())
		})

		It("updates velocity in place", func() {
			e := force.New(cfg)
			p := pts[10]
			ax, ay := e.Acceleration(p, tree.Root)
			e.Apply(&p, tree.Root, 0.5)
			Expect(p.VX).To(BeNumerically("~", ax*0.5, 1e-15))
			Expect(p.VY).To(BeNumerically("~", ay*0.5, 1e-15))
			Expect(p.X).To(Equal(pts[10].X))
		})
	})

	Describe("Opens", func() {
		It("always opens a branch that contains the point", func() {
			e := force.New(cfg)
			tree := build(uniform(100, 5), 1)
			Expect(tree.Root.IsBranch()).To(BeTrue())
			Expect(e.Opens(tree.Root, 0.3, -0.2)).To(BeTrue())
		})

		It("accepts a small branch far away", func() {
			e := force.New(cfg)
			tree := quadtree.New(geom.NewBounds(0, 0, 0.1, 0.1), quadtree.Config{Capacity: 1, MaxDepth: 8}, nil)
			tree.Insert(geom.NewPoint(0, 0.01, 0.01))
			tree.Insert(geom.NewPoint(1, 0.09, 0.09))
			Expect(e.Opens(tree.Root, 10, 10)).To(BeFalse())
		})
	})

	Describe("collision response", func() {
		It("pushes close points apart", func() {
			cfg.G = 0
			cfg.CollisionRadius = 0.05
			cfg.CollisionStrength = 1
			e := force.New(cfg)
			a := geom.NewPoint(0, 0, 0)
			b := geom.NewPoint(1, 0.01, 0)
			tree := build([]geom.Point{a, b}, 2)

			ax, ay := e.Acceleration(a, tree.Root)
			Expect(ax).To(BeNumerically("~", -(1 - 0.01/0.05), 1e-12))
			Expect(ay).To(BeZero())

			bx, _ := e.Acceleration(b, tree.Root)
			Expect(bx).To(BeNumerically("~", -ax, 1e-12))
		})

		It("ignores points outside the radius", func() {
			cfg.G = 0
			cfg.CollisionRadius = 0.05
			cfg.CollisionStrength = 1
			e := force.New(cfg)
			a := geom.NewPoint(0, 0, 0)
			b := geom.NewPoint(1, 0.5, 0)
			tree := build([]geom.Point{a, b}, 2)

			ax, ay := e.Acceleration(a, tree.Root)
			Expect(ax).To(BeZero())
			Expect(ay).To(BeZero())
		})
	})
})
