package quadtree_test

import (
	"math/rand"
	"sort"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/quadtree"
)

var domain = geom.NewBounds(-1, -1, 2, 2)

func randomPoints(n int, seed int64) []geom.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = geom.NewPoint(i, rng.Float64()*2-1, rng.Float64()*2-1)
	}
	return pts
}

func ids(pts []geom.Point) []int {
	out := make([]int, len(pts))
	for i, p := range pts {
		out[i] = p.ID
	}
	sort.Ints(out)
	return out
}

// leafMembership maps each non-empty leaf region to the sorted IDs it holds.
func leafMembership(t *quadtree.Tree) map[geom.Bounds][]int {
	m := make(map[geom.Bounds][]int)
	for _, n := range t.Leaves() {
		l, _ := n.Leaf()
		m[n.Bounds] = ids(l.Points)
	}
	return m
}

var _ = Describe("Tree", func() {
	var cfg quadtree.Config

	BeforeEach(func() {
		cfg = quadtree.Config{Capacity: 1, MaxDepth: quadtree.DefaultMaxDepth}
	})

	Context("with capacity 1 and three points in distinct quadrants", func() {
		It("subdivides the root exactly once", func() {
			tree := quadtree.New(domain, cfg, nil)
			Expect(tree.Insert(geom.NewPoint(0, -0.5, -0.5))).To(BeTrue())
			Expect(tree.Insert(geom.NewPoint(1, 0.5, 0.5))).To(BeTrue())
			Expect(tree.Insert(geom.NewPoint(2, -0.5, 0.5))).To(BeTrue())

			Expect(tree.Root.IsBranch()).To(BeTrue())
			Expect(tree.Root.Mass).To(Equal(3))
			Expect(tree.MaxDepth()).To(Equal(2))

			br, ok := tree.Root.Branch()
			Expect(ok).To(BeTrue())
			occupied := 0
			for _, c := range br.Children {
				Expect(c.IsBranch()).To(BeFalse())
				Expect(c.Mass).To(BeNumerically("<=", 1))
				occupied += c.Mass
			}
			Expect(occupied).To(Equal(3))

			tl, _ := br.Children[geom.TopLeft].Leaf()
			Expect(ids(tl.Points)).To(Equal([]int{0}))
			bl, _ := br.Children[geom.BottomLeft].Leaf()
			Expect(ids(bl.Points)).To(Equal([]int{2}))
			brc, _ := br.Children[geom.BottomRight].Leaf()
			Expect(ids(brc.Points)).To(Equal([]int{1}))
			Expect(br.Children[geom.TopRight].Mass).To(BeZero())
		})
	})

	Context("with a point outside the root bounds", func() {
		It("silently rejects it", func() {
			tree := quadtree.New(domain, cfg, nil)
			Expect(tree.Insert(geom.NewPoint(0, 2.0, 2.0))).To(BeFalse())
			Expect(tree.Mass()).To(BeZero())
			Expect(tree.Flatten(nil)).To(BeEmpty())
		})

		It("rejects points on the far edge", func() {
			tree := quadtree.New(domain, cfg, nil)
			Expect(tree.Insert(geom.NewPoint(0, 1.0, 0))).To(BeFalse())
			Expect(tree.Insert(geom.NewPoint(1, -1.0, -1.0))).To(BeTrue())
			Expect(tree.Mass()).To(Equal(1))
		})
	})

	Context("with random points", func() {
		var pts []geom.Point

		BeforeEach(func() {
			cfg.Capacity = 4
			pts = randomPoints(2000, 7)
			pts = append(pts, geom.NewPoint(len(pts), 5, 5), geom.NewPoint(len(pts)+1, -3, 0.2))
		})

		It("conserves mass for in-bounds points", func() {
			tree := quadtree.New(domain, cfg, nil)
			inserted := tree.InsertAll(pts)
			Expect(inserted).To(Equal(2000))
			Expect(tree.Mass()).To(Equal(2000))
		})

		It("keeps every node mass equal to its subtree point count", func() {
			tree := quadtree.New(domain, cfg, nil)
			tree.InsertAll(pts)

			tree.Walk(func(n *quadtree.Node, _ int) bool {
				if l, ok := n.Leaf(); ok {
					Expect(n.Mass).To(Equal(len(l.Points)))
					return false
				}
				br, _ := n.Branch()
				sum := 0
				for _, c := range br.Children {
					sum += c.Mass
				}
				Expect(n.Mass).To(Equal(sum))
				return true
			})
		})

		It("never overfills a leaf and partitions every branch", func() {
			tree := quadtree.New(domain, cfg, nil)
			tree.InsertAll(pts)

			tree.Walk(func(n *quadtree.Node, _ int) bool {
				if l, ok := n.Leaf(); ok {
					Expect(len(l.Points)).To(BeNumerically("<=", cfg.Capacity))
					for _, p := range l.Points {
						Expect(n.Bounds.Contains(p)).To(BeTrue())
					}
					return false
				}
				br, _ := n.Branch()
				area := 0.0
				for _, q := range geom.Quadrants {
					c := br.Children[q]
					Expect(c.Bounds).To(Equal(n.Bounds.Quarter(q)))
					area += c.Bounds.Area()
				}
				Expect(area).To(BeNumerically("~", n.Bounds.Area(), 1e-15))
				return true
			})
		})

		It("flattens to exactly the inserted points", func() {
			tree := quadtree.New(domain, cfg, nil)
			tree.InsertAll(pts)

			flat := tree.Flatten(nil)
			want := make([]int, 2000)
			for i := range want {
				want[i] = i
			}
			Expect(cmp.Diff(want, ids(flat))).To(BeEmpty())
		})

		It("is independent of insertion order", func() {
			a := quadtree.New(domain, cfg, nil)
			a.InsertAll(pts)

			shuffled := append([]geom.Point(nil), pts...)
			rand.New(rand.NewSource(99)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			b := quadtree.New(domain, cfg, nil)
			b.InsertAll(shuffled)

			Expect(b.Mass()).To(Equal(a.Mass()))
			Expect(cmp.Diff(leafMembership(a), leafMembership(b))).To(BeEmpty())
		})
	})

	Context("with coincident points", func() {
		It("stops subdividing at the depth cap", func() {
			cfg = quadtree.Config{Capacity: 2, MaxDepth: 6}
			tree := quadtree.New(domain, cfg, nil)
			for i := 0; i < 5; i++ {
				Expect(tree.Insert(geom.NewPoint(i, 0.25, 0.25))).To(BeTrue())
			}
			Expect(tree.Mass()).To(Equal(5))
			Expect(tree.MaxDepth()).To(Equal(6))
			Expect(tree.Stats().MaxOccupancy).To(Equal(5))
		})

		It("keeps two coincident points in one leaf when capacity allows", func() {
			cfg.Capacity = 2
			tree := quadtree.New(domain, cfg, nil)
			tree.Insert(geom.NewPoint(0, 0, 0))
			tree.Insert(geom.NewPoint(1, 0, 0))
			Expect(tree.Root.IsBranch()).To(BeFalse())
			Expect(tree.Mass()).To(Equal(2))
		})
	})

	Describe("Stats", func() {
		It("counts the nodes of a single subdivision", func() {
			tree := quadtree.New(domain, cfg, nil)
			tree.Insert(geom.NewPoint(0, -0.5, -0.5))
			tree.Insert(geom.NewPoint(1, 0.5, 0.5))

			s := tree.Stats()
			Expect(s.Nodes).To(Equal(5))
			Expect(s.Branches).To(Equal(1))
			Expect(s.Leaves).To(Equal(4))
			Expect(s.EmptyLeaves).To(Equal(2))
			Expect(s.MaxDepth).To(Equal(2))
			Expect(s.Mass).To(Equal(2))
		})
	})

	Describe("CenterOfMass", func() {
		It("averages the positions in the subtree", func() {
			tree := quadtree.New(domain, cfg, nil)
			tree.Insert(geom.NewPoint(0, -0.5, -0.5))
			tree.Insert(geom.NewPoint(1, 0.5, 0.5))
			tree.Insert(geom.NewPoint(2, 0.5, -0.5))

			x, y := tree.Root.CenterOfMass()
			Expect(x).To(BeNumerically("~", 0.5/3, 1e-12))
			Expect(y).To(BeNumerically("~", -0.5/3, 1e-12))
		})
	})

	Describe("Release", func() {
		It("drops the root and reuses storage in the next build", func() {
			pool := quadtree.NewPointPool(cfg.Capacity)
			tree := quadtree.New(domain, cfg, pool)
			tree.InsertAll(randomPoints(50, 1))
			tree.Release()
			Expect(tree.Root).To(BeNil())
			Expect(tree.Mass()).To(BeZero())

			next := quadtree.New(domain, cfg, pool)
			Expect(next.InsertAll(randomPoints(50, 2))).To(Equal(50))
		})
	})
})
