package quadtree

import (
	"sync"

	"github.com/san-kum/quadsim/internal/geom"
)

// PointPool recycles leaf storage between per-step builds.
type PointPool struct {
	pool sync.Pool
	size int
}

func NewPointPool(capacity int) *PointPool {
	return &PointPool{
		size: capacity,
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]geom.Point, 0, capacity)
				return &s
			},
		},
	}
}

func (p *PointPool) Get() []geom.Point {
	return (*p.pool.Get().(*[]geom.Point))[:0]
}

// Put drops slices that grew past the pool size (overflow leaves at the
// depth cap).
func (p *PointPool) Put(s []geom.Point) {
	if cap(s) != p.size {
		return
	}
	s = s[:0]
	p.pool.Put(&s)
}
