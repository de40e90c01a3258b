package force

import (
	"math"

	"github.com/san-kum/quadsim/internal/geom"
)

// Direct computes exact accelerations for every point by summing all
// pairs with the same force law as the tree walk. O(N²); used as the
// accuracy reference.
func (e *Evaluator) Direct(pts []geom.Point) (ax, ay []float64) {
	n := len(pts)
	ax = make([]float64, n)
	ay = make([]float64, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if pts[i].ID == pts[j].ID {
				continue
			}
			fx, fy := e.pair(pts[i], pts[j])
			ax[i] += fx
			ay[i] += fy
			ax[j] -= fx
			ay[j] -= fy
		}
	}
	return ax, ay
}

// RelativeError is the RMS error of (ax, ay) against the reference,
// normalized by the RMS reference magnitude.
func RelativeError(ax, ay, refX, refY []float64) float64 {
	var errSum, refSum float64
	for i := range refX {
		dx, dy := ax[i]-refX[i], ay[i]-refY[i]
		errSum += dx*dx + dy*dy
		refSum += refX[i]*refX[i] + refY[i]*refY[i]
	}
	if refSum == 0 {
		return 0
	}
	return math.Sqrt(errSum / refSum)
}
