package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
)

// Evaluate runs one candidate and returns its result.
type Evaluate func(ctx context.Context, params map[string]float64) (*dynamo.Result, error)

// GridSearch tries every combination of the given values and keeps the
// one with the lowest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Size is the number of combinations.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates the grid in row-major order. Failed candidates are
// recorded and skipped; an error is returned only when none succeeds or
// ctx is done.
func (g *GridSearch) Search(ctx context.Context, eval Evaluate, metricName string) (map[string]float64, float64, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	trials := make([]Trial, 0, g.Size())

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		t := Trial{Params: params}
		result, err := eval(ctx, params)
		switch {
		case err != nil:
			t.Err = err
		default:
			val, ok := result.Metrics[metricName]
			if !ok {
				t.Err = fmt.Errorf("metric %q not recorded", metricName)
				break
			}
			t.Value = val
			if val < best {
				best, bestParams = val, params
			}
		}
		trials = append(trials, t)
	})
	if err != nil {
		return bestParams, best, trials, err
	}
	if bestParams == nil {
		errs := make([]error, 0, len(trials))
		for _, t := range trials {
			errs = append(errs, t.Err)
		}
		return nil, 0, trials, fmt.Errorf("no candidate succeeded: %w", errors.Join(errs...))
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
