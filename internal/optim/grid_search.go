package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

var ErrNoCandidate = errors.New("optim: no grid point could be evaluated")

// Evaluator scores one parameter assignment; lower is better.
type Evaluator func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameter names for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: parameter %q has no candidate values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, workers: 1}, nil
}

// WithWorkers sets how many grid points are evaluated concurrently.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	if n > 0 {
		g.workers = n
	}
	return g
}

// Points enumerates the grid in lexicographic order of the ranges.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.enumerate(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		g.enumerate(depth+1, next, out)
	}
}

// Search evaluates every grid point and returns the one with the lowest
// score. Points whose evaluation fails or scores NaN are skipped. Ties go to
// the earliest point in grid order.
func (g *GridSearch) Search(ctx context.Context, eval Evaluator) (map[string]float64, float64, error) {
	points := g.Points()
	scores := make([]float64, len(points))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, p := range points {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			v, err := eval(egctx, p)
			if err != nil || math.IsNaN(v) {
				scores[i] = math.Inf(1)
				return nil
			}
			scores[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, math.Inf(1), err
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })
	best := order[0]
	if math.IsInf(scores[best], 1) {
		return nil, math.Inf(1), ErrNoCandidate
	}
	return points[best], scores[best], nil
}
