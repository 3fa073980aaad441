// Package optim searches parameter space: a theta sweep that trades tree
// accuracy for speed, and a generic grid search over simulator parameters.
package optim

import (
	"context"
	"errors"
	"math"

	"github.com/san-kum/nbodysim/internal/experiment"
)

var ErrNoCandidate = errors.New("optim: no grid point completed")

// Build prepares a runner for one grid point. The caller owns closing the
// runner's simulator once the returned cleanup runs.
type Build func(params map[string]float64) (*experiment.Runner, func(), error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs every grid point for cfg and returns the parameters that
// minimise metricName.
func (g *GridSearch) Search(ctx context.Context, build Build, cfg experiment.Config, metricName string) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, cfg, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build Build,
	cfg experiment.Config,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		runner, cleanup, err := build(current)
		if err != nil {
			return nil
		}
		defer cleanup()

		result, err := runner.Run(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}

		val, ok := result.Metrics[metricName]
		if ok && val < *best {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, build, cfg, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
