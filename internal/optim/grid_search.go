package optim

import (
	"context"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/armsim/internal/experiment"
)

// Trial is one evaluated parameter set.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Evaluate runs one candidate and returns the metric to minimize.
type Evaluate func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	logger     *zap.Logger
}

func NewGridSearch(params []string, ranges [][]float64, logger *zap.Logger) *GridSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridSearch{paramNames: params, ranges: ranges, workers: 1, logger: logger.Named("tune")}
}

// WithWorkers sets how many candidates are evaluated at once. Evaluate must
// be safe for concurrent use when n > 1.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = max(1, n)
	return g
}

// Candidates enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) Candidates() []map[string]float64 {
	out := []map[string]float64{{}}
	for i, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(out)*len(g.ranges[i]))
		for _, prev := range out {
			for _, v := range g.ranges[i] {
				p := make(map[string]float64, len(prev)+1)
				for k, pv := range prev {
					p[k] = pv
				}
				p[name] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// Search evaluates the grid and returns the best parameters, their value
// and every evaluated trial in grid order. Failed candidates are skipped;
// if all fail their errors are combined. A done context stops launching
// new candidates.
func (g *GridSearch) Search(ctx context.Context, eval Evaluate) (map[string]float64, float64, []Trial, error) {
	candidates := g.Candidates()
	results := make([]*Trial, len(candidates))

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i, params := range candidates {
		i, params := i, params
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			val, err := eval(ctx, params)
			if err != nil {
				g.logger.Warn("candidate failed", zap.Any("params", params), zap.Error(err))
			} else {
				g.logger.Debug("candidate", zap.Any("params", params), zap.Float64("value", val))
			}
			results[i] = &Trial{Params: params, Value: val, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial
	var errs error
	for _, tr := range results {
		if tr == nil {
			continue
		}
		trials = append(trials, *tr)
		if tr.Err != nil {
			errs = multierr.Append(errs, tr.Err)
			continue
		}
		if bestParams == nil || tr.Value < best {
			best, bestParams = tr.Value, tr.Params
		}
	}

	if bestParams == nil {
		if errs == nil {
			errs = ctx.Err()
		}
		return nil, best, trials, errs
	}
	return bestParams, best, trials, nil
}

// DriveGains builds an Evaluate that runs a headless experiment with the
// candidate "stiffness" and "damping" applied to every drive and reports
// the named metric.
func DriveGains(base experiment.Config, reg *experiment.Registry, metric string, logger *zap.Logger) Evaluate {
	return func(ctx context.Context, params map[string]float64) (_ float64, err error) {
		cfg := base
		if k, ok := params["stiffness"]; ok {
			cfg.Scene.Stiffness = k
		}
		if d, ok := params["damping"]; ok {
			cfg.Scene.Damping = d
		}
		cfg.Metrics = append([]string{metric}, base.Metrics...)

		exp := experiment.New(cfg, reg, logger)
		if err := exp.Setup(); err != nil {
			return 0, err
		}
		defer func() { err = multierr.Append(err, exp.Close()) }()

		result, _, err := exp.Run(ctx)
		if err != nil {
			return 0, err
		}
		v := result.Metrics[metric]
		if math.IsNaN(v) {
			return math.Inf(1), nil
		}
		return v, nil
	}
}
