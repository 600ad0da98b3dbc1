// Package solver implements the steepest descent method driving the
// strong-Wolfe line search.
package solver

import (
	"context"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/ThatGeoGuy/argmin/internal/optimization"
	"github.com/ThatGeoGuy/argmin/internal/optimization/linesearch"
)

// Config configures a gradient descent run.
type Config struct {
	// InitialPoint is the starting iterate.
	InitialPoint []float64
	// MaxIterations bounds the number of outer iterations.
	MaxIterations int
	// GradientTolerance stops the run once the Euclidean norm of the
	// gradient falls below it.
	GradientTolerance float64
	// InitialStep is the trial step offered to the line search on each
	// iteration.
	InitialStep float64
	// LineSearchIterations bounds the internal iterations of each line
	// search; the engine imposes no ceiling of its own.
	LineSearchIterations int
}

// GradientDescent performs successive strong-Wolfe line searches along
// the negative gradient direction.
type GradientDescent struct {
	obj    optimization.Objective
	engine *linesearch.Engine
	cfg    Config
	logger *zap.Logger

	best    *optimization.Solution
	history []optimization.Evaluation
	cancel  context.CancelFunc
}

var _ optimization.Optimizer = (*GradientDescent)(nil)

// New creates a gradient descent solver for obj using engine for the
// step-length selection.
func New(obj optimization.Objective, engine *linesearch.Engine, cfg Config) (*GradientDescent, error) {
	if len(cfg.InitialPoint) == 0 {
		return nil, optimization.NewError(optimization.KindConfiguration,
			"solver: initial point is empty")
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 500
	}
	if cfg.GradientTolerance <= 0 {
		cfg.GradientTolerance = 1e-6
	}
	if cfg.InitialStep <= 0 {
		cfg.InitialStep = 1.0
	}
	if cfg.LineSearchIterations < 1 {
		cfg.LineSearchIterations = 50
	}
	return &GradientDescent{
		obj:     obj,
		engine:  engine,
		cfg:     cfg,
		history: make([]optimization.Evaluation, 0, cfg.MaxIterations),
	}, nil
}

// SetLogger attaches a logger for per-iteration progress.
func (gd *GradientDescent) SetLogger(l *zap.Logger) { gd.logger = l }

// Optimize runs the descent until the gradient tolerance is met, the
// iteration budget is exhausted, the line search breaks down, or ctx
// is cancelled. Cancellation is honored between outer iterations only;
// each line search runs to completion once started.
func (gd *GradientDescent) Optimize(ctx context.Context) (*optimization.Result, error) {
	ctx, gd.cancel = context.WithCancel(ctx)
	defer gd.cancel()

	// Each call restarts from the configured initial point; state from
	// a previous run does not carry over.
	gd.best = nil
	gd.history = make([]optimization.Evaluation, 0, gd.cfg.MaxIterations)

	x := append([]float64(nil), gd.cfg.InitialPoint...)
	f, err := gd.obj.Evaluate(x)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation,
			"solver: initial cost evaluation failed")
	}
	grad, err := gd.obj.Gradient(x)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation,
			"solver: initial gradient evaluation failed")
	}

	dir := make([]float64, len(x))
	reason := "iteration budget exhausted"
	converged := false

	var i int
	for i = 0; i < gd.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		gnorm := floats.Norm(grad, 2)
		gd.record(i, x, f, gnorm)

		if gd.logger != nil {
			gd.logger.Debug("gradient descent iteration",
				zap.Int("iteration", i),
				zap.Float64("value", f),
				zap.Float64("gradient_norm", gnorm))
		}

		if gnorm <= gd.cfg.GradientTolerance {
			reason = "gradient tolerance reached"
			converged = true
			break
		}

		// Steepest descent direction.
		copy(dir, grad)
		floats.Scale(-1, dir)

		res, err := gd.engine.Search(x, f, grad, dir, gd.cfg.InitialStep, gd.cfg.LineSearchIterations)
		if err != nil {
			return nil, err
		}
		if res.Code == linesearch.Breakdown {
			reason = "line search breakdown"
			break
		}

		copy(x, res.Point)
		f = res.Value
		copy(grad, res.Gradient)
	}

	return &optimization.Result{
		BestSolution: gd.best,
		History:      gd.history,
		Iterations:   i,
		Converged:    converged,
		Reason:       reason,
	}, nil
}

// BestSolution returns the best solution found so far.
func (gd *GradientDescent) BestSolution() *optimization.Solution { return gd.best }

// History returns the per-iteration evaluation history.
func (gd *GradientDescent) History() []optimization.Evaluation { return gd.history }

// Stop cancels a running optimization.
func (gd *GradientDescent) Stop() {
	if gd.cancel != nil {
		gd.cancel()
	}
}

func (gd *GradientDescent) record(iter int, x []float64, f, gnorm float64) {
	if gd.best == nil || f < gd.best.Value {
		gd.best = &optimization.Solution{
			Parameters: append([]float64(nil), x...),
			Value:      f,
		}
	}
	gd.history = append(gd.history, optimization.Evaluation{
		Iteration: iter,
		Solution: &optimization.Solution{
			Parameters: append([]float64(nil), x...),
			Value:      f,
		},
		GradientNorm: gnorm,
	})
}
