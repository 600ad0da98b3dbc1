package linesearch

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/ThatGeoGuy/argmin/internal/optimization"
)

// Code reports why a search terminated. All codes are reported
// outcomes, not implementation failures.
type Code int

const (
	// Converged means the returned step satisfies the strong Wolfe
	// conditions.
	Converged Code = 1
	// IntervalTooSmall means the bracketing interval shrank below the
	// step tolerance before the conditions were met.
	IntervalTooSmall Code = 2
	// StepAtMin means the search stalled at the minimum step.
	StepAtMin Code = 4
	// StepAtMax means the search stalled at the maximum step, which
	// still satisfies the sufficient decrease condition.
	StepAtMax Code = 5
	// Breakdown means rounding errors or a degenerate bracket prevented
	// further progress; the returned step is the best one found.
	Breakdown Code = 6
)

// String returns a short description of the code.
func (c Code) String() string {
	switch c {
	case Converged:
		return "converged"
	case IntervalTooSmall:
		return "interval too small"
	case StepAtMin:
		return "step at minimum"
	case StepAtMax:
		return "step at maximum"
	case Breakdown:
		return "breakdown"
	default:
		return "unknown"
	}
}

// Result is the accepted point of a terminated search.
type Result struct {
	// Step is the accepted step length.
	Step float64
	// Point is the parameter vector at the accepted step.
	Point []float64
	// Value and Gradient are the objective data at Point.
	Value    float64
	Gradient []float64
	// Code reports why the search terminated.
	Code Code
	// Iterations is the number of objective evaluations performed.
	Iterations int
}

// Engine searches along a supplied descent direction for a step length
// satisfying the strong Wolfe conditions. A single Engine may be
// reused across searches; each Search call carries its own state, so
// independent searches on separate engines may run concurrently.
type Engine struct {
	cfg    Config
	obj    optimization.Objective
	logger *zap.Logger
}

// NewEngine returns an engine evaluating obj under cfg.
func NewEngine(obj optimization.Objective, cfg Config) *Engine {
	return &Engine{cfg: cfg, obj: obj}
}

// SetLogger attaches a logger for per-iteration debug traces.
func (e *Engine) SetLogger(l *zap.Logger) { e.logger = l }

// searchRun is the transient state of one Search invocation.
type searchRun struct {
	x0  []float64 // initial point
	dir []float64 // descent direction

	finit  float64 // objective value at step 0
	dginit float64 // slope at step 0
	gtest  float64 // c1 * dginit

	iv       Interval
	trial    Point
	stage1   bool
	rejected bool // the previous interval update rejected its inputs

	x    []float64 // scratch: x0 + step*dir
	grad []float64 // gradient at x
}

// Search looks for a step along direction starting at x0, where value
// and gradient are the objective data at x0. The initial trial step
// must be positive and maxIter bounds the number of internal
// iterations; the engine imposes no ceiling of its own.
//
// A terminated search returns a Result whose Code reports the outcome,
// including the non-fatal breakdown conditions. Errors are reserved
// for invalid inputs, objective failures and an exhausted iteration
// budget.
func (e *Engine) Search(x0 []float64, value float64, gradient, direction []float64, initStep float64, maxIter int) (*Result, error) {
	run, err := e.start(x0, value, gradient, direction, initStep)
	if err != nil {
		return nil, err
	}
	for i := 0; i < maxIter; i++ {
		res, err := run.step(e)
		if err != nil {
			return nil, err
		}
		if res != nil {
			res.Iterations = i + 1
			if e.logger != nil {
				e.logger.Debug("line search terminated",
					zap.Stringer("code", res.Code),
					zap.Float64("step", res.Step),
					zap.Float64("value", res.Value),
					zap.Int("iterations", res.Iterations))
			}
			return res, nil
		}
		if e.logger != nil {
			e.logger.Debug("line search iteration",
				zap.Int("iteration", i),
				zap.Float64("trial", run.trial.Step),
				zap.Bool("bracketed", run.iv.Bracketed))
		}
	}
	return nil, optimization.NewErrorf(optimization.KindBreakdown,
		"linesearch: no acceptable step within %d iterations", maxIter)
}

// SearchFrom is Search with the initial cost and gradient computed
// through the objective instead of being supplied by the caller.
func (e *Engine) SearchFrom(x0, direction []float64, initStep float64, maxIter int) (*Result, error) {
	value, err := e.obj.Evaluate(x0)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation,
			"linesearch: initial cost evaluation failed")
	}
	gradient, err := e.obj.Gradient(x0)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation,
			"linesearch: initial gradient evaluation failed")
	}
	return e.Search(x0, value, gradient, direction, initStep, maxIter)
}

// start validates the inputs and initializes the run state. It fails
// before any objective evaluation.
func (e *Engine) start(x0 []float64, value float64, gradient, direction []float64, initStep float64) (*searchRun, error) {
	switch {
	case len(x0) == 0:
		return nil, optimization.NewError(optimization.KindConfiguration,
			"linesearch: initial point is empty")
	case len(gradient) != len(x0):
		return nil, optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: gradient length %d does not match point length %d", len(gradient), len(x0))
	case len(direction) != len(x0):
		return nil, optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: direction length %d does not match point length %d", len(direction), len(x0))
	case initStep <= 0:
		return nil, optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: initial step must be positive, got %v", initStep)
	}

	dginit := floats.Dot(gradient, direction)
	if dginit >= 0 {
		return nil, optimization.NewErrorf(optimization.KindPrecondition,
			"linesearch: direction is not a descent direction (initial slope %v)", dginit)
	}

	origin := Point{Step: 0, Value: value, Slope: dginit}
	width := e.cfg.stepMax - e.cfg.stepMin
	run := &searchRun{
		x0:     x0,
		dir:    direction,
		finit:  value,
		dginit: dginit,
		gtest:  e.cfg.c1 * dginit,
		iv: Interval{
			Low:       origin,
			High:      origin,
			Width:     width,
			PrevWidth: 2 * width,
		},
		trial:  Point{Step: initStep, Value: math.NaN(), Slope: math.NaN()},
		stage1: true,
		x:      make([]float64, len(x0)),
		grad:   make([]float64, len(x0)),
	}
	return run, nil
}

// step performs one internal iteration: position the trial step,
// evaluate the objective there, test for termination and, when not
// terminal, delegate to UpdateStep for the next trial. It returns a
// non-nil Result on termination.
func (r *searchRun) step(e *Engine) (*Result, error) {
	// Bounds of the current interval of uncertainty.
	var stmin, stmax float64
	if r.iv.Bracketed {
		stmin, stmax = r.iv.Bounds()
	} else {
		stmin = r.iv.Low.Step
		stmax = r.trial.Step + e.cfg.growth*(r.trial.Step-r.iv.Low.Step)
	}

	// The trial step must respect the configured bounds.
	r.trial.Step = math.Max(r.trial.Step, e.cfg.stepMin)
	r.trial.Step = math.Min(r.trial.Step, e.cfg.stepMax)

	// If no further progress is possible, evaluate at the best step
	// obtained so far.
	if (r.iv.Bracketed && (r.trial.Step <= stmin || r.trial.Step >= stmax)) ||
		(r.iv.Bracketed && stmax-stmin <= e.cfg.stepTol*stmax) ||
		r.rejected {
		r.trial.Step = r.iv.Low.Step
	}

	floats.AddScaledTo(r.x, r.x0, r.trial.Step, r.dir)
	f, err := e.obj.Evaluate(r.x)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation,
			"linesearch: objective evaluation failed")
	}
	grad, err := e.obj.Gradient(r.x)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation,
			"linesearch: gradient evaluation failed")
	}
	copy(r.grad, grad)
	dg := floats.Dot(r.dir, r.grad)
	r.trial.Value, r.trial.Slope = f, dg

	ftest := r.finit + r.trial.Step*r.gtest

	var code Code
	switch {
	case (r.iv.Bracketed && (r.trial.Step <= stmin || r.trial.Step >= stmax)) || r.rejected:
		code = Breakdown
	case r.trial.Step == e.cfg.stepMax && f <= ftest && dg <= r.gtest:
		code = StepAtMax
	case r.trial.Step == e.cfg.stepMin && (f > ftest || dg >= r.gtest):
		code = StepAtMin
	case r.iv.Bracketed && stmax-stmin <= e.cfg.stepTol*stmax:
		code = IntervalTooSmall
	case f <= ftest && math.Abs(dg) <= e.cfg.c2*(-r.dginit):
		code = Converged
	}
	if code != 0 {
		return r.result(code), nil
	}

	// In the first stage the interval tracks a minimizer of the
	// modified function psi(t) = f(t) - f(0) - c1*t*f'(0). Leave the
	// stage once the sufficient decrease holds and the slope is no
	// longer strongly negative.
	if r.stage1 && f <= ftest && dg >= math.Min(e.cfg.c1, e.cfg.c2)*r.dginit {
		r.stage1 = false
	}

	var caseCode int
	if r.stage1 && f <= r.iv.Low.Value && f > ftest {
		// Work on psi: shift values and slopes before updating the
		// interval, undo the shift on the stored endpoints afterwards.
		shifted := r.iv
		shifted.Low.Value -= shifted.Low.Step * r.gtest
		shifted.Low.Slope -= r.gtest
		shifted.High.Value -= shifted.High.Step * r.gtest
		shifted.High.Slope -= r.gtest
		trial := r.trial
		trial.Value -= trial.Step * r.gtest
		trial.Slope -= r.gtest

		shifted, trial, caseCode = UpdateStep(shifted, trial, stmin, stmax)

		shifted.Low.Value += shifted.Low.Step * r.gtest
		shifted.Low.Slope += r.gtest
		shifted.High.Value += shifted.High.Step * r.gtest
		shifted.High.Slope += r.gtest
		r.iv = shifted
		r.trial = trial
	} else {
		r.iv, r.trial, caseCode = UpdateStep(r.iv, r.trial, stmin, stmax)
	}
	r.rejected = caseCode == caseRejected

	// If the bracket has not been reduced sufficiently over the two
	// previous updates, force bisection.
	if r.iv.Bracketed {
		if math.Abs(r.iv.High.Step-r.iv.Low.Step) >= safeguard*r.iv.PrevWidth {
			r.trial.Step = r.iv.Low.Step + 0.5*(r.iv.High.Step-r.iv.Low.Step)
		}
		r.iv.PrevWidth = r.iv.Width
		r.iv.Width = math.Abs(r.iv.High.Step - r.iv.Low.Step)
	}
	return nil, nil
}

// result captures the current trial point as the accepted step.
func (r *searchRun) result(code Code) *Result {
	point := make([]float64, len(r.x))
	copy(point, r.x)
	grad := make([]float64, len(r.grad))
	copy(grad, r.grad)
	return &Result{
		Step:     r.trial.Step,
		Point:    point,
		Value:    r.trial.Value,
		Gradient: grad,
		Code:     code,
	}
}
