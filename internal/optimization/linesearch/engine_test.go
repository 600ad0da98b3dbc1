package linesearch

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThatGeoGuy/argmin/internal/optimization"
)

// scalarObjective restricts the search to the ray x0 + t*dir with a
// one-dimensional parameter, so analytic phi/phi' pairs can drive the
// engine directly.
type scalarObjective struct {
	phi   func(float64) float64
	der   func(float64) float64
	evals int
}

func (s *scalarObjective) Evaluate(x []float64) (float64, error) {
	s.evals++
	return s.phi(x[0]), nil
}

func (s *scalarObjective) Gradient(x []float64) ([]float64, error) {
	return []float64{s.der(x[0])}, nil
}

// searchScalar runs the engine over phi along direction [1] from the
// origin.
func searchScalar(t *testing.T, obj *scalarObjective, cfg Config, initStep float64) (*Result, error) {
	t.Helper()
	e := NewEngine(obj, cfg)
	return e.Search([]float64{0}, obj.phi(0), []float64{obj.der(0)}, []float64{1}, initStep, 100)
}

func TestSearchQuadraticScenario(t *testing.T) {
	// f(x) = x^2 from x0 = 1 along direction -2: the line minimizer is
	// at step 0.5, where x = 0.
	obj := &scalarObjective{
		phi: func(x float64) float64 { return x * x },
		der: func(x float64) float64 { return 2 * x },
	}
	e := NewEngine(obj, NewConfig())

	res, err := e.Search([]float64{1}, 1, []float64{2}, []float64{-2}, 1.0, 100)
	require.NoError(t, err)

	assert.Equal(t, Converged, res.Code)
	assert.LessOrEqual(t, res.Iterations, 5)
	assert.InDelta(t, 0.5, res.Step, 1e-2)
	assert.InDelta(t, 0.0, res.Value, 1e-6)
	assert.InDelta(t, 0.0, res.Point[0], 1e-3)
}

func TestSearchSatisfiesStrongWolfe(t *testing.T) {
	tests := []struct {
		name string
		phi  func(float64) float64
		der  func(float64) float64
	}{
		{
			name: "quartic",
			phi:  func(s float64) float64 { return -s - s*s*s + s*s*s*s },
			der:  func(s float64) float64 { return -1 - 3*s*s + 4*s*s*s },
		},
		{
			name: "exponential",
			phi:  func(s float64) float64 { return math.Exp(-4*s) + s*s },
			der:  func(s float64) float64 { return -4*math.Exp(-4*s) + 2*s },
		},
		{
			name: "sinusoid",
			phi:  func(s float64) float64 { return -math.Sin(10 * s) },
			der:  func(s float64) float64 { return -10 * math.Cos(10*s) },
		},
	}

	const (
		c1 = 1e-4
		c2 = 0.9
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			require.NoError(t, cfg.SetStepBounds(1e-8, 50))

			obj := &scalarObjective{phi: tt.phi, der: tt.der}
			res, err := searchScalar(t, obj, cfg, 1.0)
			require.NoError(t, err)
			require.Equal(t, Converged, res.Code)

			// Sufficient decrease and curvature at the accepted step.
			f0, g0 := tt.phi(0), tt.der(0)
			assert.LessOrEqual(t, tt.phi(res.Step), f0+c1*res.Step*g0)
			assert.LessOrEqual(t, math.Abs(tt.der(res.Step)), c2*math.Abs(g0))

			// The accepted step respects the configured bounds.
			min, max := cfg.StepBounds()
			assert.GreaterOrEqual(t, res.Step, min)
			assert.LessOrEqual(t, res.Step, max)
		})
	}
}

func TestSearchInitialStepAtMaximum(t *testing.T) {
	// f(x) = x^2 from x0 = 1 along direction -1 with the maximum step
	// at 1.0: the first trial lands exactly on the line minimizer.
	obj := &scalarObjective{
		phi: func(x float64) float64 { return x * x },
		der: func(x float64) float64 { return 2 * x },
	}
	cfg := NewConfig()
	require.NoError(t, cfg.SetStepBounds(0, 1))

	e := NewEngine(obj, cfg)
	res, err := e.Search([]float64{1}, 1, []float64{2}, []float64{-1}, 1.0, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.Contains(t, []Code{Converged, StepAtMax}, res.Code)
}

func TestSearchStallsAtMaximumStep(t *testing.T) {
	// An unbounded descent: the search runs to the maximum step, which
	// still satisfies the sufficient decrease condition.
	obj := &scalarObjective{
		phi: func(s float64) float64 { return -s },
		der: func(s float64) float64 { return -1 },
	}
	cfg := NewConfig()
	require.NoError(t, cfg.SetStepBounds(0, 8))

	res, err := searchScalar(t, obj, cfg, 1.0)
	require.NoError(t, err)

	assert.Equal(t, StepAtMax, res.Code)
	assert.Equal(t, 8.0, res.Step)
}

func TestSearchStallsAtMinimumStep(t *testing.T) {
	// The line minimizer at 0.1 lies below the minimum step, so the
	// clamped trial cannot satisfy the decrease condition.
	obj := &scalarObjective{
		phi: func(s float64) float64 { return (s - 0.1) * (s - 0.1) },
		der: func(s float64) float64 { return 2 * (s - 0.1) },
	}
	cfg := NewConfig()
	require.NoError(t, cfg.SetStepBounds(1, 2))

	res, err := searchScalar(t, obj, cfg, 1.0)
	require.NoError(t, err)

	assert.Equal(t, StepAtMin, res.Code)
	assert.Equal(t, 1.0, res.Step)
	assert.Equal(t, 1, res.Iterations)
}

func TestSearchBreakdownOnKinkedObjective(t *testing.T) {
	// The slope jumps across the minimizer at 0.3, so a very tight
	// curvature factor can never be satisfied; the search collapses the
	// bracket and reports a breakdown with the best step found.
	obj := &scalarObjective{
		phi: func(s float64) float64 { return (s-0.3)*(s-0.3) + 0.05*math.Abs(s-0.3) },
		der: func(s float64) float64 {
			g := 2 * (s - 0.3)
			if s > 0.3 {
				return g + 0.05
			}
			return g - 0.05
		},
	}
	cfg := NewConfig()
	require.NoError(t, cfg.SetConditions(1e-4, 1e-3))

	res, err := searchScalar(t, obj, cfg, 1.0)
	require.NoError(t, err)

	assert.Equal(t, Breakdown, res.Code)
	assert.InDelta(t, 0.3, res.Step, 1e-2)
}

func TestSearchRejectsNonDescentDirection(t *testing.T) {
	obj := &scalarObjective{
		phi: func(x float64) float64 { return x * x },
		der: func(x float64) float64 { return 2 * x },
	}
	e := NewEngine(obj, NewConfig())

	// Uphill direction at x0 = 1.
	_, err := e.Search([]float64{1}, 1, []float64{2}, []float64{1}, 1.0, 100)
	require.Error(t, err)
	assert.True(t, optimization.IsPrecondition(err))
	// The failure must precede any objective evaluation.
	assert.Equal(t, 0, obj.evals)
}

func TestSearchValidatesInputs(t *testing.T) {
	obj := &scalarObjective{
		phi: func(x float64) float64 { return x * x },
		der: func(x float64) float64 { return 2 * x },
	}
	e := NewEngine(obj, NewConfig())

	tests := []struct {
		name     string
		x0, g, d []float64
		step     float64
	}{
		{name: "empty point", x0: nil, g: []float64{1}, d: []float64{1}, step: 1},
		{name: "gradient length mismatch", x0: []float64{1}, g: []float64{1, 2}, d: []float64{-1}, step: 1},
		{name: "direction length mismatch", x0: []float64{1}, g: []float64{2}, d: []float64{-1, 0}, step: 1},
		{name: "zero initial step", x0: []float64{1}, g: []float64{2}, d: []float64{-1}, step: 0},
		{name: "negative initial step", x0: []float64{1}, g: []float64{2}, d: []float64{-1}, step: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Search(tt.x0, 1, tt.g, tt.d, tt.step, 100)
			require.Error(t, err)
			assert.True(t, optimization.IsConfiguration(err))
			assert.Equal(t, 0, obj.evals)
		})
	}
}

// failingObjective fails evaluation after a set number of calls.
type failingObjective struct {
	after int
	calls int
}

var errEval = errors.New("synthetic objective failure")

func (f *failingObjective) Evaluate(x []float64) (float64, error) {
	f.calls++
	if f.calls > f.after {
		return 0, errEval
	}
	return (x[0] - 5) * (x[0] - 5), nil
}

func (f *failingObjective) Gradient(x []float64) ([]float64, error) {
	return []float64{2 * (x[0] - 5)}, nil
}

func TestSearchPropagatesEvaluationFailure(t *testing.T) {
	obj := &failingObjective{after: 0}
	e := NewEngine(obj, NewConfig())

	_, err := e.Search([]float64{0}, 25, []float64{-10}, []float64{1}, 1.0, 100)
	require.Error(t, err)
	assert.True(t, optimization.IsEvaluation(err))
	assert.ErrorIs(t, err, errEval)
}

func TestSearchFromComputesInitialData(t *testing.T) {
	obj := &scalarObjective{
		phi: func(x float64) float64 { return (x - 2) * (x - 2) },
		der: func(x float64) float64 { return 2 * (x - 2) },
	}
	e := NewEngine(obj, NewConfig())

	res, err := e.SearchFrom([]float64{0}, []float64{1}, 1.0, 100)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Code)
	assert.Less(t, res.Value, obj.phi(0))
}

func TestSearchIterationBudget(t *testing.T) {
	obj := &scalarObjective{
		phi: func(s float64) float64 { return math.Exp(-4*s) + s*s },
		der: func(s float64) float64 { return -4*math.Exp(-4*s) + 2*s },
	}
	e := NewEngine(obj, NewConfig())

	_, err := e.Search([]float64{0}, obj.phi(0), []float64{obj.der(0)}, []float64{1}, 1.0, 1)
	require.Error(t, err)
	assert.True(t, optimization.IsBreakdown(err))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "interval too small", IntervalTooSmall.String())
	assert.Equal(t, "step at minimum", StepAtMin.String())
	assert.Equal(t, "step at maximum", StepAtMax.String())
	assert.Equal(t, "breakdown", Breakdown.String())
	assert.Equal(t, "unknown", Code(0).String())
}
