package linesearch

import (
	"math"

	"github.com/ThatGeoGuy/argmin/internal/optimization"
)

const (
	// Defaults follow the classical More-Thuente parameterization.
	defaultDecreaseFactor  = 1e-4
	defaultCurvatureFactor = 0.9
	defaultStepTolerance   = 1e-10
	defaultGrowthFactor    = 4.0
	defaultMaxStep         = 1e20
)

// Config holds the validated parameters of a line search. The zero
// value is not usable; construct with NewConfig and adjust through the
// setters, each of which validates eagerly.
type Config struct {
	c1, c2           float64
	stepMin, stepMax float64
	stepTol          float64
	growth           float64
}

// NewConfig returns a configuration with the classical defaults:
// c1=1e-4, c2=0.9, step bounds [sqrt(eps), 1e20], step tolerance 1e-10
// and extrapolation growth factor 4.
func NewConfig() Config {
	return Config{
		c1:      defaultDecreaseFactor,
		c2:      defaultCurvatureFactor,
		stepMin: math.Sqrt(epsilon),
		stepMax: defaultMaxStep,
		stepTol: defaultStepTolerance,
		growth:  defaultGrowthFactor,
	}
}

// epsilon is the double precision machine epsilon.
var epsilon = math.Nextafter(1, 2) - 1

// SetConditions sets the sufficient decrease factor c1 and the
// curvature factor c2 of the strong Wolfe conditions. They must
// satisfy 0 < c1 < c2 < 1.
func (c *Config) SetConditions(c1, c2 float64) error {
	if c1 <= 0 || c1 >= c2 {
		return optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: c1 must be in (0, c2), got c1=%v c2=%v", c1, c2)
	}
	if c2 >= 1 {
		return optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: c2 must be in (c1, 1), got c2=%v", c2)
	}
	c.c1, c.c2 = c1, c2
	return nil
}

// SetStepBounds sets the smallest and largest step the search may
// take. Bounds must satisfy 0 <= min < max.
func (c *Config) SetStepBounds(min, max float64) error {
	if min < 0 {
		return optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: minimum step must be >= 0, got %v", min)
	}
	if max <= min {
		return optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: maximum step must be greater than minimum step, got min=%v max=%v", min, max)
	}
	c.stepMin, c.stepMax = min, max
	return nil
}

// SetStepTolerance sets the relative width below which a bracketed
// interval is considered degenerate.
func (c *Config) SetStepTolerance(tol float64) error {
	if tol <= 0 {
		return optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: step tolerance must be positive, got %v", tol)
	}
	c.stepTol = tol
	return nil
}

// SetGrowthFactor sets the extrapolation factor used to grow the upper
// bound of the search interval before a minimizer is bracketed.
func (c *Config) SetGrowthFactor(f float64) error {
	if f <= 1 {
		return optimization.NewErrorf(optimization.KindConfiguration,
			"linesearch: growth factor must be greater than 1, got %v", f)
	}
	c.growth = f
	return nil
}

// DecreaseFactor returns c1.
func (c Config) DecreaseFactor() float64 { return c.c1 }

// CurvatureFactor returns c2.
func (c Config) CurvatureFactor() float64 { return c.c2 }

// StepBounds returns the configured minimum and maximum step.
func (c Config) StepBounds() (min, max float64) { return c.stepMin, c.stepMax }

// StepTolerance returns the relative interval width tolerance.
func (c Config) StepTolerance() float64 { return c.stepTol }
