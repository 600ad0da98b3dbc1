// Package functions provides a catalog of analytic test objectives
// with gradients, addressable by name from the HTTP API and reused by
// the solver tests.
package functions

import (
	"sort"

	"github.com/ThatGeoGuy/argmin/internal/optimization"
)

// Function is a named objective with an analytic gradient.
type Function struct {
	Name string
	eval func(x []float64) float64
	grad func(x []float64) []float64
}

// Evaluate returns the objective value at x.
func (f *Function) Evaluate(x []float64) (float64, error) {
	return f.eval(x), nil
}

// Gradient returns the objective gradient at x.
func (f *Function) Gradient(x []float64) ([]float64, error) {
	return f.grad(x), nil
}

var _ optimization.Objective = (*Function)(nil)

// Sphere is the convex quadratic sum of squares, minimized at the
// origin.
var Sphere = &Function{
	Name: "sphere",
	eval: func(x []float64) float64 {
		sum := 0.0
		for _, v := range x {
			sum += v * v
		}
		return sum
	},
	grad: func(x []float64) []float64 {
		g := make([]float64, len(x))
		for i, v := range x {
			g[i] = 2 * v
		}
		return g
	},
}

// Ellipsoid is an axis-aligned convex quadratic with conditioning that
// grows with the dimension index.
var Ellipsoid = &Function{
	Name: "ellipsoid",
	eval: func(x []float64) float64 {
		sum := 0.0
		for i, v := range x {
			sum += float64(i+1) * v * v
		}
		return sum
	},
	grad: func(x []float64) []float64 {
		g := make([]float64, len(x))
		for i, v := range x {
			g[i] = 2 * float64(i+1) * v
		}
		return g
	},
}

// Rosenbrock is the classic banana-valley function, minimized at
// (1, ..., 1). It is defined for two or more dimensions.
var Rosenbrock = &Function{
	Name: "rosenbrock",
	eval: func(x []float64) float64 {
		sum := 0.0
		for i := 0; i+1 < len(x); i++ {
			a := x[i+1] - x[i]*x[i]
			b := 1 - x[i]
			sum += 100*a*a + b*b
		}
		return sum
	},
	grad: func(x []float64) []float64 {
		g := make([]float64, len(x))
		for i := 0; i+1 < len(x); i++ {
			a := x[i+1] - x[i]*x[i]
			g[i] += -400*x[i]*a - 2*(1-x[i])
			g[i+1] += 200 * a
		}
		return g
	},
}

var catalog = map[string]*Function{
	Sphere.Name:     Sphere,
	Ellipsoid.Name:  Ellipsoid,
	Rosenbrock.Name: Rosenbrock,
}

// Lookup returns the named function from the catalog.
func Lookup(name string) (*Function, bool) {
	f, ok := catalog[name]
	return f, ok
}

// Names returns the catalog names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
