// Package optimization defines the shared types used by the line search
// engine, the solvers built on top of it and the HTTP surface.
package optimization

import "context"

// Objective evaluates a scalar cost and its gradient at a point.
// Both calls may fail; a failure aborts any search that triggered it.
type Objective interface {
	// Evaluate returns the cost at x.
	Evaluate(x []float64) (float64, error)

	// Gradient returns the gradient of the cost at x.
	Gradient(x []float64) ([]float64, error)
}

// Optimizer is the lifecycle shared by the optimization algorithms.
type Optimizer interface {
	// Optimize runs the optimization until convergence, exhaustion of the
	// iteration budget, or cancellation of ctx.
	Optimize(ctx context.Context) (*Result, error)

	// BestSolution returns the best solution found so far.
	BestSolution() *Solution

	// History returns the per-iteration evaluation history.
	History() []Evaluation

	// Stop cancels a running optimization.
	Stop()
}

// Solution is a point in the parameter space together with its cost.
type Solution struct {
	Parameters []float64
	Value      float64
}

// Evaluation records one iterate of an optimization run.
type Evaluation struct {
	Iteration int
	Solution  *Solution
	// GradientNorm is the Euclidean norm of the gradient at the iterate.
	GradientNorm float64
}

// Result is the outcome of an optimization run.
type Result struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	Converged    bool
	// Reason describes why the run stopped.
	Reason string
}
