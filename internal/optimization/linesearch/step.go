package linesearch

import "math"

// Case codes returned by UpdateStep. Zero means the inputs were
// rejected and returned unchanged; 1 through 4 identify which branch
// of the case analysis produced the step.
const (
	caseRejected = iota
	caseHigherValue
	caseSlopeSignFlip
	caseSlopeShrinking
	caseSlopeGrowing
)

// safeguard is the fraction of the distance across the bracket (or of
// the previous bracket width, in the engine) beyond which a trial step
// is not allowed.
const safeguard = 0.66

// UpdateStep computes a safeguarded trial step by polynomial
// interpolation and updates the interval known to contain a step
// satisfying the sufficient decrease and curvature conditions. It is
// the dcstep subroutine of MINPACK-2 in a pure form: the inputs are
// left untouched and the updated interval and trial are returned
// together with the case code.
//
// iv.Low must be the endpoint with the least function value and its
// slope must be negative in the direction of the step. If iv.Bracketed
// is set, trial.Step must lie strictly inside the interval. Inputs
// violating these assumptions are rejected with case code 0.
func UpdateStep(iv Interval, trial Point, stepMin, stepMax float64) (Interval, Point, int) {
	lo, hi := iv.Bounds()
	if iv.Bracketed && (trial.Step <= lo || trial.Step >= hi) {
		return iv, trial, caseRejected
	}
	if iv.Low.Slope*(trial.Step-iv.Low.Step) >= 0 {
		return iv, trial, caseRejected
	}
	if stepMax < stepMin {
		return iv, trial, caseRejected
	}

	// sign of the trial slope relative to the slope at the best point
	sgnd := trial.Slope * (iv.Low.Slope / math.Abs(iv.Low.Slope))

	var (
		next     float64
		code     int
		bound    bool
		brackets = iv.Bracketed
	)
	switch {
	case trial.Value > iv.Low.Value:
		// A higher function value: the minimum is bracketed between
		// Low and the trial. Take the cubic step if it is closer to
		// Low than the quadratic one, otherwise their midpoint.
		code = caseHigherValue
		bound = true
		theta, gamma := cubic(iv.Low, trial)
		if trial.Step < iv.Low.Step {
			gamma = -gamma
		}
		p := (gamma - iv.Low.Slope) + theta
		q := ((gamma - iv.Low.Slope) + gamma) + trial.Slope
		r := p / q
		stpc := iv.Low.Step + r*(trial.Step-iv.Low.Step)
		stpq := iv.Low.Step +
			((iv.Low.Slope/((iv.Low.Value-trial.Value)/(trial.Step-iv.Low.Step)+iv.Low.Slope))/2)*
				(trial.Step-iv.Low.Step)
		if math.Abs(stpc-iv.Low.Step) < math.Abs(stpq-iv.Low.Step) {
			next = stpc
		} else {
			next = stpc + (stpq-stpc)/2
		}
		brackets = true

	case sgnd < 0:
		// A lower function value and a slope of opposite sign: the
		// minimum is bracketed. Take the cubic step if it is farther
		// from the trial than the secant step, otherwise the secant.
		code = caseSlopeSignFlip
		bound = false
		theta, gamma := cubic(iv.Low, trial)
		if trial.Step > iv.Low.Step {
			gamma = -gamma
		}
		p := (gamma - trial.Slope) + theta
		q := ((gamma - trial.Slope) + gamma) + iv.Low.Slope
		r := p / q
		stpc := trial.Step + r*(iv.Low.Step-trial.Step)
		stpq := trial.Step + (trial.Slope/(trial.Slope-iv.Low.Slope))*(iv.Low.Step-trial.Step)
		if math.Abs(stpc-trial.Step) > math.Abs(stpq-trial.Step) {
			next = stpc
		} else {
			next = stpq
		}
		brackets = true

	case math.Abs(trial.Slope) < math.Abs(iv.Low.Slope):
		// A lower function value, slopes of the same sign and a
		// shrinking derivative magnitude. The cubic is trusted only if
		// its minimizer lies beyond the trial in the travel direction
		// and the cubic tends to infinity there (gamma != 0);
		// otherwise the step snaps to stepMin or stepMax.
		code = caseSlopeShrinking
		bound = true
		theta, gamma := cubic(iv.Low, trial)
		if trial.Step > iv.Low.Step {
			gamma = -gamma
		}
		p := (gamma - trial.Slope) + theta
		q := (gamma + (iv.Low.Slope - trial.Slope)) + gamma
		r := p / q
		var stpc float64
		switch {
		case r < 0 && gamma != 0:
			stpc = trial.Step + r*(iv.Low.Step-trial.Step)
		case trial.Step > iv.Low.Step:
			stpc = stepMax
		default:
			stpc = stepMin
		}
		stpq := trial.Step + (trial.Slope/(trial.Slope-iv.Low.Slope))*(iv.Low.Step-trial.Step)
		if iv.Bracketed {
			// Extrapolating inside a bracket: be cautious and take the
			// step closer to the trial.
			if math.Abs(stpc-trial.Step) < math.Abs(stpq-trial.Step) {
				next = stpc
			} else {
				next = stpq
			}
		} else {
			if math.Abs(stpc-trial.Step) > math.Abs(stpq-trial.Step) {
				next = stpc
			} else {
				next = stpq
			}
		}

	default:
		// A lower function value, slopes of the same sign and a
		// derivative magnitude that does not decrease. Take the cubic
		// through the trial and High if bracketed, else run to the
		// interval bound in the travel direction.
		code = caseSlopeGrowing
		bound = false
		if iv.Bracketed {
			theta, gamma := cubic(trial, iv.High)
			if trial.Step > iv.High.Step {
				gamma = -gamma
			}
			p := (gamma - trial.Slope) + theta
			q := ((gamma - trial.Slope) + gamma) + iv.High.Slope
			r := p / q
			next = trial.Step + r*(iv.High.Step-trial.Step)
		} else if trial.Step > iv.Low.Step {
			next = stepMax
		} else {
			next = stepMin
		}
	}

	// Update the interval. This does not depend on the case analysis.
	out := iv
	if trial.Value > iv.Low.Value {
		out.High = trial
	} else {
		if sgnd < 0 {
			out.High = iv.Low
		}
		out.Low = trial
	}
	out.Bracketed = brackets

	// Safeguard the new step.
	next = math.Min(stepMax, next)
	next = math.Max(stepMin, next)
	nextTrial := trial
	nextTrial.Step = next
	if out.Bracketed && bound {
		if out.High.Step > out.Low.Step {
			nextTrial.Step = math.Min(out.Low.Step+safeguard*(out.High.Step-out.Low.Step), nextTrial.Step)
		} else {
			nextTrial.Step = math.Max(out.Low.Step+safeguard*(out.High.Step-out.Low.Step), nextTrial.Step)
		}
	}

	return out, nextTrial, code
}

// cubic returns theta and gamma of the cubic interpolant through a and
// b. Scaling by the largest of the three magnitudes is required to
// avoid overflow and underflow in the discriminant; it is exact, not an
// approximation. A zero gamma means the cubic has no finite minimizer
// in the direction of the step.
func cubic(a, b Point) (theta, gamma float64) {
	theta = 3*(a.Value-b.Value)/(b.Step-a.Step) + a.Slope + b.Slope
	s := math.Max(math.Abs(theta), math.Max(math.Abs(a.Slope), math.Abs(b.Slope)))
	gamma = s * math.Sqrt(math.Max(0, (theta/s)*(theta/s)-(a.Slope/s)*(b.Slope/s)))
	return theta, gamma
}
