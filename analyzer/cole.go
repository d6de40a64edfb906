package analyzer

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Refinement is stopped once the parameter step shrinks below this relative
// tolerance, or after maxFitIterations steps.
const (
	maxFitIterations = 50
	fitTolerance     = 1e-12
)

// FitColeCircle fits a circle to the (resistance, reactance) points of a
// measurement. The fit is seeded with the algebraic (Kasa) least-squares
// solution and refined with Gauss-Newton steps on the geometric distance,
// so the result minimizes the spread of point-to-center distances.
func FitColeCircle(samples []ImpedanceSample) (ColeFit, error) {
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.ResistanceOhm
		ys[i] = s.ReactanceOhm
	}
	return FitCircle(xs, ys)
}

// FitCircle fits a circle to the point cloud (xs, ys). At least three
// non-degenerate points are required; a collinear or repeated cloud yields a
// ComputationError.
func FitCircle(xs, ys []float64) (ColeFit, error) {
	if len(xs) != len(ys) {
		return ColeFit{}, &ComputationError{Metric: "cole circle", Msg: "mismatched coordinate slices"}
	}
	if len(xs) < 3 {
		return ColeFit{}, &ComputationError{
			Metric: "cole circle",
			Msg:    fmt.Sprintf("need at least 3 impedance samples, got %d", len(xs)),
		}
	}

	// --- 1. Algebraic seed: x^2+y^2 = 2a*x + 2b*y + c ---
	n := len(xs)
	a := mat.NewDense(n, 3, nil)
	b := mat.NewDense(n, 1, nil)
	for i := range xs {
		a.Set(i, 0, 2*xs[i])
		a.Set(i, 1, 2*ys[i])
		a.Set(i, 2, 1)
		b.Set(i, 0, xs[i]*xs[i]+ys[i]*ys[i])
	}
	var coef mat.Dense
	if err := coef.Solve(a, b); err != nil {
		return ColeFit{}, &ComputationError{
			Metric: "cole circle",
			Msg:    fmt.Sprintf("degenerate point cloud (collinear or repeated samples): %v", err),
		}
	}
	cr := coef.At(0, 0)
	cx := coef.At(1, 0)
	r2 := coef.At(2, 0) + cr*cr + cx*cx
	if r2 <= 0 {
		return ColeFit{}, &ComputationError{Metric: "cole circle", Msg: "algebraic fit produced a non-positive radius"}
	}
	radius := math.Sqrt(r2)

	// --- 2. Gauss-Newton refinement on the geometric distances ---
	fit := ColeFit{CenterR: cr, CenterX: cx, Radius: radius}
	jac := mat.NewDense(n, 3, nil)
	res := mat.NewDense(n, 1, nil)
	for iter := 0; iter < maxFitIterations; iter++ {
		for i := range xs {
			dx := xs[i] - fit.CenterR
			dy := ys[i] - fit.CenterX
			d := math.Hypot(dx, dy)
			if d == 0 {
				return ColeFit{}, &ComputationError{
					Metric: "cole circle",
					Msg:    "an impedance sample coincides with the circle center",
				}
			}
			jac.Set(i, 0, -dx/d)
			jac.Set(i, 1, -dy/d)
			jac.Set(i, 2, -1)
			res.Set(i, 0, d-fit.Radius)
		}

		var step mat.Dense
		if err := step.Solve(jac, res); err != nil {
			// A rank-deficient Jacobian this close to convergence means the
			// current estimate is already as good as the data allows.
			log.Printf("Cole fit: refinement stopped after %d iterations: %v", iter, err)
			break
		}
		da := step.At(0, 0)
		db := step.At(1, 0)
		dr := step.At(2, 0)
		fit.CenterR -= da
		fit.CenterX -= db
		fit.Radius -= dr
		fit.Iterations = iter + 1

		if math.Abs(da)+math.Abs(db)+math.Abs(dr) < fitTolerance*(1+math.Abs(fit.Radius)) {
			break
		}
	}

	if fit.Radius <= 0 {
		return ColeFit{}, &ComputationError{Metric: "cole circle", Msg: "refined fit produced a non-positive radius"}
	}
	return fit, nil
}

// Resistances derives the extracellular (Re) and intracellular (Ri)
// resistances from the fitted circle's crossings of the resistance axis:
// Re is the high crossing; Ri follows from the parallel-branch relation
// Ri = x1*Re/(Re-x1) with x1 the low crossing.
func (f ColeFit) Resistances() (re, ri float64, err error) {
	disc := f.Radius*f.Radius - f.CenterX*f.CenterX
	if disc <= 0 {
		return 0, 0, &ComputationError{
			Metric: "cell resistances",
			Msg:    "fitted circle does not cross the resistance axis",
		}
	}
	half := math.Sqrt(disc)
	x1 := f.CenterR - half
	x2 := f.CenterR + half

	re = x2
	if x1 <= 0 {
		return 0, 0, &ComputationError{
			Metric: "cell resistances",
			Msg:    fmt.Sprintf("non-physical low crossing at %.3f ohm", x1),
		}
	}
	den := re - x1
	if den == 0 {
		return 0, 0, &ComputationError{Metric: "cell resistances", Msg: "zero denominator: crossings coincide"}
	}
	ri = x1 * re / den
	return re, ri, nil
}
