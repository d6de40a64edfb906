package analyzer_test

import (
	"errors"
	"math"
	"testing"

	"github.com/azielinski/bia-analyzer/analyzer"
)

const fitTol = 1e-6

// circlePoints returns points on the circle with the given center and radius
// at the given angles (degrees).
func circlePoints(cx, cy, r float64, degrees []float64) (xs, ys []float64) {
	for _, deg := range degrees {
		th := deg * math.Pi / 180
		xs = append(xs, cx+r*math.Cos(th))
		ys = append(ys, cy+r*math.Sin(th))
	}
	return xs, ys
}

func TestFitCircleRecoversSyntheticCircle(t *testing.T) {
	wantCx, wantCy := 300.0, -60.0
	wantR := math.Sqrt(43600) // crossings of the x axis at 100 and 500

	xs, ys := circlePoints(wantCx, wantCy, wantR, []float64{25, 55, 90, 125, 155})

	fit, err := analyzer.FitCircle(xs, ys)
	if err != nil {
		t.Fatalf("Error fitting synthetic circle: %v", err)
	}

	if math.Abs(fit.CenterR-wantCx) > fitTol {
		t.Errorf("CenterR = %v, want %v (tol %g)", fit.CenterR, wantCx, fitTol)
	}
	if math.Abs(fit.CenterX-wantCy) > fitTol {
		t.Errorf("CenterX = %v, want %v (tol %g)", fit.CenterX, wantCy, fitTol)
	}
	if math.Abs(fit.Radius-wantR) > fitTol {
		t.Errorf("Radius = %v, want %v (tol %g)", fit.Radius, wantR, fitTol)
	}
}

func TestFitCircleRefinesNoisyCloud(t *testing.T) {
	// Displace alternate points in and out; the geometric fit must land
	// between the two rings.
	xs, ys := circlePoints(394, -14, 90, []float64{20, 50, 80, 110, 140, 160})
	for i := range xs {
		dx, dy := xs[i]-394, ys[i]+14
		scale := 1.0 + 0.02*float64(1-2*(i%2))
		xs[i] = 394 + dx*scale
		ys[i] = -14 + dy*scale
	}

	fit, err := analyzer.FitCircle(xs, ys)
	if err != nil {
		t.Fatalf("Error fitting noisy cloud: %v", err)
	}
	if fit.Radius < 90*0.98 || fit.Radius > 90*1.02 {
		t.Errorf("Radius = %v, want within 2%% of 90", fit.Radius)
	}
	if fit.Iterations == 0 {
		t.Errorf("Expected at least one refinement iteration on noisy data")
	}
}

func TestFitCircleDegenerate(t *testing.T) {
	cases := []struct {
		name   string
		xs, ys []float64
	}{
		{name: "TooFewPoints", xs: []float64{1, 2}, ys: []float64{1, 2}},
		{name: "Collinear", xs: []float64{1, 2, 3, 4}, ys: []float64{1, 2, 3, 4}},
		{name: "Repeated", xs: []float64{5, 5, 5, 5}, ys: []float64{7, 7, 7, 7}},
		{name: "MismatchedLengths", xs: []float64{1, 2, 3}, ys: []float64{1, 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := analyzer.FitCircle(tc.xs, tc.ys)
			var ce *analyzer.ComputationError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *ComputationError, got %v", err)
			}
		})
	}
}

func TestResistancesFromKnownCircle(t *testing.T) {
	fit := analyzer.ColeFit{CenterR: 300, CenterX: -60, Radius: math.Sqrt(43600)}

	re, ri, err := fit.Resistances()
	if err != nil {
		t.Fatalf("Error deriving resistances: %v", err)
	}

	// Crossings at x1=100 and x2=500: Re = 500, Ri = 100*500/(500-100) = 125.
	if math.Abs(re-500) > fitTol {
		t.Errorf("Re = %v, want 500", re)
	}
	if math.Abs(ri-125) > fitTol {
		t.Errorf("Ri = %v, want 125", ri)
	}
}

func TestResistancesOutOfDomain(t *testing.T) {
	cases := []struct {
		name string
		fit  analyzer.ColeFit
	}{
		{name: "NoAxisCrossing", fit: analyzer.ColeFit{CenterR: 300, CenterX: -200, Radius: 100}},
		{name: "NegativeLowCrossing", fit: analyzer.ColeFit{CenterR: 50, CenterX: 0, Radius: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tc.fit.Resistances()
			var ce *analyzer.ComputationError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *ComputationError, got %v", err)
			}
		})
	}
}
