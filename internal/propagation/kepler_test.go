package propagation

import (
	"errors"
	"math"
	"testing"
)

// TestSolveKeplerConvergence sweeps eccentricities through the supported
// range. Every mean anomaly must converge within the iteration cap, leaving
// a residual under tolerance.
func TestSolveKeplerConvergence(t *testing.T) {
	opts := DefaultNewtonOptions()
	for _, ecc := range []float64{0, 0.05, 0.1, 0.3, 0.5, 0.7, 0.8, 0.85, 0.9} {
		for deg := 0; deg < 360; deg += 7 {
			m := float64(deg) * deg2rad
			e, err := solveKepler(m, ecc, opts)
			if err != nil {
				t.Fatalf("e=%.2f M=%d°: %v", ecc, deg, err)
			}
			residual := math.Abs(e - ecc*math.Sin(e) - m)
			// The residual is periodic; fold it.
			residual = math.Min(residual, math.Abs(residual-2*math.Pi))
			if residual > opts.Tolerance {
				t.Errorf("e=%.2f M=%d°: residual %.2e exceeds tolerance", ecc, deg, residual)
			}
			if e < 0 || e >= 2*math.Pi {
				t.Errorf("e=%.2f M=%d°: eccentric anomaly %.6f not normalized", ecc, deg, e)
			}
		}
	}
}

func TestSolveKeplerCircular(t *testing.T) {
	// With zero eccentricity, E = M exactly.
	e, err := solveKepler(1.234, 0, DefaultNewtonOptions())
	if err != nil {
		t.Fatalf("solveKepler failed: %v", err)
	}
	if math.Abs(e-1.234) > 1e-12 {
		t.Errorf("E = %.15f, want 1.234", e)
	}
}

// TestSolveKeplerBounded verifies the solver reports failure instead of
// iterating forever or returning a bad approximation.
func TestSolveKeplerBounded(t *testing.T) {
	_, err := solveKepler(2.5, 0.9, NewtonOptions{Tolerance: 1e-14, MaxIter: 1})
	if !errors.Is(err, errNoConvergence) {
		t.Fatalf("expected errNoConvergence, got %v", err)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{5 * math.Pi, math.Pi},
		{-7 * math.Pi, math.Pi},
	}
	for _, tt := range tests {
		if got := normalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("normalizeAngle(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}
