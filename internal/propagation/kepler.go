package propagation

import (
	"errors"
	"fmt"
	"math"
)

// NewtonOptions bounds the Kepler-equation solver. The zero value is not
// usable; call DefaultNewtonOptions or supply explicit values.
type NewtonOptions struct {
	Tolerance float64 // radians
	MaxIter   int
}

// DefaultNewtonOptions converges well inside the cap for all eccentricities
// below the parse-time limit of 1.
func DefaultNewtonOptions() NewtonOptions {
	return NewtonOptions{Tolerance: 1e-10, MaxIter: 30}
}

// errNoConvergence marks solver failure; the propagator wraps it into a
// *PropagationError with the object and epoch attached.
var errNoConvergence = errors.New("kepler solver did not converge")

// solveKepler solves M = E − e·sin(E) for the eccentric anomaly E by
// Newton-Raphson. The loop is explicitly bounded: it returns
// errNoConvergence after opts.MaxIter iterations rather than silently
// keeping the last approximation.
func solveKepler(meanAnomaly, ecc float64, opts NewtonOptions) (float64, error) {
	m := normalizeAngle(meanAnomaly)

	// Standard starting guess: M itself for modest eccentricities, π for
	// near-parabolic orbits where M is a poor seed.
	e0 := m
	if ecc >= 0.8 {
		e0 = math.Pi
	}

	for i := 0; i < opts.MaxIter; i++ {
		f := e0 - ecc*math.Sin(e0) - m
		if math.Abs(f) < opts.Tolerance {
			return normalizeAngle(e0), nil
		}
		e0 -= f / (1 - ecc*math.Cos(e0))
	}
	return 0, fmt.Errorf("%w after %d iterations (e=%g, M=%g rad)", errNoConvergence, opts.MaxIter, ecc, m)
}

// normalizeAngle maps any angle to [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
