// Package propagation advances orbital element sets to arbitrary epochs
// using a simplified general-perturbations model: Brouwer mean-motion
// recovery, secular J2 precession of the node and perigee, and secular
// drag decay from the record's mean-motion derivatives.
//
// Accuracy degrades smoothly with the span between the element epoch and
// the target epoch; the model is intended for minutes to a few weeks of
// propagation. Short-period periodic terms are not modeled, so positions
// diverge from a full SGP4 implementation by up to a few tens of
// kilometers for low orbits (see reference.go for the cross-check).
package propagation

import (
	"math"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

const (
	deg2rad    = math.Pi / 180
	secPerDay  = 86400.0
	twoPi      = 2 * math.Pi
	revPerDay  = twoPi / secPerDay           // rev/day → rad/s
	revPerDay2 = twoPi / (secPerDay * secPerDay)
	revPerDay3 = twoPi / (secPerDay * secPerDay * secPerDay)
)

// Propagator maps (ElementSet, epoch) pairs to ECI state vectors. It holds
// only immutable configuration, so one instance serves any number of
// concurrent callers.
type Propagator struct {
	grav   GravityModel
	newton NewtonOptions
}

// NewPropagator builds a propagator over the given gravity model. Zero
// NewtonOptions fields fall back to defaults.
func NewPropagator(grav GravityModel, newton NewtonOptions) *Propagator {
	def := DefaultNewtonOptions()
	if newton.Tolerance <= 0 {
		newton.Tolerance = def.Tolerance
	}
	if newton.MaxIter <= 0 {
		newton.MaxIter = def.MaxIter
	}
	return &Propagator{grav: grav, newton: newton}
}

// Gravity returns the injected gravity model.
func (p *Propagator) Gravity() GravityModel { return p.grav }

// Propagate computes the object's ECI state at the target epoch.
// Identical inputs always produce identical outputs. Failure modes:
// *PropagationError when the Kepler solver does not converge, and
// *DecayedOrbitError when the elements project the object below the
// surface at the target epoch.
func (p *Propagator) Propagate(set elements.ElementSet, at time.Time) (StateVector, error) {
	g := p.grav
	dt := at.Sub(set.Epoch).Seconds()

	n0 := set.MeanMotion * revPerDay
	nDot := set.MeanMotionDot * revPerDay2
	nDDot := set.MeanMotionDDot * revPerDay3
	ecc := set.Eccentricity
	inc := set.InclinationDeg * deg2rad

	// Brouwer recovery of the oblateness-corrected mean motion and
	// semi-major axis from the published (Kozai) mean motion.
	cosI := math.Cos(inc)
	theta := 3*cosI*cosI - 1
	beta := math.Sqrt(1 - ecc*ecc)
	beta3 := beta * beta * beta

	a1 := math.Cbrt(g.Mu / (n0 * n0))
	delta1 := 1.5 * g.k2() * theta / (a1 * a1 * beta3)
	a2 := a1 * (1 - delta1/3 - delta1*delta1 - 134.0/81.0*delta1*delta1*delta1)
	delta0 := 1.5 * g.k2() * theta / (a2 * a2 * beta3)
	nsec := n0 / (1 + delta0) // rad/s
	asec := math.Cbrt(g.Mu / (nsec * nsec))

	// Secular drag: the mean motion drifts by the record's derivatives,
	// and the semi-major axis follows through Kepler's third law.
	nT := nsec + nDot*dt + 0.5*nDDot*dt*dt
	if nT <= 0 {
		return StateVector{}, &DecayedOrbitError{
			CatalogNumber: set.CatalogNumber,
			Epoch:         at,
			AltitudeKm:    -g.RadiusKm,
		}
	}
	aT := math.Cbrt(g.Mu / (nT * nT))

	// Secular J2 precession, linear in elapsed time.
	pSemi := asec * (1 - ecc*ecc)
	rp2 := (g.RadiusKm / pSemi) * (g.RadiusKm / pSemi)
	raanDot := -1.5 * nsec * g.J2 * rp2 * cosI
	argpDot := 0.75 * nsec * g.J2 * rp2 * (5*cosI*cosI - 1)

	raan := normalizeAngle(set.RAANDeg*deg2rad + raanDot*dt)
	argp := normalizeAngle(set.ArgPerigeeDeg*deg2rad + argpDot*dt)

	// Mean anomaly integrates the drifting mean motion.
	meanAnomaly := normalizeAngle(set.MeanAnomalyDeg*deg2rad +
		nsec*dt + 0.5*nDot*dt*dt + nDDot*dt*dt*dt/6)

	eccAnomaly, err := solveKepler(meanAnomaly, ecc, p.newton)
	if err != nil {
		return StateVector{}, &PropagationError{
			CatalogNumber: set.CatalogNumber,
			Epoch:         at,
			Reason:        err.Error(),
		}
	}

	sinE := math.Sin(eccAnomaly)
	cosE := math.Cos(eccAnomaly)
	trueAnomaly := math.Atan2(beta*sinE, cosE-ecc)
	r := aT * (1 - ecc*cosE)

	// Perifocal state, then rotation by argument of perigee, inclination
	// and RAAN into ECI via the P/Q orbital-plane basis vectors.
	xPF := r * math.Cos(trueAnomaly)
	yPF := r * math.Sin(trueAnomaly)
	vScale := math.Sqrt(g.Mu*aT) / r
	vxPF := -vScale * sinE
	vyPF := vScale * beta * cosE

	sinO, cosO := math.Sincos(raan)
	sinW, cosW := math.Sincos(argp)
	sinI := math.Sin(inc)

	pAxis := Vec3{
		X: cosO*cosW - sinO*sinW*cosI,
		Y: sinO*cosW + cosO*sinW*cosI,
		Z: sinW * sinI,
	}
	qAxis := Vec3{
		X: -cosO*sinW - sinO*cosW*cosI,
		Y: -sinO*sinW + cosO*cosW*cosI,
		Z: cosW * sinI,
	}

	state := StateVector{
		Position: pAxis.Scale(xPF).Add(qAxis.Scale(yPF)),
		Velocity: pAxis.Scale(vxPF).Add(qAxis.Scale(vyPF)),
		Epoch:    at,
	}

	if alt := state.AltitudeKm(g.RadiusKm); alt < 0 {
		return StateVector{}, &DecayedOrbitError{
			CatalogNumber: set.CatalogNumber,
			Epoch:         at,
			AltitudeKm:    alt,
		}
	}
	return state, nil
}

// SemiMajorAxisKm returns the Brouwer-recovered semi-major axis for the
// element set, used by callers that need an orbit-scale length without a
// full propagation.
func (p *Propagator) SemiMajorAxisKm(set elements.ElementSet) float64 {
	g := p.grav
	n0 := set.MeanMotion * revPerDay
	ecc := set.Eccentricity
	cosI := math.Cos(set.InclinationDeg * deg2rad)
	theta := 3*cosI*cosI - 1
	beta := math.Sqrt(1 - ecc*ecc)
	beta3 := beta * beta * beta

	a1 := math.Cbrt(g.Mu / (n0 * n0))
	delta1 := 1.5 * g.k2() * theta / (a1 * a1 * beta3)
	a2 := a1 * (1 - delta1/3 - delta1*delta1 - 134.0/81.0*delta1*delta1*delta1)
	delta0 := 1.5 * g.k2() * theta / (a2 * a2 * beta3)
	nsec := n0 / (1 + delta0)
	return math.Cbrt(g.Mu / (nsec * nsec))
}
