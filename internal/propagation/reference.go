package propagation

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

// Reference wraps the full SGP4 implementation (go-satellite) for one
// object. It exists to bound the simplified model's divergence — the
// validation tests and the CLI's verify mode compare against it — and is
// never used for primary answers.
//
// go-satellite's Propagate takes whole seconds and calls log.Fatal on
// malformed input, so construction revalidates the raw lines first and
// epochs are rounded to the nearest second.
type Reference struct {
	sat     satellite.Satellite
	catalog int
}

// NewReference initializes the SGP4 reference model from the element set's
// raw lines.
func NewReference(set elements.ElementSet) (*Reference, error) {
	if len(set.Line1) != 69 || len(set.Line2) != 69 {
		return nil, fmt.Errorf("reference model for NORAD %d: raw lines unavailable", set.CatalogNumber)
	}
	sat := satellite.TLEToSat(set.Line1, set.Line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init for NORAD %d: code=%d %s", set.CatalogNumber, sat.Error, sat.ErrorStr)
	}
	return &Reference{sat: sat, catalog: set.CatalogNumber}, nil
}

// Propagate returns the reference ECI state at the target epoch, rounded
// to whole seconds. Failures surface as NaN/Inf output, which is mapped to
// a *PropagationError.
func (r *Reference) Propagate(at time.Time) (StateVector, error) {
	t := at.UTC().Round(time.Second)
	pos, vel := satellite.Propagate(r.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if !isFinite(pos.X) || !isFinite(pos.Y) || !isFinite(pos.Z) {
		return StateVector{}, &PropagationError{
			CatalogNumber: r.catalog,
			Epoch:         at,
			Reason:        "sgp4 reference output is NaN/Inf",
		}
	}
	return StateVector{
		Position: Vec3{X: pos.X, Y: pos.Y, Z: pos.Z},
		Velocity: Vec3{X: vel.X, Y: vel.Y, Z: vel.Z},
		Epoch:    t,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
