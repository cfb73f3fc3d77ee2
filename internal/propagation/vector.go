package propagation

import (
	"math"
	"time"
)

// Vec3 is a Cartesian vector in kilometers (or km/s for velocities).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Norm returns the Euclidean magnitude.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// StateVector is an object's position and velocity in the Earth-centered
// inertial frame at a specific epoch. It is a value type with no reference
// back to the element set that produced it.
type StateVector struct {
	Position Vec3      `json:"position_km"`
	Velocity Vec3      `json:"velocity_km_s"`
	Epoch    time.Time `json:"epoch"`
}

// AltitudeKm returns the geocentric altitude over a spherical Earth of the
// given radius. The geodetic projection in the transform package is the
// accurate surface height; this is the cheap bound the decay guard uses.
func (s StateVector) AltitudeKm(radiusKm float64) float64 {
	return s.Position.Norm() - radiusKm
}
