package transform

import (
	"math"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/propagation"
)

// Ellipsoid is the oblate-spheroid Earth model geodetic projections are
// computed against. Injected rather than global so tests can substitute
// other bodies.
type Ellipsoid struct {
	SemiMajorKm float64
	Flattening  float64
}

// WGS84 returns the standard geodetic reference ellipsoid.
func WGS84() Ellipsoid {
	return Ellipsoid{SemiMajorKm: 6378.137, Flattening: 1.0 / 298.257223563}
}

// e2 is the first eccentricity squared.
func (el Ellipsoid) e2() float64 {
	return el.Flattening * (2 - el.Flattening)
}

// Geodetic is a latitude/longitude/altitude triple over the ellipsoid.
// Latitude is in [−90°, 90°], longitude in (−180°, 180°], altitude in km
// above the ellipsoid surface.
type Geodetic struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltKm  float64 `json:"alt_km"`
}

// ECEF is an Earth-fixed Cartesian state in km and km/s.
type ECEF struct {
	Position propagation.Vec3
	Velocity propagation.Vec3
}

// ECIToECEF rotates an ECI state into the rotating Earth-fixed frame at
// the state's epoch. The velocity subtracts the ω⊕×r Earth-rotation term.
func ECIToECEF(state propagation.StateVector) ECEF {
	gmst := GMST(state.Epoch)
	sinG, cosG := math.Sincos(gmst)

	r := state.Position
	pos := propagation.Vec3{
		X: r.X*cosG + r.Y*sinG,
		Y: -r.X*sinG + r.Y*cosG,
		Z: r.Z,
	}

	v := state.Velocity
	vel := propagation.Vec3{
		X: v.X*cosG + v.Y*sinG + OmegaEarth*pos.Y,
		Y: -v.X*sinG + v.Y*cosG - OmegaEarth*pos.X,
		Z: v.Z,
	}
	return ECEF{Position: pos, Velocity: vel}
}

// ToGeodetic projects an ECI state to geodetic coordinates at its epoch.
func ToGeodetic(state propagation.StateVector, el Ellipsoid) Geodetic {
	ecef := ECIToECEF(state)
	return ECEFToGeodetic(ecef.Position, el)
}

// ECEFToGeodetic converts Earth-fixed Cartesian km to geodetic coordinates
// by Bowring-style fixed-point iteration on the latitude. Converges to
// sub-meter for any orbital altitude well before the iteration cap.
func ECEFToGeodetic(pos propagation.Vec3, el Ellipsoid) Geodetic {
	a := el.SemiMajorKm
	e2 := el.e2()

	lon := math.Atan2(pos.Y, pos.X)
	p := math.Hypot(pos.X, pos.Y)

	lat := math.Atan2(pos.Z, p*(1-e2))
	for i := 0; i < 10; i++ {
		sinLat := math.Sin(lat)
		n := a / math.Sqrt(1-e2*sinLat*sinLat)
		next := math.Atan2(pos.Z+e2*n*sinLat, p)
		if math.Abs(next-lat) < 1e-13 {
			lat = next
			break
		}
		lat = next
	}

	sinLat, cosLat := math.Sincos(lat)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		// Polar singularity: derive altitude from the z-axis instead.
		alt = math.Abs(pos.Z)/math.Abs(sinLat) - n*(1-e2)
	}

	return Geodetic{
		LatDeg: lat / deg2rad,
		LonDeg: normalizeLonDeg(lon / deg2rad),
		AltKm:  alt,
	}
}

// GeodeticToECEF is the forward ellipsoidal conversion.
func GeodeticToECEF(g Geodetic, el Ellipsoid) propagation.Vec3 {
	lat := g.LatDeg * deg2rad
	lon := g.LonDeg * deg2rad
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	n := el.SemiMajorKm / math.Sqrt(1-el.e2()*sinLat*sinLat)
	return propagation.Vec3{
		X: (n + g.AltKm) * cosLat * cosLon,
		Y: (n + g.AltKm) * cosLat * sinLon,
		Z: (n*(1-el.e2()) + g.AltKm) * sinLat,
	}
}

// GeodeticToECI places a geodetic point into the inertial frame at the
// given epoch: the inverse of ToGeodetic for positions, used by round-trip
// verification and ground-site work.
func GeodeticToECI(g Geodetic, at time.Time, el Ellipsoid) propagation.Vec3 {
	ecef := GeodeticToECEF(g, el)
	gmst := GMST(at)
	sinG, cosG := math.Sincos(gmst)
	return propagation.Vec3{
		X: ecef.X*cosG - ecef.Y*sinG,
		Y: ecef.X*sinG + ecef.Y*cosG,
		Z: ecef.Z,
	}
}

const deg2rad = math.Pi / 180

// normalizeLonDeg maps longitude to (−180, 180].
func normalizeLonDeg(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	} else if lon <= -180 {
		lon += 360
	}
	return lon
}
