// Package transform converts ECI state vectors into Earth-fixed and
// geodetic coordinates.
//
// Earth rotation uses the IAU-82 GMST model (Vallado, "Fundamentals of
// Astrodynamics", Eq 3-47); the geodetic conversion iterates Bowring's
// method over the WGS-84 ellipsoid. The GMST-only rotation ignores polar
// motion and the equation of the equinoxes, well inside the ±1 km budget.
package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a UTC time to Julian Date.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// GMST returns Greenwich Mean Sidereal Time in radians for a UTC time.
//
// θ_GMST = 67310.54841 + (876600h + 8640184.812866)·T + 0.093104·T² − 6.2e-6·T³
//
// with T in Julian centuries of UT1 from J2000.0 and the result in seconds
// of time, normalized to [0, 2π) radians.
func GMST(t time.Time) float64 {
	tUT1 := (JulianDate(t) - j2000) / 36525.0

	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}
