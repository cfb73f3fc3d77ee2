package propagation

// GravityModel carries the gravitational constants a propagator is built
// against. It is injected at construction rather than read from package
// globals, so tests can supply alternate bodies.
type GravityModel struct {
	RadiusKm float64 // equatorial radius
	Mu       float64 // gravitational parameter, km³/s²
	J2       float64 // second zonal harmonic coefficient
}

// WGS72 returns the constants public general-perturbations element
// catalogs are fitted against.
func WGS72() GravityModel {
	return GravityModel{
		RadiusKm: 6378.135,
		Mu:       398600.8,
		J2:       0.001082616,
	}
}

// k2 is the J2 shorthand ½·J2·Re² used by the secular rate terms.
func (g GravityModel) k2() float64 {
	return 0.5 * g.J2 * g.RadiusKm * g.RadiusKm
}
