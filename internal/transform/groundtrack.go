package transform

import (
	"context"
	"math"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
	"github.com/orbitwatch/orbitwatch/internal/propagation"
)

// TrackPoint is one sub-satellite point of a ground track.
type TrackPoint struct {
	Epoch  time.Time `json:"epoch"`
	LatDeg float64   `json:"lat_deg"`
	LonDeg float64   `json:"lon_deg"`
	AltKm  float64   `json:"alt_km"`
}

// Coverage summarizes the latitude and altitude envelope of a track.
type Coverage struct {
	MinLatDeg float64 `json:"min_lat_deg"`
	MaxLatDeg float64 `json:"max_lat_deg"`
	MinAltKm  float64 `json:"min_alt_km"`
	MaxAltKm  float64 `json:"max_alt_km"`
}

// GroundTrack holds an ordered run of sub-satellite points plus coverage
// statistics. Like a Trajectory it is owned by the caller.
type GroundTrack struct {
	CatalogNumber int          `json:"catalog_number"`
	Points        []TrackPoint `json:"points"`
	Coverage      Coverage     `json:"coverage"`
	Requested     int          `json:"requested"`
	Produced      int          `json:"produced"`
}

// ComputeGroundTrack samples the trajectory and projects every state to
// geodetic coordinates. Sampling semantics match propagation.Track: a
// failed sample ends the track early with the points so far intact and the
// terminating error returned.
func ComputeGroundTrack(ctx context.Context, prop *propagation.Propagator, set elements.ElementSet, start time.Time, duration, step time.Duration, el Ellipsoid) (GroundTrack, error) {
	traj, err := propagation.Track(ctx, prop, set, start, duration, step)

	gt := GroundTrack{
		CatalogNumber: set.CatalogNumber,
		Points:        make([]TrackPoint, 0, len(traj.Points)),
		Requested:     traj.Requested,
		Produced:      traj.Produced,
	}

	cov := Coverage{
		MinLatDeg: math.Inf(1), MaxLatDeg: math.Inf(-1),
		MinAltKm: math.Inf(1), MaxAltKm: math.Inf(-1),
	}
	for _, pt := range traj.Points {
		g := ToGeodetic(pt.State, el)
		gt.Points = append(gt.Points, TrackPoint{
			Epoch:  pt.Epoch,
			LatDeg: g.LatDeg,
			LonDeg: g.LonDeg,
			AltKm:  g.AltKm,
		})
		cov.MinLatDeg = math.Min(cov.MinLatDeg, g.LatDeg)
		cov.MaxLatDeg = math.Max(cov.MaxLatDeg, g.LatDeg)
		cov.MinAltKm = math.Min(cov.MinAltKm, g.AltKm)
		cov.MaxAltKm = math.Max(cov.MaxAltKm, g.AltKm)
	}
	if len(gt.Points) > 0 {
		gt.Coverage = cov
	}
	return gt, err
}
