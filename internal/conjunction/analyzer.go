// Package conjunction finds the epoch of minimum separation between two
// propagated objects over a time window and classifies the resulting risk.
//
// The search is two-phase: a coarse uniform scan brackets the minimum,
// then golden-section minimization refines the bracket to sub-step
// precision. An approach whose below-threshold span is shorter than one
// coarse step between near-tangential fast movers can slip between coarse
// samples; Options.CoarseStep sets that detection envelope and is
// injectable so callers (and tests) can trade cost for coverage.
package conjunction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
	"github.com/orbitwatch/orbitwatch/internal/propagation"
	"github.com/orbitwatch/orbitwatch/internal/risk"
)

// invPhi is the golden-section reduction ratio (√5−1)/2.
var invPhi = (math.Sqrt(5) - 1) / 2

// Options tunes the two-phase search. All fields have working defaults
// applied by NewAnalyzer; explicit values always win.
type Options struct {
	// CoarseStep is the uniform scan interval. Approaches narrower than
	// one step between samples define the guaranteed detection envelope.
	CoarseStep time.Duration
	// RefineTolerance stops refinement once the time bracket shrinks
	// below it.
	RefineTolerance time.Duration
	// MaxRefineIter caps the golden-section loop.
	MaxRefineIter int
}

// DefaultOptions returns a 30 s coarse scan refined to 10 ms.
func DefaultOptions() Options {
	return Options{
		CoarseStep:      30 * time.Second,
		RefineTolerance: 10 * time.Millisecond,
		MaxRefineIter:   120,
	}
}

// Window is a shared search interval.
type Window struct {
	Start    time.Time
	Duration time.Duration
}

func (w Window) end() time.Time { return w.Start.Add(w.Duration) }

// Result is one pair's close-approach outcome. Immutable, owns no
// references to its inputs.
type Result struct {
	CatalogA int    `json:"catalog_a"`
	CatalogB int    `json:"catalog_b"`
	NameA    string `json:"name_a,omitempty"`
	NameB    string `json:"name_b,omitempty"`

	MinDistanceKm    float64          `json:"min_distance_km"`
	Epoch            time.Time        `json:"epoch"`
	RelativeVelocity propagation.Vec3 `json:"relative_velocity_km_s"`
	RelativeSpeedKmS float64          `json:"relative_speed_km_s"`
	Risk             risk.Level       `json:"risk"`
}

// Analyzer runs close-approach searches with a fixed propagator, option
// set, and risk table. It holds no mutable state, so one analyzer serves
// concurrent callers; only each individual pair's two-phase search is
// sequential.
type Analyzer struct {
	prop  *propagation.Propagator
	opts  Options
	table risk.Table
}

// NewAnalyzer builds an analyzer. Zero option fields fall back to
// DefaultOptions; a zero risk table falls back to DefaultTable.
func NewAnalyzer(prop *propagation.Propagator, opts Options, table risk.Table) *Analyzer {
	def := DefaultOptions()
	if opts.CoarseStep <= 0 {
		opts.CoarseStep = def.CoarseStep
	}
	if opts.RefineTolerance <= 0 {
		opts.RefineTolerance = def.RefineTolerance
	}
	if opts.MaxRefineIter <= 0 {
		opts.MaxRefineIter = def.MaxRefineIter
	}
	if table == (risk.Table{}) {
		table = risk.DefaultTable()
	}
	return &Analyzer{prop: prop, opts: opts, table: table}
}

// Options returns the effective search options.
func (a *Analyzer) Options() Options { return a.opts }

// Analyze finds the epoch in the window minimizing the separation of the
// two propagated positions. Any propagation failure at any probed epoch
// fails the whole analysis with a *CloseApproachError naming the object
// and epoch — skipping samples would bias the minimum search. The context
// is checked between coarse samples.
func (a *Analyzer) Analyze(ctx context.Context, setA, setB elements.ElementSet, w Window) (Result, error) {
	if w.Duration <= 0 {
		return Result{}, fmt.Errorf("search window duration %v must be positive", w.Duration)
	}

	sep := func(at time.Time) (float64, error) {
		sa, err := a.prop.Propagate(setA, at)
		if err != nil {
			return 0, &CloseApproachError{CatalogNumber: setA.CatalogNumber, Epoch: at, Err: err}
		}
		sb, err := a.prop.Propagate(setB, at)
		if err != nil {
			return 0, &CloseApproachError{CatalogNumber: setB.CatalogNumber, Epoch: at, Err: err}
		}
		return sa.Position.Sub(sb.Position).Norm(), nil
	}

	// Coarse pass: uniform scan, endpoints inclusive.
	bestAt := w.Start
	bestDist := math.Inf(1)
	for at := w.Start; !at.After(w.end()); at = at.Add(a.opts.CoarseStep) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		d, err := sep(at)
		if err != nil {
			return Result{}, err
		}
		if d < bestDist {
			bestDist = d
			bestAt = at
		}
	}

	// Refinement: golden-section minimization on the bracket one coarse
	// step either side of the best sample, clamped to the window. The
	// loop is explicitly bounded by iteration count and time tolerance.
	lo := bestAt.Add(-a.opts.CoarseStep)
	if lo.Before(w.Start) {
		lo = w.Start
	}
	hi := bestAt.Add(a.opts.CoarseStep)
	if hi.After(w.end()) {
		hi = w.end()
	}

	minAt, minDist, err := a.goldenSection(lo, hi, sep)
	if err != nil {
		return Result{}, err
	}
	if bestDist < minDist {
		minAt, minDist = bestAt, bestDist
	}

	sa, err := a.prop.Propagate(setA, minAt)
	if err != nil {
		return Result{}, &CloseApproachError{CatalogNumber: setA.CatalogNumber, Epoch: minAt, Err: err}
	}
	sb, err := a.prop.Propagate(setB, minAt)
	if err != nil {
		return Result{}, &CloseApproachError{CatalogNumber: setB.CatalogNumber, Epoch: minAt, Err: err}
	}
	relVel := sa.Velocity.Sub(sb.Velocity)

	return Result{
		CatalogA:         setA.CatalogNumber,
		CatalogB:         setB.CatalogNumber,
		NameA:            setA.Name,
		NameB:            setB.Name,
		MinDistanceKm:    minDist,
		Epoch:            minAt,
		RelativeVelocity: relVel,
		RelativeSpeedKmS: relVel.Norm(),
		Risk:             a.table.Classify(minDist),
	}, nil
}

// goldenSection minimizes the separation over [lo, hi] with a bounded
// iteration loop.
func (a *Analyzer) goldenSection(lo, hi time.Time, sep func(time.Time) (float64, error)) (time.Time, float64, error) {
	span := hi.Sub(lo)
	if span <= a.opts.RefineTolerance {
		mid := lo.Add(span / 2)
		d, err := sep(mid)
		return mid, d, err
	}

	at := func(f float64) time.Time {
		return lo.Add(time.Duration(f * float64(hi.Sub(lo))))
	}

	x1, x2 := at(1-invPhi), at(invPhi)
	d1, err := sep(x1)
	if err != nil {
		return time.Time{}, 0, err
	}
	d2, err := sep(x2)
	if err != nil {
		return time.Time{}, 0, err
	}

	for i := 0; i < a.opts.MaxRefineIter && hi.Sub(lo) > a.opts.RefineTolerance; i++ {
		if d1 < d2 {
			hi = x2
			x2, d2 = x1, d1
			x1 = at(1 - invPhi)
			if d1, err = sep(x1); err != nil {
				return time.Time{}, 0, err
			}
		} else {
			lo = x1
			x1, d1 = x2, d2
			x2 = at(invPhi)
			if d2, err = sep(x2); err != nil {
				return time.Time{}, 0, err
			}
		}
	}

	mid := lo.Add(hi.Sub(lo) / 2)
	d, err := sep(mid)
	return mid, d, err
}
