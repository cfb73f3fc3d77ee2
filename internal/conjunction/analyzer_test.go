package conjunction

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
	"github.com/orbitwatch/orbitwatch/internal/propagation"
	"github.com/orbitwatch/orbitwatch/internal/risk"
)

// Synthetic fixtures with valid checksums. The twin pair shares one
// near-circular orbit with a 180° mean-anomaly offset; the cross-plane
// object differs only in RAAN.
const (
	twinALine1 = "1 50001U 21001A   24100.50000000  .00000100  00000-0  10000-4 0  9998"
	twinALine2 = "2 50001  53.0000 150.0000 0001000  20.0000  10.0000 15.05000000100008"
	twinBLine1 = "1 50002U 21001B   24100.50000000  .00000100  00000-0  10000-4 0  9999"
	twinBLine2 = "2 50002  53.0000 150.0000 0001000  20.0000 190.0000 15.05000000100008"

	crossLine1 = "1 50003U 21002A   24100.50000000  .00000100  00000-0  10000-4 0  9991"
	crossLine2 = "2 50003  53.0000 210.0000 0001000  20.0000  10.0000 15.05000000100007"

	decayLine1 = "1 40000U 15001A   24100.50000000  .03000000  00000-0  10000-2 0  9999"
	decayLine2 = "2 40000  51.6400 100.0000 0006000  45.0000 325.0000 15.50000000449501"
)

func mustParse(t *testing.T, name, l1, l2 string) elements.ElementSet {
	t.Helper()
	set, err := elements.Parse(name, l1, l2)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return set
}

func testAnalyzer(opts Options) (*Analyzer, *propagation.Propagator) {
	prop := propagation.NewPropagator(propagation.WGS72(), propagation.DefaultNewtonOptions())
	return NewAnalyzer(prop, opts, risk.DefaultTable()), prop
}

// TestAnalyzeAntipodalTwins covers the spec scenario: two objects on one
// orbit with a 180° phase offset, searched over 24 hours. The reported
// minimum must land below half-an-orbit's along-track separation (π·a);
// the geometric floor for this configuration is the orbital diameter 2a.
func TestAnalyzeAntipodalTwins(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	setB := mustParse(t, "TWIN-B", twinBLine1, twinBLine2)
	an, prop := testAnalyzer(Options{CoarseStep: time.Minute})

	w := Window{Start: setA.Epoch, Duration: 24 * time.Hour}
	res, err := an.Analyze(context.Background(), setA, setB, w)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	a := prop.SemiMajorAxisKm(setA)
	if res.MinDistanceKm <= 0 || res.MinDistanceKm >= math.Pi*a {
		t.Errorf("min distance %.1f km outside (0, π·a=%.1f)", res.MinDistanceKm, math.Pi*a)
	}
	// The physical floor is the diameter; allow slack for drift.
	if res.MinDistanceKm < 2*a*0.9 {
		t.Errorf("min distance %.1f km implausibly below the 2a=%.1f km floor", res.MinDistanceKm, 2*a)
	}

	// Opposite-side velocities are antiparallel: the closing speed is
	// near twice the orbital speed.
	if res.RelativeSpeedKmS < 10 || res.RelativeSpeedKmS > 17 {
		t.Errorf("relative speed %.2f km/s, want ~15 for antipodal twins", res.RelativeSpeedKmS)
	}

	if res.Epoch.Before(w.Start) || res.Epoch.After(w.Start.Add(w.Duration)) {
		t.Errorf("epoch %v outside the search window", res.Epoch)
	}
	if res.Risk != risk.LevelLow {
		t.Errorf("risk = %v, want LOW at %.0f km", res.Risk, res.MinDistanceKm)
	}
	if res.CatalogA != 50001 || res.CatalogB != 50002 {
		t.Errorf("catalog pair = %d/%d", res.CatalogA, res.CatalogB)
	}
}

// TestAnalyzeMatchesExhaustiveSampling checks the two-phase search against
// brute-force fine sampling: the refined minimum must not exceed the
// exhaustive one by more than the 1 km refinement tolerance.
func TestAnalyzeMatchesExhaustiveSampling(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	setC := mustParse(t, "CROSS", crossLine1, crossLine2)
	an, prop := testAnalyzer(Options{CoarseStep: time.Minute})

	w := Window{Start: setA.Epoch, Duration: 2 * time.Hour}
	res, err := an.Analyze(context.Background(), setA, setC, w)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	fine := math.Inf(1)
	for at := w.Start; !at.After(w.Start.Add(w.Duration)); at = at.Add(time.Second) {
		sa, err := prop.Propagate(setA, at)
		if err != nil {
			t.Fatalf("Propagate A failed: %v", err)
		}
		sc, err := prop.Propagate(setC, at)
		if err != nil {
			t.Fatalf("Propagate C failed: %v", err)
		}
		if d := sa.Position.Sub(sc.Position).Norm(); d < fine {
			fine = d
		}
	}

	if res.MinDistanceKm > fine+1.0 {
		t.Errorf("two-phase minimum %.3f km exceeds exhaustive minimum %.3f km beyond tolerance", res.MinDistanceKm, fine)
	}
}

// TestAnalyzeCoarseEqualsFine drives the injectable coarse step down to
// the refinement scale, validating the refinement independent of tuning.
func TestAnalyzeCoarseEqualsFine(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	setC := mustParse(t, "CROSS", crossLine1, crossLine2)
	w := Window{Start: setA.Epoch, Duration: 30 * time.Minute}

	coarse, _ := testAnalyzer(Options{CoarseStep: time.Minute})
	fine, _ := testAnalyzer(Options{CoarseStep: time.Second})

	rc, err := coarse.Analyze(context.Background(), setA, setC, w)
	if err != nil {
		t.Fatalf("coarse Analyze failed: %v", err)
	}
	rf, err := fine.Analyze(context.Background(), setA, setC, w)
	if err != nil {
		t.Fatalf("fine Analyze failed: %v", err)
	}
	if diff := math.Abs(rc.MinDistanceKm - rf.MinDistanceKm); diff > 1.0 {
		t.Errorf("coarse/fine minima differ by %.3f km", diff)
	}
}

func TestAnalyzeSelfIsCritical(t *testing.T) {
	set := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	an, _ := testAnalyzer(Options{CoarseStep: time.Minute})

	res, err := an.Analyze(context.Background(), set, set, Window{Start: set.Epoch, Duration: time.Hour})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.MinDistanceKm > 1e-9 {
		t.Errorf("self distance = %g km, want 0", res.MinDistanceKm)
	}
	if res.Risk != risk.LevelHigh {
		t.Errorf("risk = %v, want HIGH", res.Risk)
	}
	if res.RelativeSpeedKmS != 0 {
		t.Errorf("relative speed = %g, want 0", res.RelativeSpeedKmS)
	}
}

// TestAnalyzeFailureNamesObject verifies a propagation failure mid-search
// surfaces as a CloseApproachError naming the failing object and epoch
// instead of silently skipping samples.
func TestAnalyzeFailureNamesObject(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	decaying := mustParse(t, "DECAYING", decayLine1, decayLine2)
	an, _ := testAnalyzer(Options{CoarseStep: time.Minute})

	// 28 days past its epoch the decaying object projects underground.
	w := Window{Start: decaying.Epoch.Add(28 * 24 * time.Hour), Duration: time.Hour}
	_, err := an.Analyze(context.Background(), setA, decaying, w)

	var caErr *CloseApproachError
	if !errors.As(err, &caErr) {
		t.Fatalf("expected *CloseApproachError, got %v", err)
	}
	if caErr.CatalogNumber != 40000 {
		t.Errorf("failing object = %d, want 40000", caErr.CatalogNumber)
	}
	var decayErr *propagation.DecayedOrbitError
	if !errors.As(caErr, &decayErr) {
		t.Errorf("CloseApproachError should unwrap to the decay failure, got %v", caErr.Err)
	}
}

func TestAnalyzeWindowValidation(t *testing.T) {
	set := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	an, _ := testAnalyzer(Options{})
	if _, err := an.Analyze(context.Background(), set, set, Window{Start: set.Epoch}); err == nil {
		t.Error("expected error for zero-duration window")
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	setB := mustParse(t, "TWIN-B", twinBLine1, twinBLine2)
	an, _ := testAnalyzer(Options{CoarseStep: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := an.Analyze(ctx, setA, setB, Window{Start: setA.Epoch, Duration: 24 * time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
