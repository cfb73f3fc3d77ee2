package conjunction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

func TestAnalyzePairsOrderAndIsolation(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	setB := mustParse(t, "TWIN-B", twinBLine1, twinBLine2)
	setC := mustParse(t, "CROSS", crossLine1, crossLine2)
	decaying := mustParse(t, "DECAYING", decayLine1, decayLine2)
	an, _ := testAnalyzer(Options{CoarseStep: time.Minute})

	// 28 days out the decaying object projects underground, so its pair
	// fails while the others succeed.
	w := Window{Start: decaying.Epoch.Add(28 * 24 * time.Hour), Duration: time.Hour}
	pairs := []Pair{
		{A: setA, B: setB},
		{A: setA, B: decaying},
		{A: setA, B: setC},
	}
	outcomes := an.AnalyzePairs(context.Background(), pairs, w)
	if len(outcomes) != len(pairs) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(pairs))
	}

	if outcomes[0].Err != nil {
		t.Errorf("pair 0 failed: %v", outcomes[0].Err)
	}
	if outcomes[0].Result.CatalogB != setB.CatalogNumber {
		t.Errorf("pair 0 analyzed %d, want %d", outcomes[0].Result.CatalogB, setB.CatalogNumber)
	}

	var caErr *CloseApproachError
	if !errors.As(outcomes[1].Err, &caErr) {
		t.Errorf("pair 1: expected *CloseApproachError, got %v", outcomes[1].Err)
	} else if caErr.CatalogNumber != decaying.CatalogNumber {
		t.Errorf("pair 1 failure names %d, want %d", caErr.CatalogNumber, decaying.CatalogNumber)
	}

	if outcomes[2].Err != nil {
		t.Errorf("pair 2 failed: %v", outcomes[2].Err)
	}
	if outcomes[2].Result.CatalogB != setC.CatalogNumber {
		t.Errorf("pair 2 analyzed %d, want %d", outcomes[2].Result.CatalogB, setC.CatalogNumber)
	}
}

func TestAnalyzePairsEmpty(t *testing.T) {
	an, _ := testAnalyzer(Options{})
	outcomes := an.AnalyzePairs(context.Background(), nil, Window{Duration: time.Hour})
	if len(outcomes) != 0 {
		t.Fatalf("got %d outcomes for empty input", len(outcomes))
	}
}

func TestScreenExcludesAndSorts(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	setB := mustParse(t, "TWIN-B", twinBLine1, twinBLine2)
	setC := mustParse(t, "CROSS", crossLine1, crossLine2)
	an, _ := testAnalyzer(Options{CoarseStep: time.Minute})

	catalog := []elements.ElementSet{setA, setB, setC}
	w := Window{Start: setA.Epoch, Duration: 2 * time.Hour}

	results, failed := an.Screen(context.Background(), setA, catalog, w)
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed[0].Err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (primary excluded)", len(results))
	}
	for _, r := range results {
		if r.CatalogA != setA.CatalogNumber {
			t.Errorf("result primary = %d, want %d", r.CatalogA, setA.CatalogNumber)
		}
		if r.CatalogB == setA.CatalogNumber {
			t.Error("screen analyzed the primary against itself")
		}
	}
	if results[0].MinDistanceKm > results[1].MinDistanceKm {
		t.Errorf("results unsorted: %.1f before %.1f km",
			results[0].MinDistanceKm, results[1].MinDistanceKm)
	}
	// The coplanar cross-plane pair comes closer than the antipodal twin.
	if results[0].CatalogB != setC.CatalogNumber {
		t.Errorf("closest object = %d, want %d", results[0].CatalogB, setC.CatalogNumber)
	}
}

func TestScreenReportsFailures(t *testing.T) {
	setA := mustParse(t, "TWIN-A", twinALine1, twinALine2)
	decaying := mustParse(t, "DECAYING", decayLine1, decayLine2)
	an, _ := testAnalyzer(Options{CoarseStep: time.Minute})

	w := Window{Start: decaying.Epoch.Add(28 * 24 * time.Hour), Duration: time.Hour}
	results, failed := an.Screen(context.Background(), setA, []elements.ElementSet{decaying}, w)
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
	if len(failed) != 1 {
		t.Fatalf("got %d failed outcomes, want 1", len(failed))
	}
	var caErr *CloseApproachError
	if !errors.As(failed[0].Err, &caErr) {
		t.Errorf("expected *CloseApproachError, got %v", failed[0].Err)
	}
}
