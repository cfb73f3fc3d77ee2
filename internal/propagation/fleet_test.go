package propagation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestFleetSnapshotOrderAndOutcomes(t *testing.T) {
	iss := mustParse(t, issName, issLine1, issLine2)
	decaying := mustParse(t, "DECAYING", decayLine1, decayLine2)
	prop := testPropagator()
	pool := NewFleetPool(4, testLogger())

	// Thirty days out the decaying object fails; the station does not.
	at := iss.Epoch.Add(30 * 24 * time.Hour)
	entries, failed := pool.Snapshot(context.Background(), prop,
		[]elements.ElementSet{iss, decaying, iss}, at)

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	// Input order survives worker scheduling.
	wantCats := []int{25544, 40000, 25544}
	for i, e := range entries {
		if e.CatalogNumber != wantCats[i] {
			t.Errorf("entry %d catalog = %d, want %d", i, e.CatalogNumber, wantCats[i])
		}
	}

	var decayErr *DecayedOrbitError
	if !errors.As(entries[1].Err, &decayErr) {
		t.Errorf("entry 1: expected *DecayedOrbitError, got %v", entries[1].Err)
	}
	for _, i := range []int{0, 2} {
		if entries[i].Err != nil {
			t.Errorf("entry %d: unexpected error %v", i, entries[i].Err)
		}
		if entries[i].State.Position.Norm() == 0 {
			t.Errorf("entry %d: zero state for successful propagation", i)
		}
	}
}

func TestFleetSnapshotCancellation(t *testing.T) {
	iss := mustParse(t, issName, issLine1, issLine2)
	prop := testPropagator()
	pool := NewFleetPool(2, testLogger())

	sets := make([]elements.ElementSet, 300)
	for i := range sets {
		sets[i] = iss
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, failed := pool.Snapshot(ctx, prop, sets, iss.Epoch)
	if len(entries) != len(sets) {
		t.Fatalf("got %d entries, want %d (every object gets an outcome)", len(entries), len(sets))
	}
	if failed == 0 {
		t.Error("expected cancellation to fail at least one entry")
	}
	for _, e := range entries {
		if e.Err != nil && !errors.Is(e.Err, context.Canceled) {
			t.Errorf("unexpected error kind: %v", e.Err)
		}
	}
}

func TestFleetSnapshotEmpty(t *testing.T) {
	pool := NewFleetPool(0, testLogger())
	entries, failed := pool.Snapshot(context.Background(), testPropagator(), nil, time.Now())
	if entries != nil || failed != 0 {
		t.Errorf("empty snapshot: entries=%v failed=%d", entries, failed)
	}
}
