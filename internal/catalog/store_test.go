package catalog

import (
	"testing"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

func mustParse(t *testing.T, name, l1, l2 string) elements.ElementSet {
	t.Helper()
	set, err := elements.Parse(name, l1, l2)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return set
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	if s.Snapshot() != nil {
		t.Error("empty store returned a snapshot")
	}
	if s.Ready() {
		t.Error("empty store reported ready")
	}
	if s.AgeSeconds() != -1 {
		t.Errorf("AgeSeconds = %v, want -1", s.AgeSeconds())
	}
}

func TestStoreReplaceAndRead(t *testing.T) {
	iss := mustParse(t, issName, issLine1, issLine2)
	gps := mustParse(t, gpsName, gpsLine1, gpsLine2)

	s := NewStore()
	s.Replace(&Snapshot{
		Sets:      map[int]elements.ElementSet{iss.CatalogNumber: iss, gps.CatalogNumber: gps},
		Groups:    []string{"stations", "gps-ops"},
		FetchedAt: time.Now(),
	})

	if !s.Ready() {
		t.Fatal("store with two objects not ready")
	}
	snap := s.Snapshot()
	if snap.Len() != 2 {
		t.Fatalf("Len = %d, want 2", snap.Len())
	}

	got, ok := snap.Get(25544)
	if !ok || got.Name != issName {
		t.Errorf("Get(25544) = %v/%v", got.Name, ok)
	}
	if _, ok := snap.Get(99999); ok {
		t.Error("Get(99999) found a nonexistent object")
	}

	all := snap.All()
	if len(all) != 2 || all[0].CatalogNumber != 24876 || all[1].CatalogNumber != 25544 {
		t.Errorf("All() not sorted by catalog number: %v", all)
	}

	if age := s.AgeSeconds(); age < 0 || age > 60 {
		t.Errorf("AgeSeconds = %v", age)
	}
}

func TestStoreSnapshotImmutableUnderReplace(t *testing.T) {
	iss := mustParse(t, issName, issLine1, issLine2)
	s := NewStore()
	s.Replace(&Snapshot{Sets: map[int]elements.ElementSet{iss.CatalogNumber: iss}, FetchedAt: time.Now()})

	held := s.Snapshot()
	s.Replace(&Snapshot{Sets: map[int]elements.ElementSet{}, FetchedAt: time.Now()})

	if held.Len() != 1 {
		t.Error("previously held snapshot changed after Replace")
	}
	if s.Snapshot().Len() != 0 {
		t.Error("Replace did not publish the new snapshot")
	}
}
