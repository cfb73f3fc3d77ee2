package propagation

import (
	"testing"
	"time"
)

// TestReferenceAgreement bounds the simplified model's divergence from the
// full SGP4 implementation. The simplified model carries no short-period
// terms and no J2 secular rate on the mean anomaly, so the tolerance is
// loose: tens of kilometers at the element epoch, growing along-track with
// elapsed time.
func TestReferenceAgreement(t *testing.T) {
	set := mustParse(t, issName, issLine1, issLine2)
	prop := testPropagator()

	ref, err := NewReference(set)
	if err != nil {
		t.Fatalf("NewReference failed: %v", err)
	}

	tests := []struct {
		name     string
		offset   time.Duration
		posTolKm float64
	}{
		{"at element epoch", 0, 40},
		{"one hour out", time.Hour, 60},
		{"one day out", 24 * time.Hour, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := set.Epoch.Add(tt.offset)
			ours, err := prop.Propagate(set, at)
			if err != nil {
				t.Fatalf("Propagate failed: %v", err)
			}
			theirs, err := ref.Propagate(at)
			if err != nil {
				t.Fatalf("reference Propagate failed: %v", err)
			}

			dPos := ours.Position.Sub(theirs.Position).Norm()
			if dPos > tt.posTolKm {
				t.Errorf("position divergence %.1f km exceeds %.0f km", dPos, tt.posTolKm)
			}

			// Both models must agree on the orbit scale.
			rOurs, rTheirs := ours.Position.Norm(), theirs.Position.Norm()
			if d := rOurs - rTheirs; d > 30 || d < -30 {
				t.Errorf("radius differs by %.1f km (ours %.1f, sgp4 %.1f)", d, rOurs, rTheirs)
			}
		})
	}
}

func TestReferenceRejectsMissingLines(t *testing.T) {
	set := mustParse(t, issName, issLine1, issLine2)
	set.Line1 = ""
	if _, err := NewReference(set); err == nil {
		t.Error("expected error when raw lines are unavailable")
	}
}
