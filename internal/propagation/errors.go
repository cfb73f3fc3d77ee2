package propagation

import (
	"fmt"
	"time"
)

// PropagationError reports numerical failure for one (object, epoch) query.
// Other queries against the same element set remain valid.
type PropagationError struct {
	CatalogNumber int
	Epoch         time.Time
	Reason        string
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagating NORAD %d to %s: %s",
		e.CatalogNumber, e.Epoch.UTC().Format(time.RFC3339Nano), e.Reason)
}

// DecayedOrbitError reports that the elements project the object below the
// surface at the requested epoch. It is expected and recoverable: the
// caller picks an earlier epoch or a fresher element set.
type DecayedOrbitError struct {
	CatalogNumber int
	Epoch         time.Time
	AltitudeKm    float64 // projected altitude, negative
}

func (e *DecayedOrbitError) Error() string {
	return fmt.Sprintf("NORAD %d decayed by %s: projected altitude %.1f km",
		e.CatalogNumber, e.Epoch.UTC().Format(time.RFC3339), e.AltitudeKm)
}
